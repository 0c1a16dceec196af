package status

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFieldsImmutableAcrossCalls(t *testing.T) {
	reporter := NewReporter("my-cool-api", "2.3.17")

	first := reporter.Report()
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, reporter.Report())
	}
}

func TestReportNameAndVersion(t *testing.T) {
	reporter := NewReporter("my-cool-api", "2.3.17")

	report := reporter.Report()
	require.Equal(t, "my-cool-api", report.Name)
	require.Equal(t, "2.3.17", report.Version)
}

func TestStartTimeIsProcessStartNotCallTime(t *testing.T) {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	reporter := newReporter("svc", "1.0.0", start, func() (string, error) {
		return "host-1", nil
	})

	// The call happens well after the recorded start instant; the report
	// must still carry the original instant.
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, start, reporter.Report().StartTime)
	require.Equal(t, start, reporter.Report().StartTime)
}

func TestHostResolutionFailureFallsBackToPlaceholder(t *testing.T) {
	reporter := newReporter("svc", "1.0.0", time.Now(), func() (string, error) {
		return "", errors.New("hostname lookup failed")
	})

	report := reporter.Report()
	require.Equal(t, "", report.Host)
	require.Equal(t, "svc", report.Name)
}

func TestConcurrentReadsSerializeIdentically(t *testing.T) {
	reporter := NewReporter("my-cool-api", "2.3.17")

	reference, err := json.Marshal(reporter.Report())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]byte, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, err := json.Marshal(reporter.Report())
			assert.NoError(t, err)
			results[i] = body
		}(i)
	}
	wg.Wait()

	for _, body := range results {
		require.Equal(t, reference, body)
	}
}
