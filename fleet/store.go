package fleet

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// RegistryStore persists instance registrations.
type RegistryStore interface {
	SaveInstance(inst *Instance) error
	DeleteInstance(id string) error
	LoadAllInstances() (map[string]*Instance, error)
}

// PostgresStore implements RegistryStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore opens the database, verifies connectivity and runs
// schema migration.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fleet_instances (
		id VARCHAR(128) PRIMARY KEY,
		name VARCHAR(256) NOT NULL,
		endpoint VARCHAR(512) NOT NULL,
		registered_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_fleet_instances_name ON fleet_instances(name);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveInstance upserts an instance registration.
func (s *PostgresStore) SaveInstance(inst *Instance) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO fleet_instances (id, name, endpoint, registered_at, updated_at)
	VALUES ($1, $2, $3, $4, NOW())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		endpoint = EXCLUDED.endpoint,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, inst.ID, inst.Name, inst.Endpoint, inst.RegisteredAt)
	return err
}

// DeleteInstance removes an instance registration.
func (s *PostgresStore) DeleteInstance(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM fleet_instances WHERE id = $1", id)
	return err
}

// LoadAllInstances retrieves all persisted registrations.
func (s *PostgresStore) LoadAllInstances() (map[string]*Instance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, endpoint, registered_at FROM fleet_instances
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]*Instance)
	for rows.Next() {
		var inst Instance
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Endpoint, &inst.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		result[inst.ID] = &inst
	}

	return result, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InMemoryStore implements RegistryStore for testing without a database.
type InMemoryStore struct {
	instances map[string]*Instance
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{instances: make(map[string]*Instance)}
}

// SaveInstance stores an instance in memory.
func (s *InMemoryStore) SaveInstance(inst *Instance) error {
	s.instances[inst.ID] = inst
	return nil
}

// DeleteInstance removes an instance from memory.
func (s *InMemoryStore) DeleteInstance(id string) error {
	delete(s.instances, id)
	return nil
}

// LoadAllInstances returns a copy of the stored instances.
func (s *InMemoryStore) LoadAllInstances() (map[string]*Instance, error) {
	result := make(map[string]*Instance, len(s.instances))
	for id, inst := range s.instances {
		result[id] = inst
	}
	return result, nil
}
