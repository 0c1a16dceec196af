package fleet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RegistryConfig configures the fleet registry.
type RegistryConfig struct {
	// AdminToken protects admin routes with basic auth (user:pass).
	// Empty leaves admin routes unprotected.
	AdminToken string

	// Store persists registrations. Nil falls back to in-memory.
	Store RegistryStore
}

// Registry manages the set of known service instances.
type Registry struct {
	config *RegistryConfig
	store  RegistryStore

	mu        sync.RWMutex
	instances map[string]*Instance

	onChange func()
}

// NewRegistry creates a registry, loading any persisted registrations
// from the store.
func NewRegistry(config *RegistryConfig) (*Registry, error) {
	store := config.Store
	if store == nil {
		store = NewInMemoryStore()
	}

	instances, err := store.LoadAllInstances()
	if err != nil {
		return nil, fmt.Errorf("loading persisted instances: %w", err)
	}

	return &Registry{
		config:    config,
		store:     store,
		instances: instances,
	}, nil
}

// SetChangeListener registers a callback invoked after every
// registration change. The collector uses it to trigger an immediate
// sweep.
func (r *Registry) SetChangeListener(fn func()) {
	r.onChange = fn
}

// RegisterPublicRoutes mounts the instance-facing routes.
func (r *Registry) RegisterPublicRoutes(router chi.Router) {
	router.Post("/register", r.handleRegister)
	router.Get("/instances", r.handleListInstances)
	router.Get("/instances/{id}", r.handleGetInstance)
}

// RegisterAdminRoutes mounts the operator routes under /admin.
func (r *Registry) RegisterAdminRoutes(router chi.Router) {
	router.Route("/admin", func(admin chi.Router) {
		if r.config.AdminToken != "" {
			user, pass := parseAdminToken(r.config.AdminToken)
			admin.Use(middleware.BasicAuth("fleetpulse admin", map[string]string{user: pass}))
		}
		admin.Delete("/unregister/{id}", r.handleUnregister)
	})
}

// Register validates and stores an instance registration.
func (r *Registry) Register(req *RegistrationRequest) (*Instance, error) {
	if req.Name == "" {
		return nil, errors.New("missing instance name")
	}
	if err := validateEndpoint(req.Endpoint); err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	inst := &Instance{
		ID:           id,
		Name:         req.Name,
		Endpoint:     strings.TrimRight(req.Endpoint, "/"),
		RegisteredAt: time.Now().UTC(),
	}

	r.mu.Lock()
	if existing, ok := r.instances[id]; ok {
		// Re-registration keeps the original registration time.
		inst.RegisteredAt = existing.RegisteredAt
	}
	if err := r.store.SaveInstance(inst); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("persisting instance: %w", err)
	}
	r.instances[id] = inst
	r.mu.Unlock()

	r.notifyChange()
	return inst, nil
}

// Unregister removes an instance. Removing an unknown ID is a no-op.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	if err := r.store.DeleteInstance(id); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("deleting instance: %w", err)
	}
	delete(r.instances, id)
	r.mu.Unlock()

	r.notifyChange()
	return nil
}

// List returns all registered instances, ordered by name then ID.
func (r *Registry) List() []*Instance {
	r.mu.RLock()
	result := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		result = append(result, inst)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result
}

// Get returns the instance with the given ID, or nil.
func (r *Registry) Get(id string) *Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instances[id]
}

func (r *Registry) notifyChange() {
	if r.onChange != nil {
		r.onChange()
	}
}

func (r *Registry) handleRegister(w http.ResponseWriter, req *http.Request) {
	var regReq RegistrationRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	inst, err := r.Register(&regReq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	json.NewEncoder(w).Encode(&RegistrationResponse{
		Success: true,
		ID:      inst.ID,
	})
}

func (r *Registry) handleUnregister(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	if err := r.Unregister(id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *Registry) handleListInstances(w http.ResponseWriter, req *http.Request) {
	json.NewEncoder(w).Encode(&InstanceListResponse{Instances: r.List()})
}

func (r *Registry) handleGetInstance(w http.ResponseWriter, req *http.Request) {
	inst := r.Get(chi.URLParam(req, "id"))
	if inst == nil {
		http.Error(w, "instance not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(inst)
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("missing instance endpoint")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be http or https, got %q", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint missing host: %q", endpoint)
	}
	return nil
}

func parseAdminToken(token string) (user, pass string) {
	idx := strings.Index(token, ":")
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}
