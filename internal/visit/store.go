package visit

import (
	"context"
	"sync"
)

// Store defines the interface for visit persistence. Update applies fn to
// the stored record under a per-id write lock, so concurrent mutations of
// the same visit never lose updates.
type Store interface {
	Create(ctx context.Context, v *Visit) error
	Get(ctx context.Context, id string) (*Visit, error)
	Update(ctx context.Context, id string, fn func(*Visit) error) (*Visit, error)
}

// MemoryStore keeps visits in an in-process map. It is the default
// backend for demos and tests. Records grow without bound; production
// deployments should use the Redis or Postgres store instead.
type MemoryStore struct {
	mu     sync.RWMutex
	visits map[string]*Visit
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		visits: make(map[string]*Visit),
	}
}

// Create stores a new visit record.
func (s *MemoryStore) Create(ctx context.Context, v *Visit) error {
	s.mu.Lock()
	s.visits[v.ID] = v.clone()
	s.mu.Unlock()
	return nil
}

// Get retrieves a copy of the visit. Callers may inspect the result
// freely without racing concurrent updates.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Visit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visits[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v.clone(), nil
}

// Update applies fn to the stored record while holding the write lock.
// If fn returns an error the record is left unchanged.
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*Visit) error) (*Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visits[id]
	if !ok {
		return nil, ErrNotFound
	}

	next := v.clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.visits[id] = next
	return next.clone(), nil
}

// clone copies the record deeply enough that callers cannot mutate stored
// state through the returned pointer.
func (v *Visit) clone() *Visit {
	cp := *v
	if v.IntakeRaw != nil {
		cp.IntakeRaw = append([]QA(nil), v.IntakeRaw...)
	}
	if v.AuditEvents != nil {
		cp.AuditEvents = append([]string(nil), v.AuditEvents...)
	}
	if v.IntakeStructured != nil {
		cp.IntakeStructured = make(map[string]any, len(v.IntakeStructured))
		for k, val := range v.IntakeStructured {
			cp.IntakeStructured[k] = val
		}
	}
	if v.PatientProfile != nil {
		cp.PatientProfile = make(map[string]any, len(v.PatientProfile))
		for k, val := range v.PatientProfile {
			cp.PatientProfile[k] = val
		}
	}
	if v.PharmacyRequest != nil {
		pr := *v.PharmacyRequest
		if v.PharmacyRequest.Shipping != nil {
			pr.Shipping = make(map[string]string, len(v.PharmacyRequest.Shipping))
			for k, val := range v.PharmacyRequest.Shipping {
				pr.Shipping[k] = val
			}
		}
		cp.PharmacyRequest = &pr
	}
	return &cp
}
