// pkg/tenants/memory.go
package tenants

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// memStore keeps installations for the process lifetime only. A restart loses
// every trust relationship; production deployments set DATABASE_URL instead.
type memStore struct {
	log *zap.SugaredLogger
	mu  sync.RWMutex
	m   map[string]Installation
}

func NewMemoryStore(log *zap.SugaredLogger) Store {
	return &memStore{log: log, m: map[string]Installation{}}
}

func (s *memStore) Get(ctx context.Context, clientKey string) (Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.m[clientKey]; ok {
		return inst, nil
	}
	return Installation{}, ErrNotInstalled
}

func (s *memStore) Put(ctx context.Context, inst Installation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[inst.ClientKey] = inst
	return nil
}

func (s *memStore) Delete(ctx context.Context, clientKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, clientKey)
	return nil
}

func (s *memStore) List(ctx context.Context) ([]Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Installation, 0, len(s.m))
	for _, inst := range s.m {
		out = append(out, inst)
	}
	return out, nil
}
