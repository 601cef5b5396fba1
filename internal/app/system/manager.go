package system

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Manager starts services in registration order and stops them in reverse.
type Manager struct {
	mu       sync.Mutex
	services []Service
	started  []Service
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds svc. Names must be unique.
func (m *Manager) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("nil service")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.services {
		if s.Name() == svc.Name() {
			return fmt.Errorf("service %s already registered", svc.Name())
		}
	}
	m.services = append(m.services, svc)
	return nil
}

// Services lists registered service names.
func (m *Manager) Services() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.services))
	for i, s := range m.services {
		names[i] = s.Name()
	}
	return names
}

// Start starts every service. If one fails, those already started are
// stopped again.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.started) > 0 {
		return nil
	}
	for _, svc := range m.services {
		if err := svc.Start(ctx); err != nil {
			startErr := fmt.Errorf("start %s: %w", svc.Name(), err)
			return errors.Join(startErr, m.stopLocked(ctx))
		}
		m.started = append(m.started, svc)
	}
	return nil
}

// Stop stops started services in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		svc := m.started[i]
		if err := svc.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", svc.Name(), err))
		}
	}
	m.started = nil
	return errors.Join(errs...)
}
