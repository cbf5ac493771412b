//go:build !linux

package systemdmanager

import (
	"context"
	"errors"
	"time"
)

var ErrUnsupported = errors.New("systemdmanager: unsupported OS (linux only)")

type ServiceStatus struct {
	Name        string
	Active      string
	SubState    string
	LoadState   string
	Description string
	Enabled     bool
	ActiveSince time.Time
	StateChange time.Time
}

type Manager struct{ scope Scope }

func NewContext(ctx context.Context, scope Scope) (*Manager, error) {
	return nil, ErrUnsupported
}

func (m *Manager) Scope() Scope { return m.scope }
func (m *Manager) Close() error { return nil }

func (m *Manager) Install(ctx context.Context, spec UnitSpec) (string, error) {
	return "", ErrUnsupported
}

func (m *Manager) Stop(ctx context.Context) error { return ErrUnsupported }

func (m *Manager) Status(ctx context.Context) (*ServiceStatus, error) {
	return nil, ErrUnsupported
}
