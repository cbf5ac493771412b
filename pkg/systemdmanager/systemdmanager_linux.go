//go:build linux

package systemdmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
)

// ServiceStatus represents the current state of the unit.
type ServiceStatus struct {
	Name        string
	Active      string // active, inactive, failed, etc.
	SubState    string // running, dead, etc.
	LoadState   string // loaded, not-found, etc.
	Description string
	Enabled     bool
	ActiveSince time.Time
	StateChange time.Time
}

// Manager talks to systemd over D-Bus for one scope.
type Manager struct {
	mu    sync.RWMutex
	conn  *dbus.Conn
	scope Scope
}

// NewContext connects to the user or system manager.
func NewContext(ctx context.Context, scope Scope) (*Manager, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		conn *dbus.Conn
		err  error
	)
	if scope == ScopeSystem {
		conn, err = dbus.NewSystemConnectionContext(ctx)
	} else {
		conn, err = dbus.NewUserConnectionContext(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd (%s): %w", scope, err)
	}
	return &Manager{conn: conn, scope: scope}, nil
}

func (m *Manager) Scope() Scope { return m.scope }

// Close closes the systemd connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	return nil
}

func (m *Manager) connection() (*dbus.Conn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return nil, errors.New("systemd connection is closed")
	}
	return m.conn, nil
}

// Install writes the unit file, reloads the daemon, enables the unit and
// (re)starts it. It returns the unit file path.
func (m *Manager) Install(ctx context.Context, spec UnitSpec) (string, error) {
	conn, err := m.connection()
	if err != nil {
		return "", err
	}
	path, err := UnitPath(m.scope)
	if err != nil {
		return "", err
	}
	if err := WriteUnit(path, spec, m.scope); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return path, fmt.Errorf("failed to reload systemd daemon: %w", err)
	}
	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{UnitName}, false, true); err != nil {
		return path, fmt.Errorf("failed to enable %s: %w", UnitName, err)
	}
	if err := m.wait(ctx, func(ch chan<- string) (int, error) {
		return conn.RestartUnitContext(ctx, UnitName, "replace", ch)
	}); err != nil {
		return path, fmt.Errorf("failed to start %s: %w", UnitName, err)
	}
	return path, nil
}

// Stop stops the unit and waits for the job to finish.
func (m *Manager) Stop(ctx context.Context) error {
	conn, err := m.connection()
	if err != nil {
		return err
	}
	if err := m.wait(ctx, func(ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, UnitName, "replace", ch)
	}); err != nil {
		return fmt.Errorf("failed to stop %s: %w", UnitName, err)
	}
	return nil
}

// wait runs a job and blocks until systemd reports its result.
func (m *Manager) wait(ctx context.Context, start func(ch chan<- string) (int, error)) error {
	ch := make(chan string, 1)
	if _, err := start(ch); err != nil {
		return err
	}
	select {
	case res := <-ch:
		if res != "done" {
			return fmt.Errorf("job %s", res)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the unit state. A missing unit is not an error.
func (m *Manager) Status(ctx context.Context) (*ServiceStatus, error) {
	conn, err := m.connection()
	if err != nil {
		return nil, err
	}

	props, err := conn.GetUnitPropertiesContext(ctx, UnitName)
	if err != nil {
		if isNoSuchUnitErr(err) {
			return notFound(), nil
		}
		return nil, fmt.Errorf("failed to get status for %s: %w", UnitName, err)
	}

	loadState, _ := getStringProperty(props, "LoadState")
	if loadState == "not-found" {
		return notFound(), nil
	}
	activeState, _ := getStringProperty(props, "ActiveState")
	subState, _ := getStringProperty(props, "SubState")
	description, _ := getStringProperty(props, "Description")
	unitFileState, _ := getStringProperty(props, "UnitFileState")

	return &ServiceStatus{
		Name:        UnitName,
		Active:      activeState,
		SubState:    subState,
		LoadState:   loadState,
		Description: description,
		Enabled:     unitFileState == "enabled",
		ActiveSince: parseTimestamp(props, "ActiveEnterTimestamp"),
		StateChange: parseTimestamp(props, "StateChangeTimestamp"),
	}, nil
}

func notFound() *ServiceStatus {
	return &ServiceStatus{Name: UnitName, Active: "unknown", SubState: "not-found", LoadState: "not-found"}
}

func isNoSuchUnitErr(err error) bool {
	if err == nil {
		return false
	}
	es := err.Error()
	// systemd returns org.freedesktop.systemd1.NoSuchUnit for missing units.
	return strings.Contains(es, "NoSuchUnit") || strings.Contains(es, "not-found")
}

func parseTimestamp(props map[string]interface{}, key string) time.Time {
	if ts, ok := props[key].(uint64); ok && ts > 0 {
		// microseconds since the Unix epoch
		return time.Unix(int64(ts/1_000_000), 0)
	}
	return time.Time{}
}

func getStringProperty(props map[string]interface{}, key string) (string, bool) {
	if val, ok := props[key].(string); ok {
		return val, true
	}
	return "", false
}
