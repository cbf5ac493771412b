package systemdmanager

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// UnitName is the unit the reminder service is installed as.
const UnitName = "dolist-reminder.service"

// Scope selects the user or the system instance of systemd.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeSystem
)

func (s Scope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "user"
}

// DetectScope installs system-wide only when running as root.
func DetectScope() Scope {
	if os.Geteuid() == 0 {
		return ScopeSystem
	}
	return ScopeUser
}

// UnitSpec describes the service unit.
type UnitSpec struct {
	Description string
	// ExecStart is the absolute path of the dolist binary.
	ExecStart string
	Args      []string
	// User is only written for system units.
	User        string
	Environment map[string]string
	RestartSec  int
}

// Render produces the unit file text.
func Render(spec UnitSpec, scope Scope) (string, error) {
	exe := strings.TrimSpace(spec.ExecStart)
	if exe == "" || !filepath.IsAbs(exe) {
		return "", errors.New("systemdmanager: ExecStart must be an absolute path")
	}
	desc := strings.TrimSpace(spec.Description)
	if desc == "" {
		desc = "DoList Reminder Service"
	}
	restart := spec.RestartSec
	if restart <= 0 {
		restart = 10
	}

	var b strings.Builder
	b.WriteString("[Unit]\n")
	b.WriteString("Description=" + desc + "\n")
	b.WriteString("After=network.target\n\n")

	b.WriteString("[Service]\n")
	b.WriteString("Type=notify\n")
	if scope == ScopeSystem && strings.TrimSpace(spec.User) != "" {
		b.WriteString("User=" + strings.TrimSpace(spec.User) + "\n")
	}
	for _, k := range slices.Sorted(maps.Keys(spec.Environment)) {
		b.WriteString("Environment=" + quoteArg(k+"="+spec.Environment[k]) + "\n")
	}
	line := quoteArg(exe)
	for _, a := range spec.Args {
		line += " " + quoteArg(a)
	}
	b.WriteString("ExecStart=" + line + "\n")
	b.WriteString("Restart=always\n")
	b.WriteString("RestartSec=" + strconv.Itoa(restart) + "\n")
	b.WriteString("StandardOutput=journal\n")
	b.WriteString("StandardError=journal\n\n")

	b.WriteString("[Install]\n")
	if scope == ScopeSystem {
		b.WriteString("WantedBy=multi-user.target\n")
	} else {
		b.WriteString("WantedBy=default.target\n")
	}
	return b.String(), nil
}

// UnitPath is where the unit file for scope lives.
func UnitPath(scope Scope) (string, error) {
	if scope == ScopeSystem {
		return filepath.Join("/etc/systemd/system", UnitName), nil
	}
	if x := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); x != "" {
		return filepath.Join(x, "systemd", "user", UnitName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "systemd", "user", UnitName), nil
}

// WriteUnit renders spec and writes it to path, creating parent dirs.
func WriteUnit(path string, spec UnitSpec, scope Scope) error {
	text, err := Render(spec, scope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
