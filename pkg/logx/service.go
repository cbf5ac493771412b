package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultFile is used when file output is enabled without a path.
const DefaultFile = "dolist.log"

type Config struct {
	Level   string
	Console bool
	File    FileConfig
}

type FileConfig struct {
	Enabled bool
	Path    string
}

// Service owns the process-wide outputs and swaps them on Apply.
type Service struct {
	mu   sync.Mutex
	cfg  Config
	file *os.File
	root atomic.Pointer[zerolog.Logger]
}

// New applies cfg and returns the service plus a live root logger.
func New(cfg Config) (*Service, Logger) {
	s := &Service{}
	s.Apply(cfg)
	return s, s.Logger()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

func (s *Service) current() *zerolog.Logger { return s.root.Load() }

// Apply rebuilds the outputs for cfg. An already open log file is kept when
// its path is unchanged. A file that cannot be opened is reported on stderr
// and the console output is used instead.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := ""
	if cfg.File.Enabled {
		path = strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = DefaultFile
		}
	}
	if s.file != nil && s.file.Name() != path {
		_ = s.file.Close()
		s.file = nil
	}
	if path != "" && s.file == nil {
		f, err := openLogFile(path)
		if err != nil {
			fmt.Fprintf(Stderr(), "logx: %v\n", err)
		} else {
			s.file = f
		}
	}

	var outs []io.Writer
	if cfg.Console {
		outs = append(outs, consoleWriter(Stdout()))
	}
	if s.file != nil {
		outs = append(outs, zerolog.SyncWriter(s.file))
	}
	if len(outs) == 0 {
		outs = append(outs, consoleWriter(Stdout()))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(outs...)).
		Level(ParseLevel(cfg.Level, LevelInfo)).
		With().Timestamp().Logger()
	s.cfg = cfg
	s.root.Store(&zl)
}

// Close releases the log file. Later events go to stdout.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	zl := zerolog.New(consoleWriter(Stdout())).Level(ParseLevel(s.cfg.Level, LevelInfo)).With().Timestamp().Logger()
	s.root.Store(&zl)
	return err
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log dir %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	return f, nil
}

// Stdout and Stderr are indirections for the console outputs.
func Stdout() io.Writer { return os.Stdout }
func Stderr() io.Writer { return os.Stderr }
