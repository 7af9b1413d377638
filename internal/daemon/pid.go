package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/adrg/xdg"

	"github.com/imparable/imparable/internal/config"
)

// PIDFileName is the PID file written by a running server.
const PIDFileName = "imparable.pid"

// Errors
var (
	ErrNotRunning     = fmt.Errorf("server is not running")
	ErrAlreadyRunning = fmt.Errorf("server is already running")
)

// PIDFile guards against two servers sharing one data directory.
type PIDFile struct {
	path string
}

// NewPIDFile returns a PIDFile at path, or at DefaultPIDPath when path is empty.
func NewPIDFile(path string) *PIDFile {
	if path == "" {
		path = DefaultPIDPath()
	}
	return &PIDFile{path: path}
}

// DefaultPIDPath is $XDG_STATE_HOME/imparable/imparable.pid.
func DefaultPIDPath() string {
	return filepath.Join(xdg.StateHome, config.AppName, PIDFileName)
}

// Write stores the current process id.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// Read returns the stored process id.
func (p *PIDFile) Read() (int, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

// Remove deletes the file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// RunningPID returns the pid of a live server, or 0.
func (p *PIDFile) RunningPID() int {
	pid, err := p.Read()
	if err != nil || !processAlive(pid) {
		return 0
	}
	return pid
}

// Path returns the file location.
func (p *PIDFile) Path() string {
	return p.path
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Unix; signal 0 probes for existence.
	return proc.Signal(syscall.Signal(0)) == nil
}
