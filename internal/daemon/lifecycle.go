package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pmxdev/pmx/internal/errors"
)

const (
	// PIDFileName holds the daemon's process id under the state root.
	PIDFileName = "daemon.pid"
	// LogFileName is the daemon's append-only log under the state root.
	LogFileName = "daemon.log"
)

// stopGrace is how long Stop waits for a graceful exit before escalating
// to SIGKILL.
const stopGrace = 5 * time.Second

// Status describes the daemon process as seen from the PID-file contract.
type Status struct {
	Running bool
	PID     int
	PIDFile string
	LogFile string
}

// Lifecycle manages the daemon process through its PID file. It contains
// no cache logic; it only starts, stops, and inspects the process.
type Lifecycle struct {
	dir string
}

// NewLifecycle creates a Lifecycle rooted at the state directory (normally
// the pmx home directory).
func NewLifecycle(dir string) *Lifecycle {
	return &Lifecycle{dir: dir}
}

// PIDFile returns the PID file path.
func (l *Lifecycle) PIDFile() string {
	return filepath.Join(l.dir, PIDFileName)
}

// LogFile returns the log file path.
func (l *Lifecycle) LogFile() string {
	return filepath.Join(l.dir, LogFileName)
}

// PID returns the live daemon's process id. The PID file is the single
// source of truth; a file naming a dead process is stale and is removed
// as a side effect, reported as not-running.
func (l *Lifecycle) PID() (int, bool) {
	data, err := os.ReadFile(l.PIDFile())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		l.RemovePIDFile()
		return 0, false
	}
	if !processAlive(pid) {
		l.RemovePIDFile()
		return 0, false
	}
	return pid, true
}

// IsRunning reports whether a live daemon process exists.
func (l *Lifecycle) IsRunning() bool {
	_, ok := l.PID()
	return ok
}

// Start spawns the daemon as a detached background process and returns
// true. When a daemon is already running it returns false with no side
// effects.
//
// The daemon is the pmx binary itself invoked with the hidden
// "daemon run-foreground" subcommand: detached into its own session with
// stdio discarded, it survives the parent's exit and writes its own PID
// file. (Log output goes to the daemon's log file, not stdio.)
func (l *Lifecycle) Start() (bool, error) {
	if l.IsRunning() {
		return false, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return false, errors.WrapWithCode(err, errors.ErrDaemon,
			"Cannot locate the pmx binary", "")
	}

	cmd := exec.Command(exe, "daemon", "run-foreground")
	cmd.Env = os.Environ()
	cmd.Dir = "/"
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrDaemon,
			"Failed to spawn the daemon process",
			"Check 'pmx daemon logs' and file permissions on "+l.dir)
	}
	// The child owns its own lifetime from here.
	if err := cmd.Process.Release(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrDaemon,
			"Failed to detach the daemon process", "")
	}

	// Give the child a moment to write its PID file so an immediate
	// 'pmx daemon status' reflects reality.
	for i := 0; i < 20; i++ {
		if l.IsRunning() {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return true, nil
}

// Stop requests graceful termination and returns true once the process has
// exited. A daemon that ignores SIGTERM past the grace window is killed.
// Returns false when no daemon was running.
func (l *Lifecycle) Stop() (bool, error) {
	pid, ok := l.PID()
	if !ok {
		return false, nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		l.RemovePIDFile()
		return true, nil
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == os.ErrProcessDone {
			l.RemovePIDFile()
			return true, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrDaemon,
			fmt.Sprintf("Cannot signal daemon process %d", pid),
			"The daemon may belong to another user")
	}

	deadline := time.Now().Add(stopGrace)
	for time.Now().Before(deadline) {
		time.Sleep(500 * time.Millisecond)
		if !processAlive(pid) {
			l.RemovePIDFile()
			return true, nil
		}
	}

	// Grace window exhausted: force it.
	_ = proc.Signal(syscall.SIGKILL)
	l.RemovePIDFile()
	return true, nil
}

// Restart stops the daemon when running and starts a fresh one.
func (l *Lifecycle) Restart() error {
	if _, err := l.Stop(); err != nil {
		return err
	}
	started, err := l.Start()
	if err != nil {
		return err
	}
	if !started {
		return errors.New(errors.ErrDaemon,
			"Daemon restart raced with another start",
			"Check 'pmx daemon status'")
	}
	return nil
}

// Status returns the daemon's process state and control-file paths.
func (l *Lifecycle) Status() Status {
	pid, running := l.PID()
	return Status{
		Running: running,
		PID:     pid,
		PIDFile: l.PIDFile(),
		LogFile: l.LogFile(),
	}
}

// TailLogs returns the last n lines of the daemon log, oldest first, or an
// empty slice when no log exists yet.
func (l *Lifecycle) TailLogs(n int) ([]string, error) {
	data, err := os.ReadFile(l.LogFile())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrDaemon,
			"Cannot read daemon log", "Check permissions on "+l.LogFile())
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// WritePIDFile records the current process id. Called by the daemon itself
// during startup.
func (l *Lifecycle) WritePIDFile() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrDaemon,
			"Failed to create state directory", "Check permissions on "+l.dir)
	}
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(l.PIDFile(), []byte(pid), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrDaemon,
			"Failed to write PID file", "Check permissions on "+l.dir)
	}
	return nil
}

// RemovePIDFile deletes the PID file if present.
func (l *Lifecycle) RemovePIDFile() {
	_ = os.Remove(l.PIDFile())
}

// processAlive probes a PID with signal zero, the non-destructive liveness
// check.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return err == syscall.EPERM
}
