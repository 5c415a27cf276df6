package lifecycle

import (
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
)

// ExitInfo describes how a child process terminated.
type ExitInfo struct {
	// ExitCode is nil if the process was killed by a signal rather than
	// exiting normally.
	ExitCode *int
	// SignalName is one of the canonical names the crash-message composer
	// recognizes (SIGSEGV, SIGKILL, SIGTERM, SIGINT), or empty if the
	// process exited normally or was killed by an unrecognized signal.
	SignalName string
	// SignalNum is the raw signal number, used to format "(signal: N)"
	// for signals without a canonical name. Zero if no signal applies.
	SignalNum int
}

// Connection is the handle a Lifecycle hands to the Protocol Handler: the
// piped stdio of exactly one live child, its pid, and a one-shot crash
// notification. At most one Connection is live at a time.
type Connection struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
	cmd    *exec.Cmd
	pid    int

	done   chan struct{}
	once   sync.Once
	result ExitInfo

	disposed  atomic.Bool
	solicited atomic.Bool
}

func newConnection(cmd *exec.Cmd, stdin io.WriteCloser, stdout io.ReadCloser) *Connection {
	return &Connection{
		stdin:  stdin,
		stdout: stdout,
		cmd:    cmd,
		pid:    cmd.Process.Pid,
		done:   make(chan struct{}),
	}
}

// Stdin is the child's standard input.
func (c *Connection) Stdin() io.Writer { return c.stdin }

// Stdout is the child's standard output.
func (c *Connection) Stdout() io.Reader { return c.stdout }

// PID returns the child's process id.
func (c *Connection) PID() int { return c.pid }

// IsAlive reports whether the process has not yet been observed to exit.
func (c *Connection) IsAlive() bool {
	select {
	case <-c.done:
		return false
	default:
		return processIsAlive(c.cmd.Process)
	}
}

// WaitForCrash returns a channel that is closed exactly once, when the
// child exits. It is safe to call repeatedly (every call returns the same
// channel) and safe to never read from (closing a channel needs no
// receiver). Once closed, call ExitInfo to read the resolved value.
func (c *Connection) WaitForCrash() <-chan struct{} {
	return c.done
}

// ExitInfo returns the exit details. Only meaningful after the channel
// returned by WaitForCrash has been closed.
func (c *Connection) ExitInfo() ExitInfo {
	return c.result
}

// Dispose detaches the Protocol Handler's interest in this connection's
// crash notification and releases references. It does not kill the
// process and is idempotent.
func (c *Connection) Dispose() {
	c.disposed.Store(true)
}

// Disposed reports whether Dispose has been called.
func (c *Connection) Disposed() bool {
	return c.disposed.Load()
}

// markSolicited records that the Lifecycle itself is terminating this
// connection (restart/stop), so its eventual exit must not be counted as
// an unexpected crash for crash-loop tracking.
func (c *Connection) markSolicited() {
	c.solicited.Store(true)
}

func (c *Connection) wasSolicited() bool {
	return c.solicited.Load()
}

// resolve stores the exit result and closes done. Safe to call only once;
// callers (the Lifecycle's reaper goroutine) guarantee that via sync.Once.
func (c *Connection) resolve(info ExitInfo) {
	c.once.Do(func() {
		c.result = info
		close(c.done)
	})
}
