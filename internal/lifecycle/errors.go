package lifecycle

import "errors"

// Distinct error kinds the Lifecycle can produce, matching spec.md §7/§8:
// callers (the hot-reload loop, the Orchestrator) branch on these with
// errors.Is rather than string matching.
var (
	// ErrAlreadyRunning is returned by Start when a child is already live.
	ErrAlreadyRunning = errors.New("lifecycle: server already running")

	// ErrReadinessTimeout is returned when the readiness window elapses
	// before the child is observed ready.
	ErrReadinessTimeout = errors.New("lifecycle: readiness timeout")

	// ErrStartupFailure wraps a failure to spawn the child at all (exec
	// error, pipe setup error).
	ErrStartupFailure = errors.New("lifecycle: startup failure")

	// ErrExitedDuringReadiness is returned when the child exits before
	// becoming ready.
	ErrExitedDuringReadiness = errors.New("lifecycle: exited during readiness check")

	// ErrTerminationTimeout is returned when a child survives both the
	// graceful and forceful termination windows (a zombie).
	ErrTerminationTimeout = errors.New("lifecycle: termination timeout")

	// ErrCrashLooping is returned by Start/Restart when the crash-loop
	// guard has tripped.
	ErrCrashLooping = errors.New("lifecycle: server crash-looping, refusing to restart")
)
