//go:build windows

package lifecycle

import "os/exec"

// exitInfoFromState extracts the exit code from an exec.ExitError. Windows
// processes have no POSIX signal concept, so SignalName and SignalNum are
// always left empty.
func exitInfoFromState(exitErr *exec.ExitError) ExitInfo {
	code := exitErr.ExitCode()
	return ExitInfo{ExitCode: &code}
}
