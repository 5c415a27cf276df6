//go:build windows

package lifecycle

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// spawnAttrs has nothing to add on Windows — there is no process-group
// equivalent used here; Kill() already terminates the whole handle tree
// job-object style setups would require, which is out of scope.
func spawnAttrs() *syscall.SysProcAttr {
	return nil
}

// processIsAlive checks liveness by inspecting the process exit code via a
// limited-access handle, mirroring the approach taken for other Windows
// process supervision in this codebase.
func processIsAlive(proc *os.Process) bool {
	if proc == nil {
		return false
	}
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	const stillActive = 259
	return exitCode == stillActive
}

// sendGracefulStop has no SIGTERM equivalent on Windows; Kill() is the
// only reliable way to end a process.
func sendGracefulStop(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	return proc.Kill()
}

// sendForceKill terminates the process immediately.
func sendForceKill(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	return proc.Kill()
}
