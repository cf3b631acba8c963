//go:build windows

package localexec

import "os/exec"

func configureProc(cmd *exec.Cmd) {
	// Windows has no process groups in the POSIX sense; the default Cancel kills the child.
}

func defaultShell() []string {
	return []string{"cmd", "/C"}
}
