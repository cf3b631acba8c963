//go:build !windows

package localexec

import (
	"os/exec"
	"syscall"
)

// configureProc runs the child in its own process group so cancellation also
// reaches anything it spawned, such as the programs of a shell pipeline.
func configureProc(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

func defaultShell() []string {
	return []string{"/bin/sh", "-c"}
}
