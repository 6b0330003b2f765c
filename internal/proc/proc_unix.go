//go:build !windows

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

// Detach starts the command in a new session so that it survives the
// controller's terminal going away and can be signalled as a group.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// Terminate sends SIGTERM to the process group led by p.
func Terminate(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		return p.Signal(syscall.SIGTERM)
	}
	return nil
}

// Kill sends SIGKILL to the process group led by p.
func Kill(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}
