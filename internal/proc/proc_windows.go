//go:build windows

package proc

import (
	"os"
	"os/exec"
	"syscall"
)

func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// Terminate kills p. Windows has no graceful signal for console-less children.
func Terminate(p *os.Process) error {
	return p.Kill()
}

func Kill(p *os.Process) error {
	return p.Kill()
}
