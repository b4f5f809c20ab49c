//go:build !windows

package execute

import (
	"os/exec"
	"syscall"
)

func defaultShell() string {
	return "/bin/sh"
}

func shellCommand(shell, text string) (string, []string) {
	return shell, []string{"-c", text}
}

// setProcessGroup puts the child in its own process group so that the whole
// tree can be addressed on timeout.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree forcibly terminates the child and every descendant it spawned.
// The negative pid targets the process group created at spawn.
func killTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
