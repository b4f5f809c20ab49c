//go:build windows

package execute

import (
	"os/exec"
	"strconv"
	"syscall"
)

func defaultShell() string {
	return "cmd"
}

func shellCommand(shell, text string) (string, []string) {
	return shell, []string{"/C", text}
}

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// killTree terminates the child and its descendants via taskkill, which walks
// the process tree on Windows.
func killTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	_ = kill.Run()
}
