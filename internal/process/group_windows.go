//go:build windows

package process

import (
	"os/exec"
	"strconv"
)

func configureProcessGroup(*exec.Cmd) {}

// killTree terminates the child and every descendant via taskkill.
func killTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
