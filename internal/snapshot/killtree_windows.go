//go:build windows

package snapshot

import (
	"os/exec"
	"strconv"
)

// killTree kills cmd's process and everything under it. A plain
// cmd.Process.Kill() only kills ffmpeg's own pid; taskkill /T walks the
// tree it spawned (ffmpeg occasionally forks helper processes for some
// hardware decoders).
func killTree(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid)).Run()
}
