package snapshot

import (
	"context"
	"fmt"
	"os/exec"
)

// runWithCancel starts cmd and waits for it, killing the whole process
// tree if ctx is cancelled before it exits (spec §4.7 step 9, §5: "the
// mux process is killed (entire process tree)").
func runWithCancel(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mux process: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		return err
	case <-ctx.Done():
		killTree(cmd)
		<-waitErr
		return ctx.Err()
	}
}
