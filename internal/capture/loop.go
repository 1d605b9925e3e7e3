// Package capture drives the GPU desktop-duplication loop: paced frame
// acquisition, drop handling, and recovery, publishing onto a frame
// channel for the encoder writer to drain. This replaces the teacher's
// ffmpeg-ddagrab Capturer, which delegated pacing and duplication entirely
// to an external process; here the loop owns pacing itself so it can
// implement the spec's drop-tier and recovery contract directly.
package capture

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"rewind/internal/frame"
	"rewind/internal/framechan"
)

// Duplicator is the capture primitive the loop drives: a non-blocking
// "acquire next frame" with zero timeout (ok=false, err=nil means no new
// frame, an expected outcome) and a recovery path for device loss.
// hardware.Duplicator satisfies this; tests use a fake.
type Duplicator interface {
	AcquireFrame(dst []byte) (ok bool, err error)
	Recover() error
}

const (
	maxConsecutiveDropsBeforeRecovery = 10
	maxRecoveryAttempts               = 3
	statsEveryNFrames                 = 10 // multiplied by fps
)

// Stats is a snapshot of capture loop performance, emitted every
// 10*fps frames per spec §4.2.
type Stats struct {
	FramesProduced   uint64
	EffectiveFPS     float64
	SuccessRate      float64
	TotalDrops       uint64
	QueueDrops       uint64
	RecoveryAttempts uint64
	PoolHitRate      float64
}

// Loop owns one GPU duplication session and feeds framechan.Channel at a
// paced rate.
type Loop struct {
	pool *frame.Pool
	ch   *framechan.Channel
	dup  Duplicator

	fps       int
	frameSize int

	onStats func(Stats)
	onError func(err error, fatal bool)

	framesProduced   atomic.Uint64
	totalMisses      atomic.Uint64
	recoveryAttempts atomic.Uint64
	startedAt        time.Time
}

// New creates a capture Loop over an already-open Duplicator. frameSize
// must equal pool's buffer size (width*height*4).
func New(pool *frame.Pool, ch *framechan.Channel, dup Duplicator, fps, frameSize int) *Loop {
	return &Loop{
		pool:      pool,
		ch:        ch,
		dup:       dup,
		fps:       fps,
		frameSize: frameSize,
	}
}

// OnStats registers the performance-event sink.
func (l *Loop) OnStats(f func(Stats)) { l.onStats = f }

// OnError registers the error-event sink. fatal distinguishes "continue"
// from "stop", matching the facade's error event contract.
func (l *Loop) OnError(f func(err error, fatal bool)) { l.onError = f }

// Run drives the paced acquire/publish loop until ctx is cancelled. It
// runs on a dedicated, OS-thread-pinned goroutine because its blocking
// sleeps and short spins must not starve cooperative workers elsewhere in
// the process.
func (l *Loop) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	l.startedAt = time.Now()

	ticksPerFrame := time.Second / time.Duration(l.fps)
	nextFrame := time.Now()

	lastValid := l.pool.Rent()
	captureBuf := l.pool.Rent()
	haveLastValid := false

	consecutiveMisses := 0
	recoveryAttempt := 0

	defer func() {
		l.pool.Release(lastValid)
		l.pool.Release(captureBuf)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		l.paceUntil(ctx, nextFrame)
		nextFrame = l.rebaseIfSlipped(nextFrame, ticksPerFrame)

		ok, err := l.dup.AcquireFrame(captureBuf)
		if err != nil {
			l.handleCaptureError(err, &consecutiveMisses, &recoveryAttempt)
			nextFrame = nextFrame.Add(ticksPerFrame)
			continue
		}

		if ok {
			consecutiveMisses = 0
			recoveryAttempt = 0
			captureBuf, lastValid = lastValid, captureBuf
			haveLastValid = true
			l.publish(lastValid)
			l.framesProduced.Add(1)
			l.maybeEmitStats()
		} else {
			consecutiveMisses++
			l.totalMisses.Add(1)

			switch {
			case consecutiveMisses <= 2:
				if haveLastValid {
					l.publish(lastValid)
				}
			case consecutiveMisses < maxConsecutiveDropsBeforeRecovery:
				// skip publication this tick; let the segment absorb the gap.
			default:
				l.recover(&consecutiveMisses, &recoveryAttempt)
			}
		}

		nextFrame = nextFrame.Add(ticksPerFrame)
	}
}

// publish rents a fresh buffer from the pool, copies src into it, and
// hands it to the channel. A copy here (rather than handing src itself to
// the channel) keeps src safely reusable as the loop's cached "last
// valid" frame for republish on subsequent misses.
func (l *Loop) publish(src []byte) {
	out := l.pool.Rent()
	n := copy(out, src)
	l.ch.Publish(framechan.Frame{Buf: out, Valid: n})
}

func (l *Loop) paceUntil(ctx context.Context, deadline time.Time) {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if remaining > 2*time.Millisecond {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remaining - time.Millisecond):
			}
			continue
		}
		// short-spin for the last ~2ms for sub-millisecond pacing accuracy.
		if time.Now().After(deadline) {
			return
		}
	}
}

func (l *Loop) rebaseIfSlipped(next time.Time, ticksPerFrame time.Duration) time.Time {
	if time.Since(next) > 5*ticksPerFrame {
		return time.Now().Add(ticksPerFrame)
	}
	return next
}

func (l *Loop) handleCaptureError(err error, consecutiveMisses, recoveryAttempt *int) {
	slog.Error("capture iteration failed", "error", err)
	if l.onError != nil {
		l.onError(err, false)
	}
	time.Sleep(100 * time.Millisecond)
	l.recover(consecutiveMisses, recoveryAttempt)
}

// recover resets consecutiveMisses on a successful reacquire and increments
// recoveryAttempt only on failure (spec §4.2: "reset the consecutive-drop
// counter on success, increment the attempt counter on failure").
func (l *Loop) recover(consecutiveMisses, recoveryAttempt *int) {
	if *recoveryAttempt >= maxRecoveryAttempts {
		slog.Warn("capture recovery attempts exhausted, continuing to retry")
	}

	if err := l.dup.Recover(); err != nil {
		*recoveryAttempt++
		l.recoveryAttempts.Add(1)
		slog.Error("capture recovery failed", "attempt", *recoveryAttempt, "error", err)
		if l.onError != nil {
			l.onError(err, false)
		}
		return
	}
	slog.Info("capture duplication recovered")
	*consecutiveMisses = 0
}

func (l *Loop) maybeEmitStats() {
	produced := l.framesProduced.Load()
	threshold := uint64(statsEveryNFrames * l.fps)
	if threshold == 0 || produced == 0 || produced%threshold != 0 {
		return
	}
	if l.onStats == nil {
		return
	}

	elapsed := time.Since(l.startedAt).Seconds()
	misses := l.totalMisses.Load()
	attempts := float64(produced + misses)

	stats := Stats{
		FramesProduced:   produced,
		SuccessRate:      1,
		TotalDrops:       misses,
		QueueDrops:       l.ch.Dropped(),
		RecoveryAttempts: l.recoveryAttempts.Load(),
		PoolHitRate:      l.pool.Stats().HitRate(),
	}
	if elapsed > 0 {
		stats.EffectiveFPS = float64(produced) / elapsed
	}
	if attempts > 0 {
		stats.SuccessRate = float64(produced) / attempts
	}
	l.onStats(stats)
}
