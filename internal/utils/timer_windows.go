//go:build windows

package utils

import "syscall"

var (
	winmm               = syscall.NewLazyDLL("winmm.dll")
	procTimeBeginPeriod = winmm.NewProc("timeBeginPeriod")
	procTimeEndPeriod   = winmm.NewProc("timeEndPeriod")
)

// RequestHighResTimer asks the OS scheduler for 1ms timer granularity,
// paired with ReleaseHighResTimer. The recorder facade acquires this on
// Start and releases it on Pause/Dispose (spec §4.8, §9): without it,
// Sleep-based pacing in the capture loop quantizes to the default ~15ms
// scheduler tick, which is too coarse for frame-rate pacing above ~60fps.
func RequestHighResTimer() {
	procTimeBeginPeriod.Call(1)
}

// ReleaseHighResTimer undoes RequestHighResTimer. Must be called exactly
// once per RequestHighResTimer call; timeBeginPeriod/timeEndPeriod calls
// nest by reference count inside the OS.
func ReleaseHighResTimer() {
	procTimeEndPeriod.Call(1)
}
