// Package input binds global hotkeys to the Recorder Facade. The teacher's
// go.mod already committed to github.com/robotn/gohook (transitively
// github.com/vcaesar/keycode) but its checked-in hotkey.go called raw
// user32.dll RegisterHotKey/GetMessageW syscalls instead, leaving the
// dependency unused; this rewrite finishes wiring it.
package input

import (
	"log/slog"

	hook "github.com/robotn/gohook"
)

// HotkeyManager owns the global key hook and dispatches to the two
// callbacks the Recorder Facade needs: record/stop (Ctrl+F9) and save
// clip (Ctrl+F10), matching the teacher's original key bindings.
type HotkeyManager struct {
	onRecordToggle func()
	onSaveClip     func()

	evChan chan hook.Event
}

func NewHotkeyManager() *HotkeyManager {
	return &HotkeyManager{}
}

// OnRecordToggle registers the callback fired by Ctrl+F9.
func (h *HotkeyManager) OnRecordToggle(f func()) { h.onRecordToggle = f }

// OnSaveClip registers the callback fired by Ctrl+F10.
func (h *HotkeyManager) OnSaveClip(f func()) { h.onSaveClip = f }

// Start registers the hotkeys and begins listening. Callbacks run on their
// own goroutine so a slow handler (e.g. SaveClip's mux) never stalls the
// hook's event loop.
func (h *HotkeyManager) Start() {
	hook.Register(hook.KeyDown, []string{"ctrl", "f9"}, func(e hook.Event) {
		slog.Info("hotkey fired", "binding", "ctrl+f9")
		if h.onRecordToggle != nil {
			go h.onRecordToggle()
		}
	})
	hook.Register(hook.KeyDown, []string{"ctrl", "f10"}, func(e hook.Event) {
		slog.Info("hotkey fired", "binding", "ctrl+f10")
		if h.onSaveClip != nil {
			go h.onSaveClip()
		}
	})

	h.evChan = hook.Start()
	slog.Info("global hotkeys registered", "record_toggle", "ctrl+f9", "save_clip", "ctrl+f10")
	go func() {
		<-hook.Process(h.evChan)
	}()
}

// Stop unregisters the hook and ends the event loop.
func (h *HotkeyManager) Stop() {
	hook.End()
}
