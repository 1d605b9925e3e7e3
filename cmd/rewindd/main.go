// Command rewindd is the rewind daemon: it owns no GUI (the Wails
// window/tray layer is an external, out-of-scope collaborator per spec §1),
// just hardware detection, the Recorder Facade, and the global hotkeys an
// external caller would otherwise drive through an RPC/IPC surface.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rewind/internal/capture"
	"rewind/internal/input"
	"rewind/internal/logging"
	"rewind/internal/recorder"
	"rewind/internal/utils"
)

const (
	instanceMutexName = "RewindInstanceMutex"
	saveClipTimeout   = 60 * time.Second
)

func getFFmpegPath() string {
	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		if p := filepath.Join(exeDir, "ffmpeg.exe"); fileExists(p) {
			return p
		}
		if p := filepath.Join(exeDir, "bin", "ffmpeg.exe"); fileExists(p) {
			return p
		}
	}
	if fileExists("bin/ffmpeg.exe") {
		return "bin/ffmpeg.exe"
	}
	if fileExists("ffmpeg.exe") {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func main() {
	logPath := logging.GetDefaultLogPath()
	if err := logging.Setup(logPath, true); err != nil {
		log.Printf("failed to setup logging: %v", err)
	}
	defer logging.Close()

	instance, err := utils.AcquireSingleInstance(instanceMutexName)
	if err != nil {
		slog.Error("another instance is already running", "error", err)
		os.Exit(1)
	}
	defer instance.Release()

	ffmpegPath := getFFmpegPath()
	slog.Info("using ffmpeg", "path", ffmpegPath)

	cfg := recorder.LoadConfig()
	if cfg.SavePath == "" {
		clipsDir, err := utils.GetClipsDir()
		if err != nil {
			slog.Error("failed to resolve clips directory", "error", err)
			os.Exit(1)
		}
		cfg.SavePath = clipsDir
	}

	rec, err := recorder.New(ffmpegPath, cfg)
	if err != nil {
		slog.Error("failed to construct recorder", "error", err)
		os.Exit(1)
	}

	rec.OnStateChanged(func(e recorder.StateChangedEvent) {
		slog.Info("recording_state_changed", "from", e.From, "to", e.To)
	})
	rec.OnClipSaved(func(e recorder.ClipSavedEvent) {
		slog.Info("clip_saved", "filename", e.Filename, "path", e.Path, "bytes", e.Bytes, "save_time_s", e.SaveTime)
	})
	rec.OnError(func(e recorder.ErrorEvent) {
		slog.Error("recorder error", "source", e.Source, "message", e.Message, "error", e.Err, "fatal", e.Fatal)
	})
	rec.OnStats(func(s capture.Stats) {
		slog.Debug("performance_stats", "effective_fps", s.EffectiveFPS, "success_rate", s.SuccessRate,
			"total_drops", s.TotalDrops, "recovery_attempts", s.RecoveryAttempts)
	})

	if err := rec.Start(); err != nil {
		slog.Error("failed to start recording", "error", err)
		os.Exit(1)
	}

	keys := input.NewHotkeyManager()
	keys.OnRecordToggle(func() {
		switch rec.State() {
		case recorder.StateRunning:
			if err := rec.Pause(); err != nil {
				slog.Error("pause failed", "error", err)
			}
		case recorder.StatePaused, recorder.StateIdle:
			if err := rec.Start(); err != nil {
				slog.Error("start failed", "error", err)
			}
		}
	})
	keys.OnSaveClip(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveClipTimeout)
		defer cancel()
		filename, err := rec.SaveClip(ctx)
		if err != nil {
			slog.Error("save clip failed", "error", err)
			return
		}
		slog.Info("clip saved via hotkey", "filename", filename)
	})
	keys.Start()
	defer keys.Stop()

	slog.Info("rewind daemon running", "save_path", cfg.SavePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	if err := rec.Dispose(); err != nil {
		slog.Warn("dispose failed", "error", err)
	}
}
