package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"rewind/internal/audio"
	"rewind/internal/capture"
	"rewind/internal/display"
	"rewind/internal/encoder"
	"rewind/internal/frame"
	"rewind/internal/framechan"
	"rewind/internal/hardware"
	"rewind/internal/segment"
	"rewind/internal/snapshot"
	"rewind/internal/utils"
)

const (
	bytesPerPixel   = 4
	frameChanDepth  = 3
	warmupBuffers   = 4
	writerDrainSoft = 2 * time.Second
	encoderExitSoft = 5 * time.Second
)

// Recorder is the session facade: one instance per recording session,
// driving capture, encoding, audio, retention, and snapshot through the
// state machine in spec §4.8. Grounded on the teacher's internal/app.App:
// a single mutex, a state field that is the ground truth other methods
// check, and named operations instead of exposed collaborators.
type Recorder struct {
	mu sync.Mutex

	cfg        Config
	ffmpegPath string
	sysInfo    *hardware.SystemInfo

	state State

	captureCfg *capture.Config
	pool       *frame.Pool
	ch         *framechan.Channel
	dup        *hardware.Duplicator
	loop       *capture.Loop
	loopCancel context.CancelFunc
	loopDone   chan struct{}

	encProc    *encoder.Process
	writerDone chan struct{}

	store     *segment.Store
	retention *segment.Retention
	audioMgr  *audio.Manager
	builder   *snapshot.Builder

	startedAt      time.Time
	lastSaveTime   time.Time
	timerAcquired  bool
	encodingBroken bool

	onStateChanged func(StateChangedEvent)
	onClipSaved    func(ClipSavedEvent)
	onError        func(ErrorEvent)
	onStats        func(capture.Stats)
}

// New validates cfg, detects hardware, and returns an Idle Recorder ready
// for Start. Hardware detection failure and config validation failure are
// both fatal at construction (spec §7).
func New(ffmpegPath string, cfg Config) (*Recorder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	hardware.FFmpegPath = ffmpegPath
	display.FFmpegPath = ffmpegPath
	sysInfo, err := hardware.Detect()
	if err != nil {
		return nil, fmt.Errorf("hardware detection failed: %w", err)
	}

	return &Recorder{
		cfg:        cfg,
		ffmpegPath: ffmpegPath,
		sysInfo:    sysInfo,
		state:      StateIdle,
		builder:    nil,
	}, nil
}

// OnStateChanged, OnClipSaved, OnError, OnStats register the four named
// event sinks (spec §4.8).
func (r *Recorder) OnStateChanged(f func(StateChangedEvent)) { r.onStateChanged = f }
func (r *Recorder) OnClipSaved(f func(ClipSavedEvent))        { r.onClipSaved = f }
func (r *Recorder) OnError(f func(ErrorEvent))                { r.onError = f }
func (r *Recorder) OnStats(f func(capture.Stats))             { r.onStats = f }

// State returns the current state under lock.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) setState(s State) {
	from := r.state
	r.state = s
	if r.onStateChanged != nil && from != s {
		go r.onStateChanged(StateChangedEvent{From: from, To: s})
	}
}

func (r *Recorder) emitError(source ErrorSource, msg string, err error, fatal bool) {
	slog.Error(msg, "source", source, "error", err, "fatal", fatal)
	if r.onError != nil {
		go r.onError(ErrorEvent{Source: source, Message: msg, Err: err, Fatal: fatal})
	}
}

// Start transitions Idle/Paused -> Running (spec §4.8).
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateIdle && r.state != StatePaused {
		return fmt.Errorf("cannot start from state %s", r.state)
	}

	resuming := r.state == StatePaused
	revertState := StateIdle
	if resuming {
		revertState = StatePaused
	}
	r.setState(StateStarting)

	if err := os.MkdirAll(r.cfg.SavePath, 0755); err != nil {
		r.setState(revertState)
		return fmt.Errorf("create save path: %w", err)
	}

	if !resuming {
		captureCfg := capture.DefaultConfig()
		captureCfg.MonitorIndex = r.cfg.MonitorIndex
		captureCfg.FPS = r.cfg.FPS
		if err := captureCfg.Resolve(r.sysInfo); err != nil {
			r.setState(revertState)
			return fmt.Errorf("resolve display: %w", err)
		}
		r.captureCfg = captureCfg

		width, height := captureCfg.Display().Width, captureCfg.Display().Height
		frameSize := width * height * bytesPerPixel
		r.pool = frame.New(frameSize, warmupBuffers*2)
		r.pool.Warmup(warmupBuffers)

		store, err := segment.New(r.cfg.SavePath)
		if err != nil {
			r.setState(revertState)
			return fmt.Errorf("create segment store: %w", err)
		}
		r.store = store
		r.builder = snapshot.New(r.ffmpegPath, r.store)
		r.startedAt = time.Now()

		bps := r.cfg.EstimatedBytesPerSecond()
		slog.Info("estimated buffer disk footprint",
			"bytes_per_second", bps, "buffer_seconds", r.cfg.BufferSeconds,
			"estimated_bytes", bps*r.cfg.BufferSeconds)
	}

	// Channel.Close is terminal (no reopen), so a resumed session needs a
	// fresh channel rather than reusing the one Pause closed; the pool
	// backing it is unaffected and carries over.
	r.ch = framechan.New(r.pool, frameChanDepth)

	utils.RequestHighResTimer()
	r.timerAcquired = true

	if err := r.startAudio(); err != nil {
		r.emitError(SourceAudio, "audio capture failed to start", err, false)
	}

	dup, err := hardware.OpenDuplicator(r.captureCfg.MonitorIndex)
	if err != nil {
		r.teardownPartialStart()
		r.setState(revertState)
		return fmt.Errorf("open duplication surface: %w", err)
	}
	r.dup = dup

	if err := r.startEncoder(); err != nil {
		dup.Close()
		r.dup = nil
		r.teardownPartialStart()
		r.setState(revertState)
		return fmt.Errorf("start encoder process: %w", err)
	}

	width, height := r.captureCfg.Display().Width, r.captureCfg.Display().Height
	r.loop = capture.New(r.pool, r.ch, r.dup, r.cfg.FPS, width*height*bytesPerPixel)
	r.loop.OnStats(func(s capture.Stats) {
		if r.onStats != nil {
			r.onStats(s)
		}
	})
	r.loop.OnError(func(err error, fatal bool) {
		r.emitError(SourceCapture, "capture iteration error", err, fatal)
	})

	ctx, cancel := context.WithCancel(context.Background())
	r.loopCancel = cancel
	r.loopDone = make(chan struct{})
	go func() {
		r.loop.Run(ctx)
		close(r.loopDone)
	}()

	r.retention = segment.NewRetention(r.store, maxSegmentsToKeep(r.cfg.BufferSeconds, segmentSeconds))
	r.retention.Start()

	r.encodingBroken = false
	r.startWriterTask()

	r.setState(StateRunning)
	return nil
}

func (r *Recorder) startAudio() error {
	if !r.cfg.RecordAudio {
		return nil
	}
	if r.audioMgr == nil {
		mgr, err := audio.NewManager()
		if err != nil {
			return err
		}
		r.audioMgr = mgr
	}
	return r.audioMgr.Start(audio.StartOptions{
		OutputDir:       r.cfg.SavePath,
		DesktopDeviceID: r.cfg.DesktopDeviceID,
		MicDeviceID:     r.cfg.MicrophoneDeviceID,
		RecordDesktop:   r.cfg.RecordDesktopAudio,
		RecordMic:       r.cfg.RecordMicrophone,
		DesktopVolume:   r.cfg.DesktopVolume,
		MicVolume:       r.cfg.MicrophoneVolume,
		StartedAt:       r.startedAt,
	})
}

func (r *Recorder) startEncoder() error {
	encArgs, _ := r.cfg.encoderArgs(r.sysInfo)

	startNumber := 0
	if segs, err := r.store.List(); err == nil && len(segs) > 0 {
		startNumber = segs[len(segs)-1].Ordinal + 1
	}

	width, height := r.captureCfg.Display().Width, r.captureCfg.Display().Height
	args := encoder.BuildCaptureArgsWithEncoderFragment(encoder.CaptureConfig{
		Width:       width,
		Height:      height,
		FPS:         r.cfg.FPS,
		Store:       r.store,
		SegmentSecs: segmentSeconds,
		StartNumber: startNumber,
	}, encArgs)

	proc := encoder.NewProcess(r.ffmpegPath, args)
	if err := proc.Start(); err != nil {
		return err
	}
	r.encProc = proc
	return nil
}

// startWriterTask drains the frame channel and feeds the encoder's
// stdin. It exits on channel close or on a broken pipe, without stalling
// capture (spec §5, §7 "Encoder pipe broken mid-session").
func (r *Recorder) startWriterTask() {
	r.writerDone = make(chan struct{})
	ch := r.ch
	proc := r.encProc

	go func() {
		defer close(r.writerDone)
		for {
			f, ok := ch.Next()
			if !ok {
				return
			}
			err := proc.Write(f.Buf[:f.Valid])
			r.pool.Release(f.Buf)
			if err != nil {
				r.mu.Lock()
				r.encodingBroken = true
				r.mu.Unlock()
				r.emitError(SourceEncoder, "encoder pipe broken", err, false)
				return
			}
		}
	}()
}

func (r *Recorder) teardownPartialStart() {
	if r.timerAcquired {
		utils.ReleaseHighResTimer()
		r.timerAcquired = false
	}
	if r.audioMgr != nil {
		r.audioMgr.Stop()
	}
}

// Pause transitions Running -> Paused (spec §4.8). Segments stay on disk.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRunning {
		return fmt.Errorf("cannot pause from state %s", r.state)
	}

	if r.retention != nil {
		r.retention.Stop()
		r.retention = nil
	}

	if r.loopCancel != nil {
		r.loopCancel()
	}
	r.waitWithTimeout(r.loopDone, writerDrainSoft)

	r.ch.Close()
	r.waitWithTimeout(r.writerDone, writerDrainSoft)

	if r.encProc != nil {
		r.encProc.CloseStdin()
		if err := r.encProc.WaitGraceful(encoderExitSoft); err != nil {
			slog.Warn("encoder did not exit gracefully", "error", err)
		}
		r.encProc = nil
	}

	if r.audioMgr != nil {
		r.audioMgr.Stop()
	}

	if r.timerAcquired {
		utils.ReleaseHighResTimer()
		r.timerAcquired = false
	}

	if r.dup != nil {
		r.dup.Close()
		r.dup = nil
	}

	r.setState(StatePaused)
	return nil
}

func (r *Recorder) waitWithTimeout(done <-chan struct{}, timeout time.Duration) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// SaveClip runs the Snapshot Builder; may be called only when Running
// (spec §4.8).
func (r *Recorder) SaveClip(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return "", fmt.Errorf("not running")
	}
	if r.encodingBroken {
		r.mu.Unlock()
		return "", fmt.Errorf("no encoding active")
	}
	startedAt := r.startedAt
	cfg := r.cfg
	audioMgr := r.audioMgr
	r.mu.Unlock()

	start := time.Now()

	req := snapshot.Request{
		BufferSeconds:    cfg.BufferSeconds,
		SegmentSeconds:   segmentSeconds,
		SavePath:         cfg.SavePath,
		RecordingElapsed: time.Since(startedAt),
	}
	if audioMgr != nil {
		if p, ok := audioMgr.DesktopPath(cfg.SavePath); ok {
			req.Desktop = snapshot.AudioSource{Path: p, Present: true, Offset: audioMgr.DesktopOffset()}
		}
		if p, ok := audioMgr.MicPath(cfg.SavePath); ok {
			req.Mic = snapshot.AudioSource{Path: p, Present: true, Offset: audioMgr.MicOffset()}
		}
	}

	result, err := r.builder.Save(ctx, req)
	if err != nil {
		r.emitError(SourceSnapshot, "snapshot save failed", err, false)
		return "", err
	}

	r.mu.Lock()
	r.lastSaveTime = time.Now()
	r.mu.Unlock()

	if r.onClipSaved != nil {
		go r.onClipSaved(ClipSavedEvent{
			Filename: result.Filename,
			Path:     result.Path,
			Bytes:    result.Bytes,
			SaveTime: time.Since(start).Seconds(),
		})
	}
	return result.Filename, nil
}

// Dispose tears everything down, including erasing the session's
// segments (spec §4.8).
func (r *Recorder) Dispose() error {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()

	if state == StateRunning {
		if err := r.Pause(); err != nil {
			slog.Warn("pause during dispose failed", "error", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.retention != nil {
		r.retention.Stop()
		r.retention = nil
	}
	if r.store != nil {
		if err := r.store.Erase(); err != nil {
			slog.Warn("segment erase during dispose failed", "error", err)
		}
		r.store = nil
	}
	if r.audioMgr != nil {
		r.audioMgr.Close()
		r.audioMgr = nil
	}

	r.setState(StateDisposed)
	return nil
}

// maxSegmentsToKeep implements spec §4.4's retention formula: ceil(buffer
// / segment_duration) + 2 safety margin.
func maxSegmentsToKeep(bufferSeconds, segDuration int) int {
	if segDuration <= 0 {
		return 2
	}
	keep := (bufferSeconds + segDuration - 1) / segDuration
	return keep + 2
}
