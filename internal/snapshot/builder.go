// Package snapshot turns a Recorder session's rolling segment buffer into
// one finished MP4, grounded on the teacher's
// internal/capture/saver.go mergeVideoAudio/ConvertToMP4 shape, generalized
// from "one raw file, seek from EOF" to "concat-manifest of N segments,
// seek audio from start".
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"rewind/internal/segment"
	hiddenexec "rewind/internal/utils"
)

// MuxTimeout is the hard cancellation ceiling for one snapshot, combined
// with any caller-supplied cancellation (spec §4.7 step 2, §5).
const MuxTimeout = 60 * time.Second

// SegmentLister abstracts the subset of segment.Store the builder needs,
// so tests can substitute a fake without touching disk through ffmpeg.
type SegmentLister interface {
	Dir() string
	List() ([]segment.Segment, error)
}

// AudioSource describes one sidecar's availability for the mux step.
type AudioSource struct {
	Path    string
	Present bool
	Offset  time.Duration
}

// Request carries everything one snapshot invocation needs beyond what
// the builder already owns.
type Request struct {
	BufferSeconds    int
	SegmentSeconds   int
	SavePath         string
	Desktop          AudioSource
	Mic              AudioSource
	RecordingElapsed time.Duration
}

// Result is returned on success.
type Result struct {
	Filename string
	Path     string
	Bytes    int64
}

// Builder runs save_clip operations. Save keeps all per-call state local
// (uniquely named manifest and output files), so concurrent Save calls
// share nothing and Builder holds no mutex; the Recorder Facade does not
// serialize them.
type Builder struct {
	ffmpegPath string
	segments   SegmentLister
}

// New creates a Builder reading segments from segments and invoking
// ffmpegPath for the mux step.
func New(ffmpegPath string, segments SegmentLister) *Builder {
	return &Builder{ffmpegPath: ffmpegPath, segments: segments}
}

// Save runs the full snapshot protocol (§4.7): tail selection, concat
// manifest, audio seek math, mux invocation, manifest cleanup.
func (b *Builder) Save(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, MuxTimeout)
	defer cancel()

	segs, err := b.segments.List()
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("no segments")
	}

	segmentsToKeep := ceilDiv(req.BufferSeconds, req.SegmentSeconds)
	tail := tailOf(segs, segmentsToKeep)
	videoDuration := time.Duration(len(tail)) * time.Duration(req.SegmentSeconds) * time.Second

	outputName := outputFilename(req.SavePath)
	outputPath := filepath.Join(req.SavePath, outputName)

	manifestPath, err := b.writeManifest(tail)
	if err != nil {
		return nil, fmt.Errorf("write concat manifest: %w", err)
	}
	defer os.Remove(manifestPath)

	audioSeek := audioSeekOffset(req.RecordingElapsed, videoDuration, req.Desktop, req.Mic)

	args := buildMuxArgs(manifestPath, outputPath, req.Desktop, req.Mic, audioSeek)

	cmd := hiddenexec.Command(b.ffmpegPath, args...)
	cmd.Dir = b.segments.Dir()

	if err := runWithCancel(ctx, cmd); err != nil {
		return nil, fmt.Errorf("mux failed: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	slog.Info("snapshot saved", "path", outputPath, "bytes", info.Size())
	return &Result{Filename: outputName, Path: outputPath, Bytes: info.Size()}, nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return int(math.Ceil(float64(a) / float64(b)))
}

func tailOf(segs []segment.Segment, n int) []segment.Segment {
	if n >= len(segs) {
		return segs
	}
	return segs[len(segs)-n:]
}

// outputFilename builds clip_YYYYMMDD_HHMMSS_fff_<8-hex>.mp4; the 8-hex
// suffix disambiguates rapid repeat presses that land in the same second.
func outputFilename(savePath string) string {
	now := time.Now()
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("clip_%s_%03d_%s.mp4", now.Format("20060102_150405"), now.Nanosecond()/1e6, suffix)
}

func (b *Builder) writeManifest(tail []segment.Segment) (string, error) {
	path := filepath.Join(b.segments.Dir(), fmt.Sprintf("concat_%s.txt", uuid.New().String()[:8]))
	var sb strings.Builder
	for _, s := range tail {
		sb.WriteString(fmt.Sprintf("file '%s'\n", s.Name))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// audioSeekOffset implements §4.7 step 7 with the Open-Question clamp:
// the raw seek max(0, elapsed - videoDuration) is raised to the latest
// recorded start offset among the present sidecars, so it never seeks to
// a point before any present sidecar began recording (a sidecar that
// started late due to a device failure cannot be seeked into negative
// time). One seek value is shared by both audio inputs.
func audioSeekOffset(elapsed, videoDuration time.Duration, desktop, mic AudioSource) time.Duration {
	raw := elapsed - videoDuration
	if raw < 0 {
		raw = 0
	}

	clamp := desktop.Offset
	if mic.Present && (!desktop.Present || mic.Offset > clamp) {
		clamp = mic.Offset
	}
	if raw < clamp {
		return clamp
	}
	return raw
}

func buildMuxArgs(manifestPath, outputPath string, desktop, mic AudioSource, audioSeek time.Duration) []string {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", manifestPath,
	}

	seekSecs := fmt.Sprintf("%.3f", audioSeek.Seconds())

	switch {
	case desktop.Present && mic.Present:
		args = append(args,
			"-ss", seekSecs, "-i", desktop.Path,
			"-ss", seekSecs, "-i", mic.Path,
			"-c:v", "copy",
			"-filter_complex", "[1:a][2:a]amix=inputs=2:duration=first",
			"-c:a", "aac", "-b:a", "192k",
		)
	case desktop.Present:
		args = append(args,
			"-ss", seekSecs, "-i", desktop.Path,
			"-c:v", "copy", "-c:a", "aac", "-b:a", "192k", "-shortest",
		)
	case mic.Present:
		args = append(args,
			"-ss", seekSecs, "-i", mic.Path,
			"-c:v", "copy", "-c:a", "aac", "-b:a", "192k", "-shortest",
		)
	default:
		args = append(args, "-c:v", "copy")
	}

	args = append(args, "-movflags", "+faststart", outputPath)
	return args
}
