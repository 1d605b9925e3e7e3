package encoder

import (
	"fmt"
	"strconv"

	"rewind/internal/hardware"
	"rewind/internal/segment"
)

// CaptureConfig describes one long-running segmented encode session: raw
// BGRA frames in on stdin, numbered .mkv segments out.
type CaptureConfig struct {
	Width, Height int
	FPS           int
	Encoder       *hardware.Encoder
	GPU           *hardware.GPU
	Store         *segment.Store
	SegmentSecs   int
	// StartNumber continues segment numbering after a pause/resume cycle
	// instead of restarting the muxer's own counter at 0, which would
	// collide with already-written segment files under the same prefix.
	// 0 means "start at 0" (ffmpeg's own default).
	StartNumber int
}

// BuildCaptureArgs builds the ffmpeg argument list for the capture encode
// process: raw BGRA input matching the frame buffer pool's exact size,
// the vendor encoder arg matrix at default rates, and a segment muxer
// writing into the Segment Store's naming pattern. Callers that carry a
// configured bitrate/CRF/preset (the recorder facade) use
// BuildCaptureArgsWithEncoderFragment instead.
func BuildCaptureArgs(cfg CaptureConfig) []string {
	vendor := hardware.VendorUnknown
	if cfg.GPU != nil {
		vendor = cfg.GPU.Vendor
	}
	return BuildCaptureArgsWithEncoderFragment(cfg, ArgsForEncoder(cfg.Encoder, vendor))
}

// BuildCaptureArgsWithEncoderFragment is BuildCaptureArgs but takes an
// already-resolved encoder argument fragment (from
// ArgsForEncoderWithRates or SoftwareArgsForCodec), so the caller's
// configured bitrate/CRF/preset flow through instead of this package's
// defaults.
func BuildCaptureArgsWithEncoderFragment(cfg CaptureConfig, encoderArgs []string) []string {
	args := []string{
		"-hide_banner",
		"-f", "rawvideo",
		"-pixel_format", "bgra",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FPS),
		"-i", "-",
	}

	args = append(args, encoderArgs...)

	args = append(args,
		"-pix_fmt", "yuv420p",
		"-g", strconv.Itoa(cfg.FPS),
		"-f", "segment",
		"-segment_time", strconv.Itoa(cfg.SegmentSecs),
		"-reset_timestamps", "1",
		"-segment_format", "matroska",
	)
	if cfg.StartNumber > 0 {
		args = append(args, "-segment_start_number", strconv.Itoa(cfg.StartNumber))
	}
	args = append(args, cfg.Store.Pattern())
	return args
}
