package encoder

import (
	"strings"
	"testing"

	"rewind/internal/hardware"
	"rewind/internal/segment"
)

func TestBuildCaptureArgsIncludesRawVideoInput(t *testing.T) {
	dir := t.TempDir()
	store, err := segment.New(dir)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}

	args := BuildCaptureArgs(CaptureConfig{
		Width: 1920, Height: 1080, FPS: 60,
		Store:       store,
		SegmentSecs: 10,
	})

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "1920x1080") {
		t.Fatalf("expected resolution in args, got %q", joined)
	}
	if !strings.Contains(joined, "-segment_time 10") {
		t.Fatalf("expected segment_time 10, got %q", joined)
	}
	if !strings.Contains(joined, store.Pattern()) {
		t.Fatalf("expected segment pattern in args, got %q", joined)
	}
}

func TestArgsForEncoderFallsBackToCPU(t *testing.T) {
	args := ArgsForEncoder(nil, hardware.VendorUnknown)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "libx264") {
		t.Fatalf("expected libx264 fallback, got %q", joined)
	}
}

func TestArgsForEncoderNVENC(t *testing.T) {
	enc := &hardware.Encoder{Name: "h264_nvenc", Codec: "h264"}
	args := ArgsForEncoder(enc, hardware.VendorNVIDIA)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "h264_nvenc") || !strings.Contains(joined, "-preset p4") {
		t.Fatalf("unexpected nvenc args: %q", joined)
	}
}
