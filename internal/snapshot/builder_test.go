package snapshot

import (
	"strings"
	"testing"
	"time"

	"rewind/internal/segment"
)

func segs(ordinals ...int) []segment.Segment {
	out := make([]segment.Segment, len(ordinals))
	for i, o := range ordinals {
		out[i] = segment.Segment{Name: "x", Ordinal: o}
	}
	return out
}

func TestTailOfSelectsLastN(t *testing.T) {
	got := tailOf(segs(0, 1, 2, 3, 4), 3)
	if len(got) != 3 || got[0].Ordinal != 2 {
		t.Fatalf("unexpected tail: %+v", got)
	}
}

func TestTailOfShorterThanRequested(t *testing.T) {
	got := tailOf(segs(0, 1), 5)
	if len(got) != 2 {
		t.Fatalf("expected all 2 segments, got %d", len(got))
	}
}

func TestCeilDiv(t *testing.T) {
	if ceilDiv(30, 10) != 3 {
		t.Fatalf("expected 3")
	}
	if ceilDiv(25, 10) != 3 {
		t.Fatalf("expected ceil(2.5)=3")
	}
}

func TestAudioSeekOffsetUsesRawWhenPastLateStart(t *testing.T) {
	elapsed := 40 * time.Second
	videoDuration := 30 * time.Second
	desktop := AudioSource{Present: true, Offset: 5 * time.Second}

	got := audioSeekOffset(elapsed, videoDuration, desktop, AudioSource{})
	// raw = 10s, clamp = 5s, raw > clamp so raw wins
	if got != 10*time.Second {
		t.Fatalf("expected 10s, got %v", got)
	}
}

func TestAudioSeekOffsetClampsWhenRawBelowStart(t *testing.T) {
	elapsed := 32 * time.Second
	videoDuration := 30 * time.Second
	desktop := AudioSource{Present: true, Offset: 5 * time.Second}

	got := audioSeekOffset(elapsed, videoDuration, desktop, AudioSource{})
	// raw = 2s, but desktop didn't start until 5s in, so clamp to 5s
	if got != 5*time.Second {
		t.Fatalf("expected clamp to 5s, got %v", got)
	}
}

func TestAudioSeekOffsetNeverNegative(t *testing.T) {
	got := audioSeekOffset(5*time.Second, 30*time.Second, AudioSource{}, AudioSource{})
	if got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestBuildMuxArgsBothSources(t *testing.T) {
	args := buildMuxArgs("manifest.txt", "out.mp4", AudioSource{Present: true, Path: "d.wav"}, AudioSource{Present: true, Path: "m.wav"}, 0)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "amix=inputs=2") {
		t.Fatalf("expected amix for dual audio: %q", joined)
	}
	if !strings.Contains(joined, "+faststart") {
		t.Fatalf("expected faststart: %q", joined)
	}
}

func TestBuildMuxArgsNoAudio(t *testing.T) {
	args := buildMuxArgs("manifest.txt", "out.mp4", AudioSource{}, AudioSource{}, 0)
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "aac") {
		t.Fatalf("no-audio case should not transcode audio: %q", joined)
	}
}
