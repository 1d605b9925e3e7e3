package audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSidecarWritesValidWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	format := WaveFormat{SampleRate: 48000, Channels: 1, BitsPerSample: 16}

	s, err := NewSidecar(path, format, 0, 1.0)
	if err != nil {
		t.Fatalf("NewSidecar: %v", err)
	}

	samples := make([]byte, 8)
	for i := int16(0); i < 4; i++ {
		binary.LittleEndian.PutUint16(samples[i*2:], uint16(i*100))
	}
	if err := s.WriteChunk(samples); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != riffHeaderSize+len(samples) {
		t.Fatalf("unexpected file size %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("not a valid WAV file")
	}
	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if riffSize != uint32(36+len(samples)) {
		t.Fatalf("riff size = %d, want %d", riffSize, 36+len(samples))
	}
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if dataSize != uint32(len(samples)) {
		t.Fatalf("data size = %d, want %d", dataSize, len(samples))
	}
}

func TestSidecarStartOffsetRecorded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	format := WaveFormat{SampleRate: 48000, Channels: 1, BitsPerSample: 16}

	s, err := NewSidecar(path, format, 3*time.Second, 1.0)
	if err != nil {
		t.Fatalf("NewSidecar: %v", err)
	}
	defer s.Close()

	if s.StartOffset() != 3*time.Second {
		t.Fatalf("StartOffset() = %v, want 3s", s.StartOffset())
	}
}

func TestScaleInPlaceInt16Saturates(t *testing.T) {
	format := WaveFormat{BitsPerSample: 16}
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(int16(30000)))

	scaleInPlace(buf, 2.0, format)

	got := int16(binary.LittleEndian.Uint16(buf))
	if got != math.MaxInt16 {
		t.Fatalf("expected saturation at MaxInt16, got %d", got)
	}
}

func TestScaleInPlaceFloatClamps(t *testing.T) {
	format := WaveFormat{BitsPerSample: 32, Float: true}
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(0.9))

	scaleInPlace(buf, 2.0, format)

	got := math.Float32frombits(binary.LittleEndian.Uint32(buf))
	if got != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", got)
	}
}

func TestWriteChunkAfterCloseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	format := WaveFormat{SampleRate: 48000, Channels: 1, BitsPerSample: 16}
	s, _ := NewSidecar(path, format, 0, 1.0)
	s.Close()

	if err := s.WriteChunk([]byte{1, 2}); err == nil {
		t.Fatalf("expected error writing to closed sidecar")
	}
}
