package audio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"
	"time"
)

// sidecarBufSize matches the teacher's 8MB write buffer scale for video
// saves, cut down to the 64KiB spec calls for per-chunk audio writes.
const sidecarBufSize = 64 * 1024

// Sidecar is one append-only WAV file fed directly from an audio device
// callback. Unlike the teacher's in-RAM mixedBuffer, each source gets its
// own file and its own start offset, because the Snapshot Builder needs to
// seek each source independently (§4.7).
type Sidecar struct {
	mu          sync.Mutex
	file        *os.File
	bw          *bufio.Writer
	format      WaveFormat
	startOffset time.Duration
	volume      float32
	dataBytes   uint32
	closed      bool
}

// NewSidecar creates path, writes a placeholder WAV header, and records
// startOffset as the moment capture is about to begin, measured against
// the recorder's own monotonic clock.
func NewSidecar(path string, format WaveFormat, startOffset time.Duration, volume float32) (*Sidecar, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create sidecar %s: %w", path, err)
	}
	if err := writeRIFFHeader(f, format); err != nil {
		f.Close()
		return nil, fmt.Errorf("write wav header %s: %w", path, err)
	}

	return &Sidecar{
		file:        f,
		bw:          bufio.NewWriterSize(f, sidecarBufSize),
		format:      format,
		startOffset: startOffset,
		volume:      clampVolume(volume),
	}, nil
}

func clampVolume(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 2.0 {
		return 2.0
	}
	return v
}

// WriteChunk scales chunk in place (if volume differs meaningfully from
// 1.0) and appends it to the sidecar. chunk must not be reused by the
// caller concurrently with this call; the audio device callback owns it
// for the duration of the call only.
func (s *Sidecar) WriteChunk(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("sidecar closed")
	}

	if math.Abs(float64(s.volume)-1.0) > 0.01 {
		scaleInPlace(chunk, s.volume, s.format)
	}

	n, err := s.bw.Write(chunk)
	s.dataBytes += uint32(n)
	if err != nil {
		return fmt.Errorf("write sidecar chunk: %w", err)
	}
	return nil
}

// scaleInPlace applies volume as a saturating multiply, in the PCM layout
// WriteChunk was given: 16-bit integer samples saturate in i16 range; IEEE
// float samples clamp to [-1, 1].
func scaleInPlace(chunk []byte, volume float32, format WaveFormat) {
	if format.Float && format.BitsPerSample == 32 {
		for i := 0; i+4 <= len(chunk); i += 4 {
			bits := binary.LittleEndian.Uint32(chunk[i : i+4])
			sample := math.Float32frombits(bits) * volume
			if sample > 1 {
				sample = 1
			} else if sample < -1 {
				sample = -1
			}
			binary.LittleEndian.PutUint32(chunk[i:i+4], math.Float32bits(sample))
		}
		return
	}

	if format.BitsPerSample == 16 {
		for i := 0; i+2 <= len(chunk); i += 2 {
			sample := int32(int16(binary.LittleEndian.Uint16(chunk[i : i+2])))
			scaled := int32(float32(sample) * volume)
			if scaled > math.MaxInt16 {
				scaled = math.MaxInt16
			} else if scaled < math.MinInt16 {
				scaled = math.MinInt16
			}
			binary.LittleEndian.PutUint16(chunk[i:i+2], uint16(int16(scaled)))
		}
	}
}

// StartOffset returns the moment this sidecar began recording, relative to
// the recorder's monotonic start.
func (s *Sidecar) StartOffset() time.Duration { return s.startOffset }

// Close flushes the buffered writer, patches the WAV header with the final
// byte count, and closes the file. Safe to call multiple times.
func (s *Sidecar) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.bw.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("flush sidecar: %w", err)
	}
	if err := patchRIFFSizes(s.file, s.dataBytes); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
