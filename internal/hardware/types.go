package hardware

import (
	"fmt"

	"rewind/internal/display"
)

// FFmpegPath is the path to the FFmpeg executable, set by recorder.New
// before any detection or encoding runs.
var FFmpegPath = "bin/ffmpeg.exe"

// Encoder represents one named ffmpeg encoder (hardware or software) and
// which GPU, if any, backs it.
type Encoder struct {
	Name      string
	Codec     string
	Available bool
	GPUIndex  int // -1 for CPU encoders
}

// SystemInfo is the result of a full hardware detection pass: every GPU,
// every display, and every candidate encoder (plus the libx264 CPU
// fallback), each flagged with whether ffmpeg reports it as available.
type SystemInfo struct {
	GPUs     GPUList
	Displays display.DisplayList
	Encoders []Encoder
}

// GetEncoder finds an encoder by name.
func (s *SystemInfo) GetEncoder(name string) *Encoder {
	for i := range s.Encoders {
		if s.Encoders[i].Name == name {
			return &s.Encoders[i]
		}
	}
	return nil
}

// GetAvailableEncoders returns all encoders ffmpeg actually reports.
func (s *SystemInfo) GetAvailableEncoders() []Encoder {
	var result []Encoder
	for _, e := range s.Encoders {
		if e.Available {
			result = append(result, e)
		}
	}
	return result
}

// GetEncodersForDisplay returns available encoders usable for the GPU
// driving the given display, falling back to every available encoder if
// the display's GPU is unknown.
func (s *SystemInfo) GetEncodersForDisplay(displayIndex int) []Encoder {
	d := s.GetDisplay(displayIndex)
	if d == nil || d.GPUIndex < 0 {
		return s.GetAvailableEncoders()
	}

	var result []Encoder
	for _, e := range s.Encoders {
		if e.Available && (e.GPUIndex < 0 || e.GPUIndex == d.GPUIndex) {
			result = append(result, e)
		}
	}
	return result
}

// GetDisplay finds a display by index.
func (s *SystemInfo) GetDisplay(index int) *display.Display {
	return s.Displays.FindByIndex(index)
}

func (s *SystemInfo) String() string {
	return fmt.Sprintf("%d GPUs, %d displays, %d encoders available",
		len(s.GPUs), len(s.Displays), len(s.GetAvailableEncoders()))
}
