package capture

import (
	"fmt"
	"log/slog"

	"rewind/internal/display"
	"rewind/internal/hardware"
)

// Config selects which monitor the capture loop duplicates and at what
// rate. Encoder choice and output paths live in the recorder and encoder
// packages now; this Config is scoped to exactly what the duplication
// surface needs.
type Config struct {
	MonitorIndex int
	FPS          int

	resolved *display.Display
}

// DefaultConfig mirrors the teacher's defaults for the fields that
// survive into the capture loop.
func DefaultConfig() *Config {
	return &Config{
		MonitorIndex: 0,
		FPS:          60,
	}
}

// Resolve binds MonitorIndex to a concrete Display, clamping to the
// primary display if the requested index is out of range (spec §6:
// "warning for monitor index out of range - fall back to primary").
func (c *Config) Resolve(sysInfo *hardware.SystemInfo) error {
	d := sysInfo.GetDisplay(c.MonitorIndex)
	if d == nil {
		slog.Warn("monitor index out of range, falling back to primary", "requested", c.MonitorIndex)
		d = sysInfo.Displays.FindPrimary()
		if d == nil {
			return fmt.Errorf("no displays detected")
		}
		c.MonitorIndex = d.Index
	}
	c.resolved = d
	return c.Validate()
}

// Display returns the resolved display. Only valid after Resolve.
func (c *Config) Display() *display.Display { return c.resolved }

func (c *Config) Validate() error {
	if c.resolved == nil {
		return fmt.Errorf("display is required")
	}
	if c.FPS < 15 || c.FPS > 144 {
		return fmt.Errorf("fps must be between 15 and 144")
	}
	return nil
}
