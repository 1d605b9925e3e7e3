// Package recorder wires capture, encoder, segment, audio, and snapshot
// into one session-scoped facade, grounded on the teacher's internal/app
// App: a mutex-guarded struct whose state field is the single source of
// truth, driven through named operations rather than exposing its
// collaborators directly.
package recorder

import (
	"fmt"
	"log/slog"

	"rewind/internal/audio"
	"rewind/internal/encoder"
	"rewind/internal/hardware"
)

// Codec is the video codec family requested in Config, independent of
// which concrete ffmpeg encoder backs it (spec §6: encoder is a codec x
// vendor pair).
type Codec string

const (
	CodecH264 Codec = "h264"
	CodecH265 Codec = "h265"
	CodecVP9  Codec = "vp9"
	CodecAV1  Codec = "av1"
)

// VendorPreference selects which GPU family's encoder to prefer, or
// Software/Auto.
type VendorPreference string

const (
	VendorAuto     VendorPreference = "auto"
	VendorNVIDIA   VendorPreference = "nvidia"
	VendorAMD      VendorPreference = "amd"
	VendorIntel    VendorPreference = "intel"
	VendorSoftware VendorPreference = "software"
)

// Preset is the software (x264/x265) speed/quality tradeoff knob; ignored
// for hardware encoders (spec §6).
type Preset string

const (
	PresetUltrafast Preset = "ultrafast"
	PresetVeryfast  Preset = "veryfast"
	PresetFaster    Preset = "faster"
	PresetFast      Preset = "fast"
	PresetMedium    Preset = "medium"
	PresetSlow      Preset = "slow"
)

// segmentSeconds is fixed by spec §6 ("segment_time = 10"); it is not
// part of the configuration surface.
const segmentSeconds = 10

// Config is the full configuration surface taken by New (spec §6). JSON
// tags match the teacher's app.Config persistence convention
// (internal/app/config.go), since this struct is what LoadConfig/SaveConfig
// round-trip to settings.json.
type Config struct {
	BufferSeconds int    `json:"bufferSeconds"`
	FPS           int    `json:"fps"`
	BitrateBps    int    `json:"bitrateBps"`
	CRF           int    `json:"crf"`
	Preset        Preset `json:"preset"`

	UseHardwareEncoding bool             `json:"useHardwareEncoding"`
	Codec               Codec            `json:"codec"`
	VendorPreference    VendorPreference `json:"vendorPreference"`

	SavePath     string `json:"savePath"`
	MonitorIndex int    `json:"monitorIndex"`

	RecordAudio        bool    `json:"recordAudio"`
	RecordDesktopAudio bool    `json:"recordDesktopAudio"`
	RecordMicrophone   bool    `json:"recordMicrophone"`
	DesktopVolume      float32 `json:"desktopVolume"`
	MicrophoneVolume   float32 `json:"microphoneVolume"`
	DesktopDeviceID    string  `json:"desktopDeviceId"`
	MicrophoneDeviceID string  `json:"microphoneDeviceId"`
}

// DefaultConfig returns the spec's documented defaults (§6).
func DefaultConfig() Config {
	return Config{
		BufferSeconds:       30,
		FPS:                 60,
		BitrateBps:          8_000_000,
		CRF:                 23,
		Preset:              PresetUltrafast,
		UseHardwareEncoding: true,
		Codec:               CodecH264,
		VendorPreference:    VendorAuto,
		MonitorIndex:        0,
		RecordAudio:         false,
		RecordDesktopAudio:  false,
		RecordMicrophone:    false,
		DesktopVolume:       1.0,
		MicrophoneVolume:    1.0,
	}
}

// Validate checks the bounds in spec §6. Out-of-range buffer duration, fps,
// bitrate and CRF are clamped with a warning rather than rejected, and the
// two volumes are clamped to [0, 2] silently; MonitorIndex is not checked
// here (capture.Config.Resolve falls back to the primary display for an
// out-of-range index). Structurally wrong enums and a
// missing save path are hard construction errors, since the source has no
// sane fallback for either (spec §7: "Settings validation errors: Fatal at
// construction; never applied").
func (c *Config) Validate() error {
	if c.SavePath == "" {
		return fmt.Errorf("save_path is required")
	}

	if c.BufferSeconds < 5 || c.BufferSeconds > 300 {
		clamped := clampInt(c.BufferSeconds, 5, 300)
		slog.Warn("buffer_seconds out of range, clamping", "requested", c.BufferSeconds, "clamped", clamped)
		c.BufferSeconds = clamped
	}
	if c.FPS < 15 || c.FPS > 144 {
		clamped := clampInt(c.FPS, 15, 144)
		slog.Warn("fps out of range, clamping", "requested", c.FPS, "clamped", clamped)
		c.FPS = clamped
	}
	if c.BitrateBps < 500_000 || c.BitrateBps > 50_000_000 {
		clamped := clampInt(c.BitrateBps, 500_000, 50_000_000)
		slog.Warn("bitrate_bps out of range, clamping", "requested", c.BitrateBps, "clamped", clamped)
		c.BitrateBps = clamped
	}
	if c.CRF < 0 || c.CRF > 51 {
		clamped := clampInt(c.CRF, 0, 51)
		slog.Warn("crf out of range, clamping", "requested", c.CRF, "clamped", clamped)
		c.CRF = clamped
	}
	c.DesktopVolume = clampFloat(c.DesktopVolume, 0.0, 2.0)
	c.MicrophoneVolume = clampFloat(c.MicrophoneVolume, 0.0, 2.0)

	switch c.Codec {
	case CodecH264, CodecH265, CodecVP9, CodecAV1:
	default:
		return fmt.Errorf("unknown codec %q", c.Codec)
	}

	switch c.VendorPreference {
	case VendorAuto, VendorNVIDIA, VendorAMD, VendorIntel, VendorSoftware:
	default:
		return fmt.Errorf("unknown vendor preference %q", c.VendorPreference)
	}

	switch c.Preset {
	case "", PresetUltrafast, PresetVeryfast, PresetFaster, PresetFast, PresetMedium, PresetSlow:
	default:
		return fmt.Errorf("unknown preset %q", c.Preset)
	}
	if c.Preset == "" {
		c.Preset = PresetUltrafast
	}

	return nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveEncoder picks the concrete hardware.Encoder matching Codec and
// VendorPreference against sysInfo, plus the GPU it came from, falling
// back to (nil, nil) when no hardware match exists or hardware encoding
// was declined. The GPU is returned directly from the scan rather than
// looked up later via Encoder.GPUIndex, since gpu.Encoders entries (as
// opposed to SystemInfo.Encoders' flattened copies) never get their
// GPUIndex field stamped by Detect.
func (c *Config) resolveEncoder(sysInfo *hardware.SystemInfo) (*hardware.Encoder, *hardware.GPU) {
	if !c.UseHardwareEncoding || c.VendorPreference == VendorSoftware {
		return nil, nil
	}

	wantNames := encoderNamesFor(c.Codec, c.VendorPreference)
	if len(wantNames) == 0 {
		return nil, nil
	}

	for _, gpu := range sysInfo.GPUs {
		if c.VendorPreference != VendorAuto && string(c.VendorPreference) != string(gpu.Vendor) {
			continue
		}
		for i := range gpu.Encoders {
			enc := &gpu.Encoders[i]
			if !enc.Available {
				continue
			}
			for _, name := range wantNames {
				if enc.Name == name {
					return enc, gpu
				}
			}
		}
	}
	return nil, nil
}

func encoderNamesFor(codec Codec, vendor VendorPreference) []string {
	switch codec {
	case CodecH264:
		switch vendor {
		case VendorNVIDIA:
			return []string{"h264_nvenc"}
		case VendorAMD:
			return []string{"h264_amf"}
		case VendorIntel:
			return []string{"h264_qsv"}
		default:
			return []string{"h264_nvenc", "h264_amf", "h264_qsv"}
		}
	case CodecH265:
		switch vendor {
		case VendorNVIDIA:
			return []string{"hevc_nvenc"}
		case VendorAMD:
			return []string{"hevc_amf"}
		case VendorIntel:
			return []string{"hevc_qsv"}
		default:
			return []string{"hevc_nvenc", "hevc_amf", "hevc_qsv"}
		}
	default:
		// VP9/AV1 have no hardware matrix in this tree; always software.
		return nil
	}
}

// EstimatedBytesPerSecond sums the video bitrate with whichever audio
// sidecars are enabled, giving a rough disk footprint for BufferSeconds of
// buffering (spec §6, ambient config surface: reported before Start so a
// caller can warn on low disk space).
func (c *Config) EstimatedBytesPerSecond() int {
	total := c.BitrateBps / 8
	if c.RecordAudio && c.RecordDesktopAudio {
		total += audio.EstimateDesktopBytesPerSecond()
	}
	if c.RecordAudio && c.RecordMicrophone {
		total += audio.EstimateMicBytesPerSecond()
	}
	return total
}

// encoderArgs resolves which concrete ffmpeg encoder to use against
// sysInfo and returns its argument fragment plus the GPU backing it, if
// any. startEncoder uses only the argument fragment.
func (c *Config) encoderArgs(sysInfo *hardware.SystemInfo) ([]string, *hardware.GPU) {
	enc, gpu := c.resolveEncoder(sysInfo)
	if enc == nil {
		return encoder.SoftwareArgsForCodec(string(c.Codec), c.CRF, string(c.Preset), c.BitrateBps), nil
	}

	vendor := hardware.VendorUnknown
	if gpu != nil {
		vendor = gpu.Vendor
	}
	return encoder.ArgsForEncoderWithRates(enc, vendor, c.BitrateBps, c.CRF, string(c.Preset)), gpu
}
