package hardware

import (
	"log/slog"
	"rewind/internal/utils"
	"strings"
)

// DetectAvailableEncoders returns which of the known hardware encoders, plus
// the software VP9/AV1 encoders, ffmpeg reports.
func DetectAvailableEncoders() []string {
	slog.Debug("detecting encoders", "ffmpegPath", FFmpegPath)

	cmd := utils.Command(FFmpegPath, "-hide_banner", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		slog.Warn("ffmpeg encoder detection failed", "error", err, "output", string(out))
		return nil
	}

	output := string(out)
	var encoders []string

	hwEncoders := []string{
		"h264_nvenc", "hevc_nvenc", // NVIDIA
		"h264_amf", "hevc_amf", // AMD
		"h264_qsv", "hevc_qsv", // Intel
		"libvpx-vp9", "libaom-av1", // software VP9/AV1
	}

	for _, enc := range hwEncoders {
		if strings.Contains(output, enc) {
			encoders = append(encoders, enc)
			slog.Debug("found encoder", "name", enc)
		}
	}

	slog.Info("detected encoders", "count", len(encoders), "encoders", encoders)
	return encoders
}

// ValidateEncoders checks which encoders are actually available in FFmpeg
// and updates the GPU's encoder availability flags.
func ValidateEncoders(gpus GPUList) {
	available := DetectAvailableEncoders()
	availableMap := make(map[string]bool)
	for _, enc := range available {
		availableMap[enc] = true
	}

	for _, gpu := range gpus {
		for i := range gpu.Encoders {
			gpu.Encoders[i].Available = availableMap[gpu.Encoders[i].Name]
		}
	}
}

// FindBestEncoder returns the first available hardware encoder across all
// GPUs, preferring the order they were detected in.
func FindBestEncoder(gpus GPUList) *Encoder {
	for _, gpu := range gpus {
		for i := range gpu.Encoders {
			enc := &gpu.Encoders[i]
			if enc.Available {
				return enc
			}
		}
	}
	return nil
}
