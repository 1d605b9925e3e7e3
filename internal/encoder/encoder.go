// Package encoder builds and drives the ffmpeg subprocesses that turn raw
// BGRA frames into segmented encoded video. The vendor argument matrix lives
// here rather than in internal/hardware: hardware only detects what is
// available, encoder decides how to drive it.
package encoder

import (
	"strconv"

	"rewind/internal/hardware"
)

// defaultBitrateBps, defaultCRF and defaultPreset back ArgsForEncoder,
// which callers that don't carry a full recorder.Config (tests, ad-hoc
// tooling) use; the recorder facade itself calls ArgsForEncoderWithRates
// with the user's configured values.
const (
	defaultBitrateBps = 8_000_000
	defaultCRF        = 23
	defaultPreset     = "ultrafast"
)

// ArgsForEncoder returns the ffmpeg argument fragment for the chosen encoder.
// captureVendor is accepted but does not change the arguments: frames
// always arrive as CPU-side raw BGRA over stdin, so no encoder needs a
// hwdownload/hwupload chain.
func ArgsForEncoder(enc *hardware.Encoder, captureVendor hardware.Vendor) []string {
	return ArgsForEncoderWithRates(enc, captureVendor, defaultBitrateBps, defaultCRF, defaultPreset)
}

// ArgsForEncoderWithRates is ArgsForEncoder plus the configured
// bitrate/CRF/preset (spec §6's configuration surface): hardware encoders
// use bitrateBps for their rate-control bounds, software encoders use
// crf and preset.
func ArgsForEncoderWithRates(enc *hardware.Encoder, captureVendor hardware.Vendor, bitrateBps, crf int, preset string) []string {
	if enc == nil {
		return CPUArgs("libx264", crf, preset, bitrateBps)
	}

	switch enc.Name {
	case "h264_amf", "hevc_amf":
		return amfArgs(enc, bitrateBps)
	case "h264_nvenc", "hevc_nvenc":
		return nvencArgs(enc, captureVendor, bitrateBps)
	case "h264_qsv", "hevc_qsv":
		return qsvArgs(enc, bitrateBps)
	case "libvpx-vp9":
		return vp9Args(crf, bitrateBps)
	case "libaom-av1":
		return av1Args(crf, bitrateBps)
	}

	return CPUArgs(enc.Name, crf, preset, bitrateBps)
}

// rateBounds returns the bitrate/maxrate/bufsize triplet shared by every
// hardware encoder arg set: bufsize and maxrate are both double the target
// bitrate (spec: bitrate/2x/2x bounds, expressed here as bitrate, 2x, 2x).
func rateBounds(bitrateBps int) []string {
	return []string{
		"-b:v", strconv.Itoa(bitrateBps),
		"-maxrate", strconv.Itoa(bitrateBps * 2),
		"-bufsize", strconv.Itoa(bitrateBps * 2),
	}
}

func amfArgs(enc *hardware.Encoder, bitrateBps int) []string {
	args := []string{
		"-c:v", enc.Name,
		"-quality", "balanced",
		"-rc", "vbr_peak",
	}
	return append(args, rateBounds(bitrateBps)...)
}

func nvencArgs(enc *hardware.Encoder, captureVendor hardware.Vendor, bitrateBps int) []string {
	args := []string{
		"-c:v", enc.Name,
		"-preset", "p4",
		"-rc", "vbr",
	}
	_ = captureVendor // capture surface is CPU-side raw BGRA over stdin; no hwupload chain needed here.
	return append(args, rateBounds(bitrateBps)...)
}

func qsvArgs(enc *hardware.Encoder, bitrateBps int) []string {
	args := []string{
		"-c:v", enc.Name,
		"-preset", "faster",
	}
	return append(args, rateBounds(bitrateBps)...)
}

func vp9Args(crf, bitrateBps int) []string {
	args := []string{
		"-c:v", "libvpx-vp9",
		"-crf", strconv.Itoa(crf),
		"-deadline", "realtime",
		"-cpu-used", "8",
		"-row-mt", "1",
	}
	return append(args, rateBounds(bitrateBps)...)
}

func av1Args(crf, bitrateBps int) []string {
	args := []string{
		"-c:v", "libaom-av1",
		"-crf", strconv.Itoa(crf),
	}
	return append(args, rateBounds(bitrateBps)...)
}

// SoftwareArgsForCodec builds CPU-only encoder arguments for the given
// codec name ("h264", "h265", "vp9", "av1"), used when the configuration
// surface asks for a codec with no hardware matrix entry (VP9, AV1) or
// explicitly declines hardware encoding.
func SoftwareArgsForCodec(codec string, crf int, preset string, bitrateBps int) []string {
	switch codec {
	case "vp9":
		return vp9Args(crf, bitrateBps)
	case "av1":
		return av1Args(crf, bitrateBps)
	case "h265":
		return CPUArgs("h265", crf, preset, bitrateBps)
	default:
		return CPUArgs("h264", crf, preset, bitrateBps)
	}
}

// CPUArgs returns software x264/x265 encoder arguments for the given preset,
// CRF, and configured bitrate (same rate bounds as the hardware paths, spec
// §4.4). Used both as the universal fallback and for the explicit Software
// encoder choice in the configuration surface.
func CPUArgs(codec string, crf int, preset string, bitrateBps int) []string {
	name := "libx264"
	if codec == "h265" || codec == "libx265" {
		name = "libx265"
	}
	args := []string{
		"-c:v", name,
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
	}
	return append(args, rateBounds(bitrateBps)...)
}
