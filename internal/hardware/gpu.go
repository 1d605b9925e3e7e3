//go:build windows

package hardware

import (
	"fmt"
	"strings"

	"rewind/internal/utils"
)

// Vendor identifies which GPU driver family produced an adapter, which in
// turn selects the encoder argument matrix in internal/encoder.
type Vendor string

const (
	VendorNVIDIA  Vendor = "nvidia"
	VendorAMD     Vendor = "amd"
	VendorIntel   Vendor = "intel"
	VendorUnknown Vendor = "unknown"
)

// GPU represents one graphics adapter and the encoders it exposes.
type GPU struct {
	Index    int
	Name     string
	Vendor   Vendor
	Encoders []Encoder
}

func (g *GPU) String() string {
	return fmt.Sprintf("[%d] %s (%s)", g.Index, g.Name, g.Vendor)
}

type GPUList []*GPU

func (l GPUList) FindByIndex(index int) *GPU {
	for _, g := range l {
		if g.Index == index {
			return g
		}
	}
	return nil
}

// DetectGPUs enumerates adapters via DXGI (the same binding used for the
// capture loop's duplication surface) and falls back to WMIC if DXGI
// enumeration comes back empty, e.g. under a remote desktop session where
// some adapters report no outputs.
func DetectGPUs() (GPUList, error) {
	if names := EnumerateGPUsDXGI(); len(names) > 0 {
		gpus := make(GPUList, 0, len(names))
		for i, name := range names {
			vendor := detectVendorFromName(name)
			gpus = append(gpus, &GPU{
				Index:    i,
				Name:     name,
				Vendor:   vendor,
				Encoders: candidateEncoders(vendor),
			})
		}
		return gpus, nil
	}

	gpus, err := detectGPUsFromWMIC()
	if err != nil || len(gpus) == 0 {
		return nil, fmt.Errorf("GPU detection failed (dxgi empty, wmic: %w)", err)
	}
	return gpus, nil
}

// candidateEncoders lists the hardware encoders a vendor's driver could
// expose to ffmpeg. ValidateEncoders marks which of these are actually
// present once ffmpeg -encoders has been probed.
func candidateEncoders(vendor Vendor) []Encoder {
	switch vendor {
	case VendorNVIDIA:
		return []Encoder{{Name: "h264_nvenc", Codec: "h264"}, {Name: "hevc_nvenc", Codec: "hevc"}}
	case VendorAMD:
		return []Encoder{{Name: "h264_amf", Codec: "h264"}, {Name: "hevc_amf", Codec: "hevc"}}
	case VendorIntel:
		return []Encoder{{Name: "h264_qsv", Codec: "h264"}, {Name: "hevc_qsv", Codec: "hevc"}}
	}
	return nil
}

// detectGPUsFromWMIC uses Windows WMI as a fallback GPU enumeration path.
func detectGPUsFromWMIC() (GPUList, error) {
	cmd := utils.Command("wmic", "path", "win32_videocontroller", "get", "name,adapterram,pnpdeviceid", "/format:csv")
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var gpus GPUList
	idx := 0
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Node,") {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		name := strings.TrimSpace(parts[2])
		if name == "" || name == "Name" {
			continue
		}
		if strings.Contains(strings.ToLower(name), "microsoft") ||
			strings.Contains(strings.ToLower(name), "basic") {
			continue
		}

		vendor := detectVendorFromName(name)
		gpus = append(gpus, &GPU{
			Index:    idx,
			Name:     name,
			Vendor:   vendor,
			Encoders: candidateEncoders(vendor),
		})
		idx++
	}

	return gpus, nil
}

func detectVendorFromName(name string) Vendor {
	nameLower := strings.ToLower(name)
	switch {
	case strings.Contains(nameLower, "nvidia") || strings.Contains(nameLower, "geforce") ||
		strings.Contains(nameLower, "rtx") || strings.Contains(nameLower, "gtx"):
		return VendorNVIDIA
	case strings.Contains(nameLower, "amd") || strings.Contains(nameLower, "radeon") ||
		strings.Contains(nameLower, "rx "):
		return VendorAMD
	case strings.Contains(nameLower, "intel") || strings.Contains(nameLower, "iris") ||
		strings.Contains(nameLower, "uhd") || strings.Contains(nameLower, "arc"):
		return VendorIntel
	}
	return VendorUnknown
}
