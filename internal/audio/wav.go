package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// WaveFormat describes the PCM layout of one sidecar file. Loopback audio
// is always written as float32 stereo at 48kHz, whatever the device's
// native mix format; microphone audio is fixed at 48kHz/16-bit/mono per spec.
type WaveFormat struct {
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
	Float         bool
}

const riffHeaderSize = 44

// writeRIFFHeader writes a placeholder 44-byte canonical WAV header (RIFF
// size and data-chunk size are patched in on Close, once the real byte
// count is known) and a WAVE_FORMAT_IEEE_FLOAT or WAVE_FORMAT_PCM fmt
// chunk matching f.
func writeRIFFHeader(file *os.File, f WaveFormat) error {
	blockAlign := f.Channels * (f.BitsPerSample / 8)
	byteRate := f.SampleRate * uint32(blockAlign)

	audioFormat := uint16(1) // PCM
	if f.Float {
		audioFormat = 3 // IEEE float
	}

	header := make([]byte, riffHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36) // patched on Close
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], audioFormat)
	binary.LittleEndian.PutUint16(header[22:24], f.Channels)
	binary.LittleEndian.PutUint32(header[24:28], f.SampleRate)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], f.BitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	_, err := file.Write(header)
	return err
}

// patchRIFFSizes seeks back to the size fields and writes the final RIFF
// chunk size and data chunk size now that dataBytes is known.
func patchRIFFSizes(file *os.File, dataBytes uint32) error {
	var buf [4]byte

	binary.LittleEndian.PutUint32(buf[:], 36+dataBytes)
	if _, err := file.WriteAt(buf[:], 4); err != nil {
		return fmt.Errorf("patch RIFF size: %w", err)
	}

	binary.LittleEndian.PutUint32(buf[:], dataBytes)
	if _, err := file.WriteAt(buf[:], 40); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}
	return nil
}
