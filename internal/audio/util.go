package audio

// EstimateDesktopBytesPerSecond returns the on-disk WAV byte rate for the
// loopback sidecar at its fixed float32/stereo/48kHz format, used by the recorder facade
// to report an estimated disk footprint before starting.
func EstimateDesktopBytesPerSecond() int {
	return LoopbackSampleHz * LoopbackChannels * (loopbackBitDepth / 8)
}

// EstimateMicBytesPerSecond returns the on-disk WAV byte rate for the
// microphone sidecar at its fixed 48kHz/16-bit/mono format.
func EstimateMicBytesPerSecond() int {
	return MicSampleRate * MicChannels * (MicBitsPerSample / 8)
}
