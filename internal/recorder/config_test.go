package recorder

import "testing"

func TestValidateRequiresSavePath(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing save_path")
	}
}

func TestValidateClampsOutOfRangeBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SavePath = "clips"
	cfg.BufferSeconds = 10000
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BufferSeconds != 300 {
		t.Fatalf("expected clamp to 300, got %d", cfg.BufferSeconds)
	}
}

func TestValidateClampsVolume(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SavePath = "clips"
	cfg.DesktopVolume = 5.0
	cfg.MicrophoneVolume = -1.0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DesktopVolume != 2.0 {
		t.Fatalf("expected desktop volume clamp to 2.0, got %v", cfg.DesktopVolume)
	}
	if cfg.MicrophoneVolume != 0.0 {
		t.Fatalf("expected mic volume clamp to 0.0, got %v", cfg.MicrophoneVolume)
	}
}

func TestValidateRejectsUnknownCodec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SavePath = "clips"
	cfg.Codec = "mpeg2"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestValidateDefaultsEmptyPreset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SavePath = "clips"
	cfg.Preset = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Preset != PresetUltrafast {
		t.Fatalf("expected default preset ultrafast, got %q", cfg.Preset)
	}
}

func TestMaxSegmentsToKeepAddsSafetyMargin(t *testing.T) {
	if got := maxSegmentsToKeep(30, 10); got != 5 {
		t.Fatalf("expected ceil(30/10)+2=5, got %d", got)
	}
	if got := maxSegmentsToKeep(5, 10); got != 3 {
		t.Fatalf("expected ceil(5/10)+2=3, got %d", got)
	}
}
