package backend

import (
	"errors"
	"runtime"
	"testing"

	"github.com/petems/micwatch/internal/config"
	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name, goos, want string
	}{
		{config.BackendAuto, "darwin", config.BackendCoreAudio},
		{config.BackendAuto, "linux", config.BackendPortAudio},
		{config.BackendAuto, "windows", config.BackendPortAudio},
		{config.BackendFake, "darwin", config.BackendFake},
		{config.BackendPortAudio, "darwin", config.BackendPortAudio},
	}
	for _, tt := range tests {
		if got := Resolve(tt.name, tt.goos); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.name, tt.goos, got, tt.want)
		}
	}
}

func TestOpenFake(t *testing.T) {
	b, err := Open(&config.Config{Backend: config.BackendFake}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()

	snap := device.NewQuerier(b, zerolog.Nop()).EnumerateInputDevices()
	if len(snap) == 0 {
		t.Fatal("demo backend should report microphones")
	}
	if _, ok := snap.Default(); !ok {
		t.Fatal("demo backend should have a default input")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenUnknown(t *testing.T) {
	if _, err := Open(&config.Config{Backend: "alsa"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestOpenCoreAudioOffDarwin(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("coreaudio is available")
	}
	_, err := Open(&config.Config{Backend: config.BackendCoreAudio}, zerolog.Nop())
	if !errors.Is(err, device.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
