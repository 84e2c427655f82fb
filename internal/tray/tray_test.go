package tray

import (
	"testing"

	"github.com/petems/micwatch/internal/device"
)

func testSnapshot() device.Snapshot {
	return device.Snapshot{
		{ID: 1, Name: "MacBook Pro Microphone", Transport: device.TransportBuiltIn, InputVolume: 0.75},
		{ID: 3, Name: "USB Audio Interface", IsDefaultInput: true, Transport: device.TransportUSB, InputVolume: 0.4},
		{ID: 4, Name: "AirPods Pro", Transport: device.TransportBluetooth, InputVolume: 1},
	}
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		name string
		snap device.Snapshot
		want string
	}{
		{"default input", testSnapshot(), "🎤 40%"},
		{"no default", testSnapshot()[:1], "🎤 –"},
		{"empty", device.Snapshot{}, "🎤 –"},
		{"nil", nil, "🎤 –"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titleFor(tt.snap); got != tt.want {
				t.Errorf("titleFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeviceLabel(t *testing.T) {
	got := deviceLabel(testSnapshot()[2])
	if want := "AirPods Pro (Bluetooth, 100%)"; got != want {
		t.Errorf("deviceLabel() = %q, want %q", got, want)
	}
}

func TestMenuRows(t *testing.T) {
	rows := menuRows(testSnapshot(), 5)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].isDefault || !rows[1].isDefault || rows[2].isDefault {
		t.Errorf("default mark on the wrong row: %+v", rows)
	}
	if rows[1].label != "USB Audio Interface (USB, 40%)" {
		t.Errorf("unexpected label %q", rows[1].label)
	}
}

func TestMenuRowsOverflow(t *testing.T) {
	rows := menuRows(testSnapshot(), 2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].label != "and 2 more" {
		t.Errorf("unexpected overflow row %q", rows[1].label)
	}
}

func TestMenuRowsEmpty(t *testing.T) {
	rows := menuRows(nil, 4)
	if len(rows) != 1 || rows[0].label != "No microphones" {
		t.Errorf("unexpected rows %+v", rows)
	}
	if menuRows(testSnapshot(), 0) != nil {
		t.Error("no slots should yield no rows")
	}
}
