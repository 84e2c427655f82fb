package tray

import (
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
)

// systray cannot remove menu items, so device rows are preallocated and
// hidden when unused.
const deviceSlots = 12

type Config struct {
	Version string
	Commit  string
	Logger  zerolog.Logger
	OnQuit  func() // Optional - called after the tray exits
}

type UI struct {
	version string
	commit  string
	log     zerolog.Logger
	onQuit  func()

	mu     sync.Mutex
	latest device.Snapshot
	ready  bool

	// Menu items
	mDevices *systray.MenuItem
	mSlots   []*systray.MenuItem
	mCopy    *systray.MenuItem
	mQuit    *systray.MenuItem
}

func New(cfg Config) *UI {
	return &UI{
		version: cfg.Version,
		commit:  cfg.Commit,
		log:     cfg.Logger,
		onQuit:  cfg.OnQuit,
	}
}

// Run blocks on the platform event loop. It must be called from the main
// goroutine.
func (u *UI) Run() {
	systray.Run(u.onReady, u.onExit)
}

// Quit stops the event loop started by Run.
func (u *UI) Quit() {
	systray.Quit()
}

// SetDevices shows snap in the menu. Before the tray is ready the snapshot
// is kept and shown once the menu exists.
func (u *UI) SetDevices(snap device.Snapshot) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.latest = snap
	if u.ready {
		u.renderLocked()
	}
}

func (u *UI) onReady() {
	systray.SetTitle(titleFor(nil))
	systray.SetTooltip("Microphone monitor")

	// Build menu
	u.mDevices = systray.AddMenuItem("Microphones", "Physical input devices")
	u.mDevices.Disable()
	for i := 0; i < deviceSlots; i++ {
		item := systray.AddMenuItemCheckbox("", "", false)
		item.Disable()
		item.Hide()
		u.mSlots = append(u.mSlots, item)
	}

	systray.AddSeparator()
	u.mCopy = systray.AddMenuItem("Copy Device List", "Copy the microphone list to the clipboard")
	about := systray.AddMenuItem(fmt.Sprintf("micwatch %s (%s)", u.version, u.commit), "")
	about.Disable()
	u.mQuit = systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	u.renderLocked()
	u.mu.Unlock()

	// Event loop
	go u.handleEvents()
}

func (u *UI) handleEvents() {
	for {
		select {
		case <-u.mCopy.ClickedCh:
			u.copyDevices()
		case <-u.mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) copyDevices() {
	u.mu.Lock()
	text := u.latest.String()
	n := len(u.latest)
	u.mu.Unlock()

	if err := clipboard.WriteAll(text); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy device list")
		return
	}
	u.log.Info().Int("devices", n).Msg("Copied device list")
}

func (u *UI) onExit() {
	u.mu.Lock()
	u.ready = false
	u.mu.Unlock()
	if u.onQuit != nil {
		u.onQuit()
	}
}

func (u *UI) renderLocked() {
	systray.SetTitle(titleFor(u.latest))
	u.mDevices.SetTitle(fmt.Sprintf("Microphones (%d)", len(u.latest)))

	rows := menuRows(u.latest, len(u.mSlots))
	for i, item := range u.mSlots {
		if i >= len(rows) {
			item.Hide()
			continue
		}
		item.SetTitle(rows[i].label)
		if rows[i].isDefault {
			item.Check()
		} else {
			item.Uncheck()
		}
		item.Show()
	}
}

type menuRow struct {
	label     string
	isDefault bool
}

// menuRows lays snap out over n slots. When it does not fit, the last slot
// says how many devices were left out.
func menuRows(snap device.Snapshot, n int) []menuRow {
	if n <= 0 {
		return nil
	}
	if len(snap) == 0 {
		return []menuRow{{label: "No microphones"}}
	}

	rows := make([]menuRow, 0, n)
	for i, r := range snap {
		if len(snap) > n && i == n-1 {
			rows = append(rows, menuRow{label: fmt.Sprintf("and %d more", len(snap)-i)})
			break
		}
		rows = append(rows, menuRow{label: deviceLabel(r), isDefault: r.IsDefaultInput})
	}
	return rows
}

// deviceLabel is the menu text for r; the default mark is the checkbox.
func deviceLabel(r device.Record) string {
	return fmt.Sprintf("%s (%s, %d%%)", r.Name, r.Transport, percent(r.InputVolume))
}

// titleFor sets the tray title to the default input's volume
func titleFor(snap device.Snapshot) string {
	def, ok := snap.Default()
	if !ok {
		return "🎤 –"
	}
	return fmt.Sprintf("🎤 %d%%", percent(def.InputVolume))
}

func percent(v float32) int {
	return int(v*100 + 0.5)
}
