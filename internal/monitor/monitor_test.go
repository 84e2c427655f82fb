package monitor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petems/micwatch/internal/device"
	"github.com/rs/zerolog"
)

var (
	defaultAddr = device.Address{Object: device.SystemObject, Property: device.PropertyDefaultInput}
	devicesAddr = device.Address{Object: device.SystemObject, Property: device.PropertyDevices}
)

func volumeAddr(id device.ID) device.Address {
	return device.Address{Object: id, Property: device.PropertyInputVolume}
}

func newTestPlatform() *device.Fake {
	return device.NewFake(3,
		device.FakeDevice{ID: 1, Name: "Built-in Microphone", Transport: device.TransportCodeBuiltIn, InputBuffers: 1},
		device.FakeDevice{ID: 2, Name: "Loopback", Transport: device.TransportCodeVirtual, InputBuffers: 1},
		device.FakeDevice{ID: 3, Name: "USB Mic", Transport: device.TransportCodeUSB, InputBuffers: 1, HasScalarVolume: true, Volume: 0.4},
	)
}

func newTestMonitor(t *testing.T, p device.Platform) *Monitor {
	t.Helper()
	m := New(Config{Platform: p, Logger: zerolog.Nop()})
	t.Cleanup(m.Close)
	return m
}

// waitFor receives from sub until match returns true or the deadline passes.
func waitFor(t *testing.T, sub *Subscription[device.Snapshot], match func(device.Snapshot) bool) device.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub.C():
			if !ok {
				t.Fatal("subscription closed while waiting")
			}
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func anySnapshot(device.Snapshot) bool { return true }

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	m := newTestMonitor(t, newTestPlatform())

	sub := m.SubscribeDevices()
	snap := waitFor(t, sub, anySnapshot)

	if len(snap) != 2 {
		t.Fatalf("expected 2 devices, got %d: %+v", len(snap), snap)
	}
	if snap[0].ID != 1 || snap[0].IsDefaultInput {
		t.Errorf("unexpected first record %+v", snap[0])
	}
	if snap[1].ID != 3 || !snap[1].IsDefaultInput || snap[1].InputVolume != 0.4 {
		t.Errorf("unexpected second record %+v", snap[1])
	}
	if m.State() != Listening {
		t.Errorf("expected listening state, got %s", m.State())
	}
}

func TestSubscribeRegistersThreeListeners(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	m.SubscribeDevices()

	for _, addr := range []device.Address{defaultAddr, devicesAddr, volumeAddr(3)} {
		if adds, _ := p.RegistrationsAt(addr); adds != 1 {
			t.Errorf("expected one registration at %s, got %d", addr, adds)
		}
	}
	if n := len(p.Listening()); n != 3 {
		t.Fatalf("expected 3 active listeners, got %d", n)
	}
}

func TestEveryListenerTriggersSnapshot(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)
	sub := m.SubscribeDevices()
	waitFor(t, sub, anySnapshot)

	p.SetVolume(3, 0.9)
	go p.Fire(volumeAddr(3))
	waitFor(t, sub, func(s device.Snapshot) bool {
		r, ok := s.Default()
		return ok && r.InputVolume == 0.9
	})

	p.SetDefault(1)
	go p.Fire(defaultAddr)
	waitFor(t, sub, func(s device.Snapshot) bool {
		r, ok := s.Default()
		return ok && r.ID == 1
	})

	p.SetDevices(device.FakeDevice{ID: 7, Name: "Headset", Transport: device.TransportCodeBluetoothLE, InputBuffers: 1})
	go p.Fire(devicesAddr)
	waitFor(t, sub, func(s device.Snapshot) bool {
		return len(s) == 1 && s[0].ID == 7 && s[0].Transport == device.TransportBluetooth
	})
}

func TestSecondSubscriberSupersedesFirst(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	first := m.SubscribeDevices()
	second := m.SubscribeDevices()
	waitFor(t, second, anySnapshot)

	p.SetDevices(device.FakeDevice{ID: 9, Name: "New Mic", Transport: device.TransportCodeUSB, InputBuffers: 1})
	if !p.Fire(devicesAddr) {
		t.Fatal("device list listener not registered")
	}
	waitFor(t, second, func(s device.Snapshot) bool { return len(s) == 1 && s[0].ID == 9 })

	// The first subscription may hold its initial snapshot, but is closed
	// and never sees the new topology.
	for snap := range first.C() {
		if len(snap) == 1 && snap[0].ID == 9 {
			t.Fatal("superseded subscriber received a later snapshot")
		}
	}

	if adds, _ := p.Registrations(); adds != 3 {
		t.Fatalf("re-subscribing must not register listeners again, got %d adds", adds)
	}
}

func TestSubscribeUnsubscribeCyclesDoNotLeak(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	sub := m.SubscribeDevices()
	m.Unsubscribe(DeviceChannel)
	addsOne, removesOne := p.Registrations()
	activeOne := len(p.Listening())
	if _, ok := <-sub.C(); ok {
		// an initial snapshot may have been delivered before the close
		if _, ok := <-sub.C(); ok {
			t.Fatal("unsubscribed channel should be closed")
		}
	}

	const cycles = 25
	for i := 1; i < cycles; i++ {
		m.SubscribeDevices()
		m.Unsubscribe(DeviceChannel)
	}

	adds, removes := p.Registrations()
	if adds != removes {
		t.Fatalf("register/unregister not paired: %d adds, %d removes", adds, removes)
	}
	if addsOne != removesOne || addsOne != 3 {
		t.Fatalf("one cycle should pair 3 registrations, got %d/%d", addsOne, removesOne)
	}
	if adds != cycles*addsOne {
		t.Fatalf("expected %d registrations, got %d", cycles*addsOne, adds)
	}
	if n := len(p.Listening()); n != activeOne || n != 0 {
		t.Fatalf("expected no active listeners, got %d", n)
	}
	if m.State() != Idle {
		t.Fatalf("expected idle state, got %s", m.State())
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	m.Unsubscribe(DeviceChannel)
	m.Unsubscribe(AudioChannel)
	m.Unsubscribe(Channel("nope"))

	m.SubscribeDevices()
	m.Unsubscribe(DeviceChannel)
	m.Unsubscribe(DeviceChannel)

	adds, removes := p.Registrations()
	if adds != 3 || removes != 3 {
		t.Fatalf("expected 3/3 registrations, got %d/%d", adds, removes)
	}
}

func TestVolumeListenerRemovedFromOriginalDefault(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)
	sub := m.SubscribeDevices()
	waitFor(t, sub, anySnapshot)

	if id, ok := m.VolumeTarget(); !ok || id != 3 {
		t.Fatalf("expected volume listener on device 3, got %d (ok=%v)", id, ok)
	}

	p.SetDefault(1)
	p.Fire(defaultAddr)
	m.Unsubscribe(DeviceChannel)

	if adds, removes := p.RegistrationsAt(volumeAddr(3)); adds != 1 || removes != 1 {
		t.Fatalf("expected volume listener on device 3 added and removed once, got %d/%d", adds, removes)
	}
	if adds, removes := p.RegistrationsAt(volumeAddr(1)); adds != 0 || removes != 0 {
		t.Fatalf("no listener should touch device 1, got %d/%d", adds, removes)
	}
	if n := len(p.Listening()); n != 0 {
		t.Fatalf("expected no leaked listeners, got %d", n)
	}
}

func TestPartialRegistrationStillListens(t *testing.T) {
	p := newTestPlatform()
	p.FailAddListener(device.PropertyDevices, true)
	m := newTestMonitor(t, p)

	sub := m.SubscribeDevices()
	waitFor(t, sub, anySnapshot)

	if m.State() != Listening {
		t.Fatalf("expected listening state after partial registration, got %s", m.State())
	}
	if n := len(p.Listening()); n != 2 {
		t.Fatalf("expected 2 active listeners, got %d", n)
	}

	m.Unsubscribe(DeviceChannel)
	adds, removes := p.Registrations()
	if adds != 2 || removes != 2 {
		t.Fatalf("expected 2/2 registrations, got %d/%d", adds, removes)
	}
}

func TestNoDefaultSkipsVolumeListener(t *testing.T) {
	p := newTestPlatform()
	p.SetDefault(device.UnknownID)
	m := newTestMonitor(t, p)

	sub := m.SubscribeDevices()
	snap := waitFor(t, sub, anySnapshot)

	if _, ok := snap.Default(); ok {
		t.Fatal("expected no default record")
	}
	if _, ok := m.VolumeTarget(); ok {
		t.Fatal("expected no volume listener")
	}
	if n := len(p.Listening()); n != 2 {
		t.Fatalf("expected 2 active listeners, got %d", n)
	}
}

func TestEnumerationFailureDeliversEmptySnapshot(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)
	sub := m.SubscribeDevices()
	waitFor(t, sub, func(s device.Snapshot) bool { return len(s) == 2 })

	p.FailEnumeration(errors.New("hal restarted"))
	go p.Fire(devicesAddr)
	waitFor(t, sub, func(s device.Snapshot) bool { return s != nil && len(s) == 0 })
}

func TestFireAfterUnsubscribeIsIgnored(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)
	m.SubscribeDevices()
	m.Unsubscribe(DeviceChannel)

	if p.Fire(devicesAddr) {
		t.Fatal("listener should have been removed")
	}
	queries := p.Queries()
	m.onChange(devicesAddr)
	if p.Queries() != queries {
		t.Fatal("a late callback must not re-enumerate once idle")
	}
}

func TestConcurrentCallbacksAndResubscribe(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					p.Fire(devicesAddr)
					p.Fire(volumeAddr(3))
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		m.SubscribeDevices()
		if i%2 == 0 {
			m.Unsubscribe(DeviceChannel)
		}
	}
	m.Unsubscribe(DeviceChannel)
	close(stop)
	wg.Wait()

	adds, removes := p.Registrations()
	if adds != removes {
		t.Fatalf("register/unregister not paired: %d/%d", adds, removes)
	}
}

func TestLatestSnapshotWins(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)
	sub := m.SubscribeDevices()
	waitFor(t, sub, anySnapshot)

	for i := 1; i <= 20; i++ {
		p.SetVolume(3, float32(i)/20)
		p.Fire(volumeAddr(3))
	}

	snap := waitFor(t, sub, func(s device.Snapshot) bool {
		r, ok := s.Default()
		return ok && r.InputVolume == 1.0
	})
	if len(snap) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	select {
	case extra := <-sub.C():
		t.Fatalf("no snapshot should follow the latest one, got %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAudioChannel(t *testing.T) {
	m := newTestMonitor(t, newTestPlatform())

	// Published with no subscriber: dropped.
	m.PublishAudio(AudioEvent{Kind: PlaybackStarted})
	if err := m.queue.Sync(func() {}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	first := m.SubscribeAudio()
	second := m.SubscribeAudio()
	m.PublishAudio(AudioEvent{Kind: RecordingFinished})
	m.PublishAudio(ErrorEvent(errors.New("no audio device available")))

	got := make([]AudioEvent, 0, 2)
	for len(got) < 2 {
		select {
		case ev := <-second.C():
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for audio events")
		}
	}
	if got[0].Kind != RecordingFinished || got[1].Kind != AudioError {
		t.Fatalf("unexpected events %+v", got)
	}
	if got[1].Message != "no audio device available" {
		t.Errorf("unexpected message %q", got[1].Message)
	}
	if _, ok := <-first.C(); ok {
		t.Fatal("superseded audio subscription should be closed and empty")
	}

	m.Unsubscribe(AudioChannel)
	if _, ok := <-second.C(); ok {
		t.Fatal("unsubscribed audio subscription should be closed")
	}
}

func TestDevicesDoesNotSubscribe(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	first := m.Devices()
	second := m.Devices()
	if !first.Equal(second) {
		t.Fatal("point-in-time queries should be idempotent")
	}
	if m.State() != Idle {
		t.Fatalf("expected idle state, got %s", m.State())
	}
	if adds, _ := p.Registrations(); adds != 0 {
		t.Fatalf("expected no listeners, got %d", adds)
	}
}

func TestCancelDevicesIgnoresSupersededSubscription(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)

	first := m.SubscribeDevices()
	second := m.SubscribeDevices()
	waitFor(t, second, anySnapshot)

	m.CancelDevices(first)
	if m.State() != Listening {
		t.Fatal("cancelling a superseded subscription must not stop listening")
	}
	if !p.Fire(devicesAddr) {
		t.Fatal("devices listener removed by a stale cancel")
	}
	waitFor(t, second, anySnapshot)

	m.CancelDevices(second)
	if m.State() != Idle {
		t.Fatal("cancelling the current subscription should stop listening")
	}
	if _, ok := <-second.C(); ok {
		t.Fatal("cancelled subscription should be closed")
	}
	if got := p.Listening(); len(got) != 0 {
		t.Fatalf("listeners left behind: %v", got)
	}
}

func TestCancelAudioIgnoresSupersededSubscription(t *testing.T) {
	m := newTestMonitor(t, newTestPlatform())

	first := m.SubscribeAudio()
	second := m.SubscribeAudio()
	m.CancelAudio(first)

	m.PublishAudio(AudioEvent{Kind: PlaybackStarted})
	select {
	case ev, ok := <-second.C():
		if !ok || ev.Kind != PlaybackStarted {
			t.Fatalf("unexpected delivery %+v (open=%v)", ev, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("current audio subscriber received nothing")
	}

	m.CancelAudio(second)
	if _, ok := <-second.C(); ok {
		t.Fatal("cancelled audio subscription should be closed")
	}
}

func TestSubscribeAfterCloseRegistersNothing(t *testing.T) {
	p := newTestPlatform()
	m := newTestMonitor(t, p)
	m.Close()

	sub := m.SubscribeDevices()
	if _, ok := <-sub.C(); ok {
		t.Fatal("subscription on a closed monitor should be closed")
	}
	if adds, _ := p.Registrations(); adds != 0 {
		t.Fatalf("closed monitor registered %d listeners", adds)
	}
	if m.State() != Idle {
		t.Fatal("closed monitor should stay idle")
	}
}

func TestCloseRacingSubscribeLeavesNoListeners(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := newTestPlatform()
		m := New(Config{Platform: p, Logger: zerolog.Nop()})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.SubscribeDevices()
		}()
		go func() {
			defer wg.Done()
			m.Close()
		}()
		wg.Wait()
		m.Close()

		if got := p.Listening(); len(got) != 0 {
			t.Fatalf("iteration %d: listeners left behind: %v", i, got)
		}
		adds, removes := p.Registrations()
		if adds != removes {
			t.Fatalf("iteration %d: %d adds, %d removes", i, adds, removes)
		}
	}
}
