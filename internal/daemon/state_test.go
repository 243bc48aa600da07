package daemon

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/loft-linux/loft/internal/daemon/broadcast"
	"github.com/loft-linux/loft/internal/daemon/messaging"
)

func TestQuitIsMonotonic(t *testing.T) {
	s := NewState(false, false)
	if s.QuitRequested() {
		t.Fatal("quit set before request")
	}
	s.RequestQuit()

	// No subsequent operation may unset it.
	s.RequestShow()
	s.RequestHide()
	s.SetDND(true)
	s.SetVisible(true)
	if !s.QuitRequested() {
		t.Error("quit flag was reset")
	}
}

func TestVisibilityLastWriterWins(t *testing.T) {
	s := NewState(false, false)

	tests := []struct {
		name string
		op   func()
		want bool
	}{
		{"show", s.RequestShow, true},
		{"hide", s.RequestHide, false},
		{"extension reports shown", func() { s.SetVisible(true) }, true},
		{"extension reports hidden", func() { s.SetVisible(false) }, false},
		{"show again", s.RequestShow, true},
	}
	for _, tt := range tests {
		tt.op()
		if s.Visible() != tt.want {
			t.Errorf("%s: visible = %v, want %v", tt.name, s.Visible(), tt.want)
		}
	}
}

func TestShowWakesWaiterExactlyOnce(t *testing.T) {
	s := NewState(false, false)

	wakes := make(chan struct{}, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-s.ShowRequests()
		wakes <- struct{}{}
	}()

	// Give the waiter time to arm.
	time.Sleep(20 * time.Millisecond)
	s.RequestShow()

	select {
	case <-wakes:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
	wg.Wait()

	select {
	case <-wakes:
		t.Fatal("waiter woke more than once")
	default:
	}
}

func TestShowLeavesNoStoredWakeup(t *testing.T) {
	s := NewState(false, false)

	// A show request with nobody waiting must not wake a later waiter.
	s.RequestShow()

	select {
	case <-s.ShowRequests():
		t.Error("stale show request woke a fresh waiter")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQuitWakesShowWaiter(t *testing.T) {
	s := NewState(false, false)
	ch := s.ShowRequests()
	s.RequestQuit()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("quit did not wake the show waiter")
	}
	if !s.QuitRequested() {
		t.Error("quit flag not set")
	}
}

func TestShowBroadcastsCommand(t *testing.T) {
	s := NewState(false, false)
	sub := s.Commands.Subscribe()
	defer sub.Unsubscribe()

	s.RequestShow()
	cmd, err := sub.Recv()
	if err != nil || cmd.Type != messaging.CommandShowWindow {
		t.Errorf("broadcast = %+v, %v; want show_window", cmd, err)
	}

	s.RequestHide()
	cmd, err = sub.Recv()
	if err != nil || cmd.Type != messaging.CommandHideWindow {
		t.Errorf("broadcast = %+v, %v; want hide_window", cmd, err)
	}

	s.SetDND(true)
	cmd, err = sub.Recv()
	if err != nil || cmd.Type != messaging.CommandDndChanged || cmd.Enabled == nil || !*cmd.Enabled {
		t.Errorf("broadcast = %+v, %v; want dnd_changed enabled", cmd, err)
	}
}

func TestConsumeStartMinimized(t *testing.T) {
	s := NewState(false, true)
	if !s.ConsumeStartMinimized() {
		t.Error("first consume should return true")
	}
	if s.ConsumeStartMinimized() {
		t.Error("second consume should return false")
	}

	s = NewState(false, false)
	if s.ConsumeStartMinimized() {
		t.Error("consume without --minimized should return false")
	}
}

func TestBrowserPid(t *testing.T) {
	s := NewState(false, false)
	if s.BrowserPid() != 0 {
		t.Error("fresh state has a pid")
	}
	s.SetBrowserPid(1234)
	if s.BrowserPid() != 1234 {
		t.Error("pid not recorded")
	}
	s.SetBrowserPid(0)
	if s.BrowserPid() != 0 {
		t.Error("pid not cleared")
	}
}

func TestHubClosedAfterShutdown(t *testing.T) {
	s := NewState(false, false)
	sub := s.Commands.Subscribe()
	s.Commands.Close()
	if _, err := sub.Recv(); !errors.Is(err, broadcast.ErrClosed) {
		t.Errorf("Recv = %v, want ErrClosed", err)
	}
}
