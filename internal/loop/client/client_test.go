package client

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/fabric/internal/cloth"
	"github.com/tomz197/fabric/internal/draw"
	"github.com/tomz197/fabric/internal/loop/server"
)

// syncBuffer guards a bytes.Buffer written by the client loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	cfg := cloth.DefaultConfig()
	cfg.Width, cfg.Height = 6, 5
	s, err := server.NewServer(cfg, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func newTestClient(t *testing.T, s *server.Server, keys string, w io.Writer) *Client {
	t.Helper()
	return NewClient(s, bufio.NewReader(strings.NewReader(keys)), w, ClientOptions{
		TermSizeFunc: draw.FixedTermSize(100, 40),
		Username:     "tester",
	})
}

func TestRunForwardsCommandsAndQuitsOnEOF(t *testing.T) {
	s := newTestServer(t)
	var out syncBuffer
	c := newTestClient(t, s, "w", &out)

	done := make(chan error, 1)
	go func() { done <- c.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("client did not stop after input ended")
	}

	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !s.GetSnapshot().Config.Wind {
		t.Fatalf("wind command was not forwarded")
	}
	if !strings.Contains(out.String(), "\033[?25l") {
		t.Fatalf("cursor was not hidden")
	}
}

func TestLocalTogglesStayLocal(t *testing.T) {
	s := newTestServer(t)
	c := newTestClient(t, s, "go", io.Discard)

	deadline := time.Now().Add(2 * time.Second)
	for !c.state.ShowGraph && time.Now().Before(deadline) {
		c.processInput()
		time.Sleep(time.Millisecond)
	}
	if !c.state.ShowGraph {
		t.Fatalf("graph toggle not applied")
	}
	for c.view.AutoOrbit && time.Now().Before(deadline) {
		c.processInput()
		time.Sleep(time.Millisecond)
	}
	if c.view.AutoOrbit {
		t.Fatalf("orbit toggle not applied")
	}

	before := s.GetSnapshot().Config
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if s.GetSnapshot().Config != before {
		t.Fatalf("local toggle changed the simulation")
	}
}

func TestDrawFrameRendersCloth(t *testing.T) {
	s := newTestServer(t)
	var out bytes.Buffer
	c := newTestClient(t, s, "", &out)
	c.state.ShowGraph = true

	c.updateWatchingState()
	if err := c.drawFrame(); err != nil {
		t.Fatalf("drawFrame: %v", err)
	}
	frame := out.String()
	if !strings.ContainsAny(frame, "▀▄█") {
		t.Fatalf("frame has no cloth pixels")
	}
	for _, want := range []string{"tick", "force x1", "Controls", "kinetic energy"} {
		if !strings.Contains(frame, want) {
			t.Fatalf("frame missing %q", want)
		}
	}
}

func TestShutdownEventSwitchesScreen(t *testing.T) {
	s := newTestServer(t)
	var out bytes.Buffer
	c := newTestClient(t, s, "", &out)
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}

	go s.Shutdown(10 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for c.state.ViewState != ViewStateShutdown && time.Now().Before(deadline) {
		c.processServerEvents()
		time.Sleep(time.Millisecond)
	}
	if c.state.ViewState != ViewStateShutdown {
		t.Fatalf("shutdown event not handled")
	}
	if err := c.drawFrame(); err != nil {
		t.Fatalf("drawFrame: %v", err)
	}
	if !strings.Contains(out.String(), "SERVER SHUTTING DOWN") {
		t.Fatalf("shutdown screen not drawn")
	}
}

func TestClampTermSize(t *testing.T) {
	w, h, col, row := clampTermSize(300, 100)
	if w != 240 || h != 80 || col != 30 || row != 10 {
		t.Fatalf("clamp = %d %d %d %d", w, h, col, row)
	}
	w, h, col, row = clampTermSize(80, 24)
	if w != 80 || h != 24 || col != 0 || row != 0 {
		t.Fatalf("clamp small = %d %d %d %d", w, h, col, row)
	}
}
