package server

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/fabric/internal/cloth"
	"github.com/tomz197/fabric/internal/loop/config"
)

func testConfig() cloth.Config {
	cfg := cloth.DefaultConfig()
	cfg.Width, cfg.Height = 6, 5
	return cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(testConfig(), log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

// nextNotice returns the first notice queued for the handle.
func nextNotice(t *testing.T, h *ClientHandle) string {
	t.Helper()
	for {
		select {
		case ev := <-h.EventsCh:
			if ev.Type == EventNotice {
				return ev.Message
			}
		default:
			t.Fatalf("no notice queued")
		}
	}
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Spacing = 0
	_, err := NewServer(cfg, log.New(io.Discard))
	if !errors.Is(err, cloth.ErrInvalidSpacing) {
		t.Fatalf("error = %v, want ErrInvalidSpacing", err)
	}
}

func TestInitialSnapshot(t *testing.T) {
	s := newTestServer(t)
	snap := s.GetSnapshot()
	if snap == nil {
		t.Fatalf("no initial snapshot")
	}
	if snap.Tick != 0 || snap.Paused {
		t.Fatalf("initial tick=%d paused=%v", snap.Tick, snap.Paused)
	}
	if len(snap.Surface.Vertices) != 30 || len(snap.Surface.Indices) != cloth.IndexCount(6, 5) {
		t.Fatalf("surface %d vertices %d indices", len(snap.Surface.Vertices), len(snap.Surface.Indices))
	}
	if len(snap.Pins) != 4 {
		t.Fatalf("pins = %v, want 4 corners", snap.Pins)
	}
	if snap.Sphere.Radius != 6*5/8.0 {
		t.Fatalf("sphere radius = %v", snap.Sphere.Radius)
	}
}

func TestFixedStepAccumulator(t *testing.T) {
	s := newTestServer(t)

	if err := s.Update(3 * config.ServerTickTime); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetSnapshot().Tick; got != 3 {
		t.Fatalf("tick = %d, want 3", got)
	}

	// Two half ticks make one step.
	half := config.ServerTickTime / 2
	if err := s.Update(half); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetSnapshot().Tick; got != 3 {
		t.Fatalf("tick after half step = %d, want 3", got)
	}
	if err := s.Update(half); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetSnapshot().Tick; got != 4 {
		t.Fatalf("tick after two half steps = %d, want 4", got)
	}
}

func TestStallIsBounded(t *testing.T) {
	s := newTestServer(t)
	if err := s.Update(time.Second); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetSnapshot().Tick; got != config.MaxCatchUpSteps {
		t.Fatalf("tick = %d, want %d", got, config.MaxCatchUpSteps)
	}
	if s.accumulator != 0 {
		t.Fatalf("accumulator = %v after drop, want 0", s.accumulator)
	}
}

func TestPauseCommandFreezesSnapshot(t *testing.T) {
	s := newTestServer(t)
	h := s.RegisterClient("alice")
	if err := s.Update(2 * config.ServerTickTime); err != nil {
		t.Fatalf("Update: %v", err)
	}

	s.SendCommand(h.ID, CommandTogglePause)
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if msg := nextNotice(t, h); msg != "paused" {
		t.Fatalf("notice = %q, want paused", msg)
	}

	before := s.GetSnapshot()
	if !before.Paused {
		t.Fatalf("snapshot not paused")
	}
	if err := s.Update(4 * config.ServerTickTime); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after := s.GetSnapshot()
	if after.Tick != before.Tick {
		t.Fatalf("tick advanced while paused: %d -> %d", before.Tick, after.Tick)
	}
	for i := range before.Surface.Vertices {
		if before.Surface.Vertices[i] != after.Surface.Vertices[i] {
			t.Fatalf("vertex %d moved while paused", i)
		}
	}
}

func TestSnapshotsAreDetached(t *testing.T) {
	s := newTestServer(t)
	first := s.GetSnapshot()
	held := append(first.Surface.Vertices[:0:0], first.Surface.Vertices...)

	if err := s.Update(5 * config.ServerTickTime); err != nil {
		t.Fatalf("Update: %v", err)
	}
	for i := range held {
		if first.Surface.Vertices[i] != held[i] {
			t.Fatalf("published vertex %d changed after later steps", i)
		}
	}
	if s.GetSnapshot().Surface.Vertices[1] == held[1] {
		t.Fatalf("unpinned vertex did not move under gravity")
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		cmd    Command
		notice string
		check  func(cloth.Config) bool
	}{
		{CommandToggleWind, "wind on", func(c cloth.Config) bool { return c.Wind }},
		{CommandToggleSphere, "sphere off", func(c cloth.Config) bool { return !c.Sphere }},
		{CommandToggleCornerPins, "corner pins off (rebuild to apply)", func(c cloth.Config) bool { return !c.CornerPins }},
		{CommandToggleEdgePins, "edge pins on (rebuild to apply)", func(c cloth.Config) bool { return c.EdgePins }},
		{CommandToggleMode, "mode position", func(c cloth.Config) bool { return c.Mode == cloth.ModePosition }},
		{CommandMoreIterations, "iterations 2", func(c cloth.Config) bool { return c.Iterations == 2 }},
		{CommandFewerIterations, "iterations 0", func(c cloth.Config) bool { return c.Iterations == 0 }},
		{CommandConstraintPreset, "constraint preset", func(c cloth.Config) bool { return c.Mode == cloth.ModePosition && c.Iterations == 3 }},
		{CommandForcePreset, "force preset", func(c cloth.Config) bool { return c.Mode == cloth.ModeForce && c.Stiffness == 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.String(), func(t *testing.T) {
			s := newTestServer(t)
			h := s.RegisterClient("viewer")
			s.SendCommand(h.ID, tt.cmd)
			if err := s.Update(0); err != nil {
				t.Fatalf("Update: %v", err)
			}
			if msg := nextNotice(t, h); msg != tt.notice {
				t.Fatalf("notice = %q, want %q", msg, tt.notice)
			}
			if cfg := s.GetSnapshot().Config; !tt.check(cfg) {
				t.Fatalf("config after %s = %+v", tt.cmd, cfg)
			}
		})
	}
}

func TestFewerIterationsStopsAtZero(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.SendCommand(0, CommandFewerIterations)
	}
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetSnapshot().Config.Iterations; got != 0 {
		t.Fatalf("iterations = %d, want 0", got)
	}
}

func TestRebuildAppliesPinToggles(t *testing.T) {
	s := newTestServer(t)
	s.SendCommand(0, CommandToggleEdgePins)
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := len(s.GetSnapshot().Pins); got != 4 {
		t.Fatalf("pins changed before rebuild: %d", got)
	}

	gen := s.GetSnapshot().Surface.Generation
	s.SendCommand(0, CommandRebuild)
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	snap := s.GetSnapshot()
	if snap.Surface.Generation != gen+1 {
		t.Fatalf("generation = %d, want %d", snap.Surface.Generation, gen+1)
	}
	// Edge x == 0 has 5 particles, plus the two corners on the far edge.
	if got := len(snap.Pins); got != 7 {
		t.Fatalf("pins after rebuild = %d, want 7", got)
	}
}

func TestEnergyHistorySampled(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 4; i++ {
		if err := s.Update(config.MaxCatchUpSteps * config.ServerTickTime); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	ticks := 4 * config.MaxCatchUpSteps
	want := ticks / config.EnergySampleTick
	if got := len(s.GetSnapshot().Energy); got != want {
		t.Fatalf("energy samples = %d, want %d", got, want)
	}
	for _, e := range s.GetSnapshot().Energy {
		if e <= 0 {
			t.Fatalf("falling cloth sampled energy %v", e)
		}
	}
}

func TestEnergyHistoryRing(t *testing.T) {
	h := newEnergyHistory(3)
	if got := h.Values(); len(got) != 0 {
		t.Fatalf("empty history = %v", got)
	}
	for i := 1; i <= 5; i++ {
		h.Push(float64(i))
	}
	got := h.Values()
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("values = %v, want %v", got, want)
		}
	}
	h.Reset()
	if got := h.Values(); len(got) != 0 {
		t.Fatalf("reset history = %v", got)
	}
}

func TestViewerLifecycleAndShutdown(t *testing.T) {
	s := newTestServer(t)
	h := s.RegisterClient("bob")
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := s.GetSnapshot().Viewers; got != 1 {
		t.Fatalf("viewers = %d, want 1", got)
	}

	start := time.Now()
	s.Shutdown(50 * time.Millisecond)
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("Shutdown returned before timeout with a viewer connected")
	}
	ev := <-h.EventsCh
	if ev.Type != EventServerShutdown {
		t.Fatalf("event = %+v, want shutdown", ev)
	}

	s.UnregisterClient(h.ID)
	if err := s.Update(0); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok := <-h.EventsCh; ok {
		t.Fatalf("events channel still open after unregister")
	}
	if got := s.GetSnapshot().Viewers; got != 0 {
		t.Fatalf("viewers = %d, want 0", got)
	}
}

func TestJoinAndLeaveBetweenUpdates(t *testing.T) {
	s := newTestServer(t)
	// select picks ready cases at random, so repeat to cover both orders
	for i := 0; i < 20; i++ {
		h := s.RegisterClient("carol")
		s.UnregisterClient(h.ID)
		if err := s.Update(0); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if _, ok := <-h.EventsCh; ok {
			t.Fatalf("round %d: events channel still open after leave", i)
		}
		if got := s.GetSnapshot().Viewers; got != 0 {
			t.Fatalf("round %d: viewers = %d, want 0", i, got)
		}
	}

	start := time.Now()
	s.Shutdown(time.Second)
	if elapsed := time.Since(start); elapsed >= time.Second {
		t.Fatalf("Shutdown waited %v for viewers that already left", elapsed)
	}
}

func TestCommandNames(t *testing.T) {
	if got := CommandRebuild.String(); got != "rebuild" {
		t.Fatalf("String = %q", got)
	}
	if got := Command(99).String(); !strings.Contains(got, "unknown") {
		t.Fatalf("String = %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	for c := CommandTogglePause; c <= CommandRebuild; c++ {
		got, err := ParseCommand(c.String())
		if err != nil || got != c {
			t.Fatalf("ParseCommand(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCommand("explode"); err == nil {
		t.Fatalf("expected error for unknown name")
	}
}
