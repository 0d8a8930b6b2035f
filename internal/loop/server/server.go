package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tomz197/fabric/internal/cloth"
	"github.com/tomz197/fabric/internal/loop/config"
)

// ClothServer is the interface viewers use to communicate with the
// simulation host. Decouples the Client from the concrete Server.
type ClothServer interface {
	RegisterClient(username string) *ClientHandle
	UnregisterClient(clientID int)
	SendCommand(clientID int, cmd Command)
	GetSnapshot() *Snapshot
}

// Server owns the single simulation, applies viewer commands and publishes
// an immutable snapshot after every batch of fixed steps.
type Server struct {
	sim          *cloth.Simulation
	logger       *log.Logger
	snapshot     atomic.Pointer[Snapshot]
	clients      map[int]*ClientHandle
	nextClientID int
	commandCh    chan ClientCommand
	registerCh   chan *ClientHandle
	unregisterCh chan int
	mu           sync.RWMutex

	accumulator time.Duration
	energy      energyHistory

	// Pinned indices only change on rebuild.
	pins           []int
	pinsGeneration uint64
}

// Compile-time check that Server implements ClothServer.
var _ ClothServer = (*Server)(nil)

// ClientHandle represents a viewer's connection to the server.
type ClientHandle struct {
	ID       int
	Username string
	EventsCh chan ClientEvent // Events sent to the viewer
}

// ClientCommand is a command issued by a specific viewer.
type ClientCommand struct {
	ClientID int
	Command  Command
}

// ClientEvent represents an event sent from server to viewer.
type ClientEvent struct {
	Type    ClientEventType
	Message string // For notices
}

// ClientEventType identifies the type of client event.
type ClientEventType int

const (
	EventNotice ClientEventType = iota
	EventServerShutdown
)

// NewServer builds the simulation from cfg. A nil logger uses the default
// logger.
func NewServer(cfg cloth.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}
	sim, err := cloth.New(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		sim:          sim,
		logger:       logger,
		clients:      make(map[int]*ClientHandle),
		nextClientID: 1,
		commandCh:    make(chan ClientCommand, 256),
		registerCh:   make(chan *ClientHandle, 16),
		unregisterCh: make(chan int, 16),
		energy:       newEnergyHistory(config.EnergyHistoryLen),
	}
	s.logTopology("built")
	s.createSnapshot()
	return s, nil
}

// Run drives the simulation at config.ServerTickRate until the context is
// cancelled. It returns a non-nil error only when the simulation fails.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(config.ServerTickTime)
	defer ticker.Stop()

	s.logger.Info("simulation started", "tick", config.ServerTickTime, "dt", config.StepDt)
	lastTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulation stopped", "tick", s.sim.Tick())
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(lastTime)
			lastTime = now
			if err := s.Update(elapsed); err != nil {
				s.logger.Error("simulation failed", "err", err)
				s.broadcast(ClientEvent{Type: EventServerShutdown})
				return err
			}
		}
	}
}

// Update processes pending registrations and commands, runs as many fixed
// steps as elapsed wall time allows and publishes a new snapshot.
func (s *Server) Update(elapsed time.Duration) error {
	s.processRegistrations()
	if err := s.processCommands(); err != nil {
		return err
	}
	if _, err := s.advance(elapsed); err != nil {
		return err
	}
	s.createSnapshot()
	return nil
}

// advance adds elapsed to the accumulator and consumes it in fixed steps,
// at most config.MaxCatchUpSteps per call. Time beyond that is dropped so a
// stall never turns into a burst.
func (s *Server) advance(elapsed time.Duration) (int, error) {
	s.accumulator += elapsed

	steps := 0
	for s.accumulator >= config.ServerTickTime {
		if steps == config.MaxCatchUpSteps {
			s.logger.Debug("dropping simulation time", "behind", s.accumulator)
			s.accumulator = 0
			break
		}
		if err := s.sim.Step(config.StepDt); err != nil {
			return steps, err
		}
		s.accumulator -= config.ServerTickTime
		steps++

		if !s.sim.Paused() && s.sim.Tick()%config.EnergySampleTick == 0 {
			s.energy.Push(float64(s.sim.Stats().KineticEnergy))
		}
	}
	return steps, nil
}

// Shutdown gracefully shuts down the server by notifying all connected clients
// and waiting for them to disconnect (up to the given timeout).
// The caller should cancel the server context after Shutdown returns.
func (s *Server) Shutdown(timeout time.Duration) {
	s.broadcast(ClientEvent{Type: EventServerShutdown})

	// Wait for all clients to disconnect, or timeout
	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
			s.mu.RLock()
			remaining := len(s.clients)
			s.mu.RUnlock()
			if remaining == 0 {
				return
			}
		}
	}
}

// RegisterClient registers a new viewer with the given username and returns its handle.
func (s *Server) RegisterClient(username string) *ClientHandle {
	s.mu.Lock()
	id := s.nextClientID
	s.nextClientID++
	s.mu.Unlock()

	handle := &ClientHandle{
		ID:       id,
		Username: username,
		EventsCh: make(chan ClientEvent, 16),
	}

	s.registerCh <- handle
	return handle
}

// UnregisterClient removes a viewer from the server.
func (s *Server) UnregisterClient(clientID int) {
	s.unregisterCh <- clientID
}

// SendCommand queues a command from a viewer. Commands are applied in
// arrival order at the start of the next update.
func (s *Server) SendCommand(clientID int, cmd Command) {
	select {
	case s.commandCh <- ClientCommand{ClientID: clientID, Command: cmd}:
	default:
		// Command channel full, drop command
	}
}

// GetSnapshot returns the latest published snapshot.
func (s *Server) GetSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// processRegistrations handles pending client registrations/unregistrations.
// Registrations are drained before any unregistration so a join always
// lands before its matching leave.
func (s *Server) processRegistrations() {
	s.drainRegistrations()
	for {
		select {
		case clientID := <-s.unregisterCh:
			s.mu.Lock()
			_, ok := s.clients[clientID]
			s.mu.Unlock()
			if !ok {
				// the matching register may have arrived after the drain above
				s.drainRegistrations()
			}
			s.removeClient(clientID)
		default:
			return
		}
	}
}

func (s *Server) drainRegistrations() {
	for {
		select {
		case handle := <-s.registerCh:
			s.mu.Lock()
			s.clients[handle.ID] = handle
			s.mu.Unlock()
			s.logger.Info("viewer joined", "id", handle.ID, "user", handle.Username)
		default:
			return
		}
	}
}

func (s *Server) removeClient(clientID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.clients[clientID]
	if !ok {
		return
	}
	close(handle.EventsCh)
	delete(s.clients, clientID)
	s.logger.Info("viewer left", "id", clientID, "user", handle.Username)
}

// processCommands applies all queued commands. Only a topology mismatch is
// returned; other failures leave the simulation untouched and are reported
// to viewers.
func (s *Server) processCommands() error {
	for {
		select {
		case cc := <-s.commandCh:
			notice, err := s.apply(cc.Command)
			if errors.Is(err, cloth.ErrTopologyMismatch) {
				return err
			}
			if err != nil {
				s.logger.Error("command rejected", "cmd", cc.Command, "client", cc.ClientID, "err", err)
				notice = fmt.Sprintf("%s failed: %v", cc.Command, err)
			} else {
				s.logger.Debug("command applied", "cmd", cc.Command, "client", cc.ClientID, "result", notice)
			}
			s.broadcast(ClientEvent{Type: EventNotice, Message: notice})
		default:
			return nil
		}
	}
}

// apply runs one command against the simulation and describes the result.
func (s *Server) apply(cmd Command) (string, error) {
	onOff := func(name string, on bool) string {
		if on {
			return name + " on"
		}
		return name + " off"
	}

	switch cmd {
	case CommandTogglePause:
		if s.sim.TogglePause() {
			return "paused", nil
		}
		return "running", nil
	case CommandToggleWind:
		return onOff("wind", s.sim.ToggleWind()), nil
	case CommandToggleSphere:
		return onOff("sphere", s.sim.ToggleSphereCollision()), nil
	case CommandToggleCornerPins:
		return onOff("corner pins", s.sim.ToggleCornerPins()) + " (rebuild to apply)", nil
	case CommandToggleEdgePins:
		return onOff("edge pins", s.sim.ToggleEdgePins()) + " (rebuild to apply)", nil
	case CommandToggleMode:
		return "mode " + s.sim.ToggleMode().String(), nil
	case CommandMoreIterations, CommandFewerIterations:
		n := s.sim.Config().Iterations
		if cmd == CommandMoreIterations {
			n++
		} else {
			n = max(n-1, 0)
		}
		if err := s.sim.SetIterations(n); err != nil {
			return "", err
		}
		return fmt.Sprintf("iterations %d", n), nil
	case CommandForcePreset:
		return s.rebuildWith("force preset", s.sim.ApplyForcePreset)
	case CommandConstraintPreset:
		return s.rebuildWith("constraint preset", s.sim.ApplyConstraintPreset)
	case CommandRebuild:
		return s.rebuildWith("rebuilt", s.sim.Rebuild)
	}
	return "", fmt.Errorf("unknown command %d", int(cmd))
}

func (s *Server) rebuildWith(notice string, rebuild func() error) (string, error) {
	if err := rebuild(); err != nil {
		return "", err
	}
	s.accumulator = 0
	s.energy.Reset()
	s.logTopology(notice)
	return notice, nil
}

func (s *Server) logTopology(msg string) {
	topo := s.sim.Topology()
	cfg := s.sim.Config()
	s.logger.Info("topology "+msg,
		"grid", fmt.Sprintf("%dx%d", topo.Width, topo.Height),
		"springs", topo.SpringCount(),
		"triangles", len(topo.Indices)/3,
		"mode", cfg.Mode,
		"iterations", cfg.Iterations,
		"generation", s.sim.Generation(),
	)
}

// broadcast sends an event to every registered viewer without blocking.
func (s *Server) broadcast(ev ClientEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, handle := range s.clients {
		select {
		case handle.EventsCh <- ev:
		default:
		}
	}
}

// createSnapshot publishes an immutable view of the current state.
func (s *Server) createSnapshot() {
	s.mu.RLock()
	viewers := len(s.clients)
	s.mu.RUnlock()

	topo := s.sim.Topology()
	if s.pins == nil || s.pinsGeneration != s.sim.Generation() {
		s.pins = pinnedIndices(topo)
		s.pinsGeneration = s.sim.Generation()
	}

	cfg := s.sim.Config()
	snapshot := &Snapshot{
		Surface:   s.sim.Surface(),
		Sphere:    Sphere{Center: topo.Sphere.Pos, Radius: topo.Sphere.Radius},
		Pins:      s.pins,
		Config:    cfg,
		Stats:     s.sim.Stats(),
		Paused:    cfg.Paused,
		Tick:      s.sim.Tick(),
		WindPhase: s.sim.WindPhase(),
		Energy:    s.energy.Values(),
		Viewers:   viewers,
	}
	s.snapshot.Store(snapshot)
}

func pinnedIndices(topo *cloth.Topology) []int {
	pins := []int{}
	for i := range topo.Particles {
		if topo.Particles[i].Pinned {
			pins = append(pins, i)
		}
	}
	return pins
}
