package client

import (
	"time"

	"github.com/tomz197/fabric/internal/input"
)

// ViewState represents the current phase of a viewer.
type ViewState int

const (
	ViewStateWatching ViewState = iota // Rendering the cloth
	ViewStateShutdown                  // Server is shutting down
)

// ClientState holds per-viewer state. Each client has its own instance.
type ClientState struct {
	Input     input.Input
	ViewState ViewState
	Running   bool          // Client loop running
	delta     time.Duration // Frame delta time (client-side)

	ShowGraph bool
	ShowHelp  bool

	notice      string  // last server notice
	noticeTimer float64 // seconds left to show notice

	shutdownTimer float64 // Countdown before auto-disconnect on shutdown
	isInactive    bool    // Whether the client is in inactive warning state

	prevViewState ViewState
	wasInactive   bool
	prevOverlays  [2]bool // graph and help visibility last frame
}

// NewClientState creates a new initialized client state.
func NewClientState() *ClientState {
	return &ClientState{
		ViewState: ViewStateWatching,
		Running:   true,
		ShowHelp:  true,
	}
}
