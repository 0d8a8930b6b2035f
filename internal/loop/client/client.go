// Package client renders the shared cloth for a single viewer and turns
// its key presses into server commands.
package client

import (
	"bufio"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tomz197/fabric/internal/draw"
	"github.com/tomz197/fabric/internal/input"
	"github.com/tomz197/fabric/internal/loop/config"
	"github.com/tomz197/fabric/internal/loop/server"
)

// noticeSeconds is how long a server notice stays on screen.
const noticeSeconds = 3.0

// actionCommands maps key actions to the server commands they issue.
var actionCommands = map[input.Action]server.Command{
	input.ActionTogglePause:      server.CommandTogglePause,
	input.ActionToggleWind:       server.CommandToggleWind,
	input.ActionToggleSphere:     server.CommandToggleSphere,
	input.ActionToggleCornerPins: server.CommandToggleCornerPins,
	input.ActionToggleEdgePins:   server.CommandToggleEdgePins,
	input.ActionToggleMode:       server.CommandToggleMode,
	input.ActionForcePreset:      server.CommandForcePreset,
	input.ActionConstraintPreset: server.CommandConstraintPreset,
	input.ActionRebuild:          server.CommandRebuild,
	input.ActionMoreIterations:   server.CommandMoreIterations,
	input.ActionFewerIterations:  server.CommandFewerIterations,
}

// Client handles rendering and input for a single connection.
type Client struct {
	server       server.ClothServer
	handle       *server.ClientHandle
	state        *ClientState
	view         *Viewpoint
	canvas       *draw.Canvas
	chunkWriter  *draw.ChunkWriter // Accumulates UI text for chunked output
	styles       styles
	writer       io.Writer
	inputStream  *input.Stream
	lastInput    time.Time
	username     string
	termSizeFunc draw.TermSizeFunc

	projected []draw.Point // per-vertex projection, reused across frames
	visible   []bool
}

// ClientOptions configures the client.
type ClientOptions struct {
	TermSizeFunc draw.TermSizeFunc
	Username     string
	// Renderer styles the HUD. Defaults to lipgloss.DefaultRenderer().
	Renderer *lipgloss.Renderer
}

// NewClient creates a new client connected to the given server.
func NewClient(cs server.ClothServer, r *bufio.Reader, w io.Writer, opts ClientOptions) *Client {
	termSizeFunc := opts.TermSizeFunc
	if termSizeFunc == nil {
		termSizeFunc = draw.DefaultTermSizeFunc
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}

	// Create canvas with clamped dimensions for max render resolution
	termWidth, termHeight, _ := draw.TerminalSizeRawWith(termSizeFunc)
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)
	canvas := draw.NewScaledCanvas(renderWidth, renderHeight, config.ViewWidth, config.ViewHeight)
	canvas.SetOffset(offsetCol, offsetRow)

	return &Client{
		server:       cs,
		handle:       cs.RegisterClient(opts.Username),
		state:        NewClientState(),
		view:         NewViewpoint(config.ViewWidth, config.ViewHeight),
		canvas:       canvas,
		chunkWriter:  draw.NewChunkWriter(w, offsetCol, offsetRow),
		styles:       newStyles(renderer),
		writer:       w,
		lastInput:    time.Now(),
		inputStream:  input.StartStream(r),
		username:     opts.Username,
		termSizeFunc: termSizeFunc,
	}
}

// Run starts the client loop. Blocks until the viewer quits, idles out or
// the server goes away.
func (c *Client) Run() error {
	draw.HideCursor(c.writer)
	defer draw.ShowCursor(c.writer)
	draw.ClearScreen(c.writer)

	lastTime := time.Now()

	for c.state.Running {
		frameStart := time.Now()
		c.state.delta = frameStart.Sub(lastTime)
		lastTime = frameStart

		c.processInput()
		c.processServerEvents()
		c.updateScreen()

		switch c.state.ViewState {
		case ViewStateWatching:
			c.updateWatchingState()
		case ViewStateShutdown:
			c.updateShutdownState()
		}

		if err := c.drawFrame(); err != nil {
			c.server.UnregisterClient(c.handle.ID)
			return err
		}

		// Frame timing
		elapsed := time.Since(frameStart)
		if elapsed < config.ClientTargetFrameTime {
			time.Sleep(config.ClientTargetFrameTime - elapsed)
		}
	}

	c.server.UnregisterClient(c.handle.ID)

	draw.ClearScreen(c.writer)
	return nil
}

// processInput reads input, applies local toggles and forwards the rest to
// the server.
func (c *Client) processInput() {
	c.state.Input = input.ReadInput(c.inputStream)

	if len(c.state.Input.Pressed) > 0 {
		c.lastInput = time.Now()
		c.state.isInactive = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityDisconnectUser {
		c.state.Running = false
	} else if time.Since(c.lastInput).Seconds() > config.InactivityWarnUser {
		c.state.isInactive = true
	}

	if c.state.ViewState == ViewStateWatching {
		for _, a := range c.state.Input.Actions {
			switch a {
			case input.ActionToggleGraph:
				c.state.ShowGraph = !c.state.ShowGraph
			case input.ActionToggleHelp:
				c.state.ShowHelp = !c.state.ShowHelp
			case input.ActionToggleOrbit:
				c.view.AutoOrbit = !c.view.AutoOrbit
			default:
				if cmd, ok := actionCommands[a]; ok {
					c.server.SendCommand(c.handle.ID, cmd)
				}
			}
		}
	}

	if c.state.Input.Quit {
		c.state.Running = false
	}
}

// processServerEvents handles events from the server.
func (c *Client) processServerEvents() {
	for {
		select {
		case event, ok := <-c.handle.EventsCh:
			if !ok {
				// Server closed the channel
				c.state.Running = false
				return
			}
			switch event.Type {
			case server.EventNotice:
				c.state.notice = event.Message
				c.state.noticeTimer = noticeSeconds
			case server.EventServerShutdown:
				c.state.ViewState = ViewStateShutdown
				c.state.shutdownTimer = config.ShutdownDisplaySeconds
			}
		default:
			return
		}
	}
}

// updateScreen handles terminal resize, clamping to max render resolution.
// On actual size changes, clears the terminal to remove residual pixels
// outside the new canvas area (e.g. old borders or offset content).
func (c *Client) updateScreen() {
	termWidth, termHeight, err := draw.TerminalSizeRawWith(c.termSizeFunc)
	if err != nil {
		return
	}
	renderWidth, renderHeight, offsetCol, offsetRow := clampTermSize(termWidth, termHeight)

	if renderWidth != c.canvas.TerminalWidth() || renderHeight != c.canvas.TerminalHeight() ||
		offsetCol != c.canvas.OffsetCol() || offsetRow != c.canvas.OffsetRow() {
		draw.ClearScreen(c.writer)
		c.canvas.Resize(renderWidth, renderHeight)
		c.canvas.ForceRedraw()
	}

	c.canvas.SetOffset(offsetCol, offsetRow)
	c.chunkWriter.SetOffset(offsetCol, offsetRow)
}

// clampTermSize clamps terminal dimensions to the max render resolution and computes
// the centering offset for the render area.
func clampTermSize(termWidth, termHeight int) (renderWidth, renderHeight, offsetCol, offsetRow int) {
	renderWidth = min(termWidth, config.MaxTermWidth)
	renderHeight = min(termHeight, config.MaxTermHeight)
	offsetCol = (termWidth - renderWidth) / 2
	offsetRow = (termHeight - renderHeight) / 2
	return
}

// updateWatchingState moves the viewpoint and ages the notice.
func (c *Client) updateWatchingState() {
	c.view.Update(c.server.GetSnapshot(), c.state.Input)

	if c.state.noticeTimer > 0 {
		c.state.noticeTimer -= c.state.delta.Seconds()
		if c.state.noticeTimer <= 0 {
			c.state.notice = ""
		}
	}
}

// updateShutdownState handles the shutdown screen countdown.
func (c *Client) updateShutdownState() {
	c.state.shutdownTimer -= c.state.delta.Seconds()
	if c.state.shutdownTimer <= 0 {
		c.state.Running = false
	}
}
