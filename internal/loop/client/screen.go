package client

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/tomz197/fabric/internal/draw"
	"github.com/tomz197/fabric/internal/loop/config"
	"github.com/tomz197/fabric/internal/loop/server"
)

// styles holds the HUD styles bound to one renderer.
type styles struct {
	status lipgloss.Style
	on     lipgloss.Style
	off    lipgloss.Style
	paused lipgloss.Style
	notice lipgloss.Style
	panel  lipgloss.Style
	title  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		status: r.NewStyle().Foreground(lipgloss.Color("252")),
		on:     r.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		off:    r.NewStyle().Foreground(lipgloss.Color("240")),
		paused: r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Bold(true).Padding(0, 1),
		notice: r.NewStyle().Foreground(lipgloss.Color("219")).Italic(true),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
	}
}

// drawFrame draws the current frame.
func (c *Client) drawFrame() error {
	// On state, inactivity or overlay transitions, do a full terminal clear
	// so UI elements from the previous state don't persist on screen.
	overlays := [2]bool{c.state.ShowGraph, c.state.ShowHelp}
	if c.state.ViewState != c.state.prevViewState ||
		c.state.isInactive != c.state.wasInactive ||
		overlays != c.state.prevOverlays {
		c.chunkWriter.WriteString("\033[H\033[2J")
		c.canvas.ForceRedraw()
		c.state.prevViewState = c.state.ViewState
		c.state.wasInactive = c.state.isInactive
		c.state.prevOverlays = overlays
	}

	c.canvas.Clear()

	snapshot := c.server.GetSnapshot()
	if c.state.ViewState == ViewStateWatching && !c.state.isInactive {
		c.drawCloth(snapshot)
	}

	// Render canvas to terminal
	c.canvas.Render(c.chunkWriter)

	// Draw border when terminal exceeds max render resolution
	c.canvas.RenderBorder(c.chunkWriter)

	c.drawUI(snapshot)

	return c.chunkWriter.Flush()
}

// drawCloth draws the triangle wireframe, pinned particles and the sphere.
func (c *Client) drawCloth(snapshot *server.Snapshot) {
	surf := &snapshot.Surface
	n := len(surf.Vertices)
	if cap(c.projected) < n {
		c.projected = make([]draw.Point, n)
		c.visible = make([]bool, n)
	}
	c.projected = c.projected[:n]
	c.visible = c.visible[:n]
	for i, v := range surf.Vertices {
		c.projected[i], c.visible[i] = c.view.Project(v)
	}

	for t := 0; t+2 < len(surf.Indices); t += 3 {
		a, b, d := surf.Indices[t], surf.Indices[t+1], surf.Indices[t+2]
		if !c.visible[a] || !c.visible[b] || !c.visible[d] {
			continue
		}
		c.canvas.DrawLine(c.projected[a], c.projected[b])
		c.canvas.DrawLine(c.projected[b], c.projected[d])
		c.canvas.DrawLine(c.projected[d], c.projected[a])
	}

	for _, i := range snapshot.Pins {
		if i < n && c.visible[i] {
			c.canvas.DrawMarker(c.projected[i], 1)
		}
	}

	if snapshot.Config.Sphere {
		sp := snapshot.Sphere
		center, ok1 := c.view.Project(sp.Center)
		edge, ok2 := c.view.Project(sp.Center.Add(c.view.Right().Mul(sp.Radius)))
		if ok1 && ok2 {
			c.canvas.DrawCircle(center, math.Hypot(edge.X-center.X, edge.Y-center.Y), 36)
		}
	}
}

// drawUI draws the text overlay.
func (c *Client) drawUI(snapshot *server.Snapshot) {
	termWidth := c.canvas.TerminalWidth()
	termHeight := c.canvas.TerminalHeight()
	centerX := termWidth / 2
	centerY := termHeight / 2

	if c.state.ViewState == ViewStateShutdown {
		c.drawShutdownScreen(centerX, centerY)
		return
	}

	if c.state.isInactive {
		c.drawInactivityScreen(centerX, centerY)
		return
	}

	c.drawStatus(termWidth, termHeight, snapshot)
	if c.state.ShowHelp {
		c.drawBlock(2, 3, c.helpPanel())
	}
	if c.state.ShowGraph {
		graph := c.energyPanel(snapshot)
		w := lipgloss.Width(graph)
		c.drawBlock(termWidth-w, 3, graph)
	}
}

// writeText writes s at canvas position (col, row) and marks the cells so
// the next canvas render repaints them.
func (c *Client) writeText(col, row int, s string) {
	if row < 1 || row > c.canvas.TerminalHeight() || col < 1 {
		return
	}
	c.chunkWriter.WriteAt(col, row, s)
	c.canvas.MarkTextDirty(col, row, lipgloss.Width(s))
}

// drawBlock writes a multi-line block with its top-left corner at (col, row).
func (c *Client) drawBlock(col, row int, block string) {
	for i, line := range strings.Split(block, "\n") {
		c.writeText(col, row+i, line)
	}
}

// drawStatus draws the top status line and the bottom notice line.
func (c *Client) drawStatus(termWidth, termHeight int, snapshot *server.Snapshot) {
	st := c.styles
	cfg := snapshot.Config
	flag := func(name string, on bool) string {
		if on {
			return st.on.Render(name)
		}
		return st.off.Render(name)
	}

	parts := []string{
		st.status.Render(fmt.Sprintf("tick %-7d", snapshot.Tick)),
		st.status.Render(fmt.Sprintf("%s x%d", cfg.Mode, cfg.Iterations)),
		flag("wind", cfg.Wind),
		flag("sphere", cfg.Sphere),
		flag("corners", cfg.CornerPins),
		flag("edge", cfg.EdgePins),
		st.status.Render(fmt.Sprintf("contacts %-4d", snapshot.Stats.Contacts)),
		st.status.Render(fmt.Sprintf("viewers %-3d", snapshot.Viewers)),
	}
	if snapshot.Paused {
		parts = append(parts, st.paused.Render("PAUSED"))
	}
	c.writeText(2, 1, strings.Join(parts, "  "))

	if c.state.notice != "" {
		c.writeText(2, termHeight, st.notice.Render(c.state.notice))
	}

	hint := st.off.Render("? help  q quit")
	c.writeText(termWidth-lipgloss.Width(hint), termHeight, hint)
}

func (c *Client) helpPanel() string {
	lines := []string{
		c.styles.title.Render("Controls"),
		"p / space     pause",
		"w             wind",
		"s             sphere",
		"c / e         corner / edge pins",
		"r             rebuild",
		"h / k         force / constraint preset",
		"m             spring mode",
		"+ / -         iterations",
		"a d / arrows  orbit   o auto orbit",
		"i / u         zoom in / out",
		"g             energy graph",
	}
	return c.styles.panel.Render(strings.Join(lines, "\n"))
}

// energyPanel plots the kinetic energy history.
func (c *Client) energyPanel(snapshot *server.Snapshot) string {
	data := snapshot.Energy
	if len(data) < 2 {
		return c.styles.panel.Render("kinetic energy\n(waiting for samples)")
	}
	plot := asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(min(config.EnergyHistoryLen/2, 48)),
		asciigraph.Precision(1),
		asciigraph.Caption("kinetic energy"),
	)
	return c.styles.panel.Render(plot)
}

// drawInactivityScreen draws the inactivity warning screen.
func (c *Client) drawInactivityScreen(centerX, centerY int) {
	cw := c.chunkWriter
	title := "INACTIVITY WARNING"
	cw.WriteAt(centerX-len(title)/2, centerY-2, title)

	msg := fmt.Sprintf(
		"You have been inactive for too long. You will be disconnected in %d seconds.",
		int(config.InactivityDisconnectUser-time.Since(c.lastInput).Seconds()),
	)
	cw.WriteAt(centerX-len(msg)/2, centerY, msg)

	hint := "Press any key to continue"
	cw.WriteAt(centerX-len(hint)/2, centerY+2, hint)
}

// drawShutdownScreen draws the server shutdown notification screen.
func (c *Client) drawShutdownScreen(centerX, centerY int) {
	cw := c.chunkWriter
	title := "SERVER SHUTTING DOWN"
	cw.WriteAt(centerX-len(title)/2, centerY-3, title)

	msg := "The simulation host is stopping. Please reconnect in a moment."
	cw.WriteAt(centerX-len(msg)/2, centerY-1, msg)

	remaining := int(c.state.shutdownTimer) + 1
	countdown := fmt.Sprintf("Disconnecting in %d seconds...", remaining)
	cw.WriteAt(centerX-len(countdown)/2, centerY+1, countdown)

	hint := "Press Q to disconnect now"
	cw.WriteAt(centerX-len(hint)/2, centerY+3, hint)
}
