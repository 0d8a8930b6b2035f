// Package input turns raw terminal bytes into viewer controls.
package input

import (
	"bufio"
	"time"
)

// keyHoldDuration is how long a key is considered "held" after its last press.
const keyHoldDuration = 30 * time.Millisecond

// Action is a one-shot command triggered by a single key press.
type Action int

const (
	ActionTogglePause Action = iota
	ActionToggleWind
	ActionToggleSphere
	ActionToggleCornerPins
	ActionToggleEdgePins
	ActionToggleMode
	ActionForcePreset
	ActionConstraintPreset
	ActionRebuild
	ActionMoreIterations
	ActionFewerIterations
	ActionToggleGraph
	ActionToggleOrbit
	ActionToggleHelp
)

// Input represents the current frame's input state.
type Input struct {
	Quit  bool
	Left  bool // held: orbit left
	Right bool // held: orbit right
	Up    bool // held: zoom in
	Down  bool // held: zoom out
	Enter bool

	// Actions lists one-shot commands in the order they were typed.
	Actions []Action
	Pressed []byte
}

// Has reports whether a was typed this frame.
func (in Input) Has(a Action) bool {
	for _, got := range in.Actions {
		if got == a {
			return true
		}
	}
	return false
}

// keyState tracks the last time each held key was pressed.
type keyState struct {
	quit  time.Time
	left  time.Time
	right time.Time
	up    time.Time
	down  time.Time
	enter time.Time
}

// Stream delivers input bytes via a channel and tracks key state for held keys.
type Stream struct {
	ch     chan byte
	state  keyState
	closed bool
}

// StartStream spawns a goroutine that reads from r and sends bytes to the stream.
func StartStream(r *bufio.Reader) *Stream {
	s := &Stream{ch: make(chan byte, 128)}
	go func() {
		for {
			b, err := r.ReadByte()
			if err != nil {
				close(s.ch)
				return
			}
			s.ch <- b
		}
	}()
	return s
}

// Closed reports whether the underlying reader has ended.
func (s *Stream) Closed() bool { return s.closed }

// ReadInput drains all available bytes from the stream (non-blocking).
// Arrow keys are held controls; letter keys map to one-shot actions.
// A closed stream reads as Quit.
func ReadInput(s *Stream) Input {
	return readAt(s, time.Now())
}

func readAt(s *Stream, now time.Time) Input {
	var buf []byte

drain:
	for {
		select {
		case b, ok := <-s.ch:
			if !ok {
				s.closed = true
				break drain
			}
			buf = append(buf, b)
		default:
			break drain
		}
	}

	var actions []Action
	for i := 0; i < len(buf); i++ {
		b := buf[i]

		// CSI sequence: ESC [ <code>
		if b == '\x1b' && i+2 < len(buf) && buf[i+1] == '[' {
			switch buf[i+2] {
			case 'A':
				s.state.up = now
			case 'B':
				s.state.down = now
			case 'C':
				s.state.right = now
			case 'D':
				s.state.left = now
			}
			i += 2
			continue
		}

		if a, ok := actionForByte(b); ok {
			actions = append(actions, a)
			continue
		}
		applyByteToState(&s.state, b, now)
	}

	return Input{
		Quit:    s.closed || now.Sub(s.state.quit) < keyHoldDuration,
		Left:    now.Sub(s.state.left) < keyHoldDuration,
		Right:   now.Sub(s.state.right) < keyHoldDuration,
		Up:      now.Sub(s.state.up) < keyHoldDuration,
		Down:    now.Sub(s.state.down) < keyHoldDuration,
		Enter:   now.Sub(s.state.enter) < keyHoldDuration,
		Actions: actions,
		Pressed: buf,
	}
}

// actionForByte maps a key to its one-shot action.
func actionForByte(b byte) (Action, bool) {
	switch b {
	case 'p', 'P', ' ':
		return ActionTogglePause, true
	case 'w', 'W':
		return ActionToggleWind, true
	case 's', 'S':
		return ActionToggleSphere, true
	case 'c', 'C':
		return ActionToggleCornerPins, true
	case 'e', 'E':
		return ActionToggleEdgePins, true
	case 'm', 'M':
		return ActionToggleMode, true
	case 'h', 'H':
		return ActionForcePreset, true
	case 'k', 'K':
		return ActionConstraintPreset, true
	case 'r', 'R':
		return ActionRebuild, true
	case '+', '=':
		return ActionMoreIterations, true
	case '-', '_':
		return ActionFewerIterations, true
	case 'g', 'G':
		return ActionToggleGraph, true
	case 'o', 'O':
		return ActionToggleOrbit, true
	case '?':
		return ActionToggleHelp, true
	}
	return 0, false
}

// applyByteToState updates the key state timestamps based on the pressed byte.
func applyByteToState(state *keyState, b byte, now time.Time) {
	switch b {
	case 'q', 'Q', '\x03':
		state.quit = now
	case 'a', 'A', 'j', 'J':
		state.left = now
	case 'd', 'D', 'l', 'L':
		state.right = now
	case 'i', 'I':
		state.up = now
	case 'u', 'U':
		state.down = now
	case '\n', '\r':
		state.enter = now
	}
}
