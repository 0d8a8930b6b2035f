package server

import "fmt"

// Command is a viewer request applied by the server between ticks.
type Command int

const (
	CommandTogglePause Command = iota
	CommandToggleWind
	CommandToggleSphere
	CommandToggleCornerPins
	CommandToggleEdgePins
	CommandToggleMode
	CommandMoreIterations
	CommandFewerIterations
	CommandForcePreset
	CommandConstraintPreset
	CommandRebuild
)

var commandNames = [...]string{
	CommandTogglePause:      "toggle-pause",
	CommandToggleWind:       "toggle-wind",
	CommandToggleSphere:     "toggle-sphere",
	CommandToggleCornerPins: "toggle-corner-pins",
	CommandToggleEdgePins:   "toggle-edge-pins",
	CommandToggleMode:       "toggle-mode",
	CommandMoreIterations:   "more-iterations",
	CommandFewerIterations:  "fewer-iterations",
	CommandForcePreset:      "force-preset",
	CommandConstraintPreset: "constraint-preset",
	CommandRebuild:          "rebuild",
}

func (c Command) String() string {
	if c >= 0 && int(c) < len(commandNames) {
		return commandNames[c]
	}
	return "unknown"
}

// ParseCommand returns the command with the given name.
func ParseCommand(name string) (Command, error) {
	for i, n := range commandNames {
		if n == name {
			return Command(i), nil
		}
	}
	return 0, fmt.Errorf("unknown command %q", name)
}
