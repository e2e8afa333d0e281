package nlu

import (
	"fmt"

	"hark/pkg/protocol"
)

// The hub shard that drives the wheels.
const robotShard = "WHEELLY"

// Transmitter is the hub link used for dispatch. *protocol.Protocol
// satisfies it.
type Transmitter interface {
	TransmitReceive(v any) (*protocol.Message, error)
}

// Dispatch maps a translated command onto a hub message and returns
// the robot's reply line.
func Dispatch(cmd Command, hub Transmitter) (string, error) {
	var parts []string

	switch cmd.Name {
	case "move_to":
		x, okX := cmd.Args["x"]
		y, okY := cmd.Args["y"]
		if !okX || !okY {
			return "", fmt.Errorf("move_to needs x and y, got %v", cmd.Args)
		}
		parts = []string{robotShard, "MOVE", "TO", x, y}

	case "move":
		dir, okD := cmd.Args["direction"]
		speed, okS := cmd.Args["speed"]
		if !okD || !okS {
			return "", fmt.Errorf("move needs direction and speed, got %v", cmd.Args)
		}
		parts = []string{robotShard, "MOVE", "BY", dir, speed}

	case "scan":
		parts = []string{robotShard, "SCAN", "AREA"}
		if dir, ok := cmd.Args["direction"]; ok && dir != "" {
			parts = append(parts, dir)
		}

	case "halt":
		parts = []string{robotShard, "HALT", "NOW"}

	default:
		return "", fmt.Errorf("unknown command: %q", cmd.Name)
	}

	msg, err := hub.TransmitReceive(parts)
	if err != nil {
		return "", err
	}

	return msg.String(), nil
}
