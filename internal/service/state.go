package service

import "fmt"

// State of a single request. A request moves forward only:
// Idle -> Downscaling -> Tinting -> Blurring -> Done, or to Failed from any
// state before Done.
type State int32

const (
	Idle State = iota
	Downscaling
	Tinting
	Blurring
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Downscaling:
		return "downscaling"
	case Tinting:
		return "tinting"
	case Blurring:
		return "blurring"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
