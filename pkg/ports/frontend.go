package ports

import "image"

// Key is a logical input key understood by the scrubber.
type Key int

const (
	KeyNone Key = iota
	KeyAdvance
	KeyRetreat
	KeyQuit
)

// String returns the string representation of the key.
func (k Key) String() string {
	switch k {
	case KeyAdvance:
		return "advance"
	case KeyRetreat:
		return "retreat"
	case KeyQuit:
		return "quit"
	default:
		return "none"
	}
}

// InputEvent is a key press or release.
type InputEvent struct {
	Key     Key
	Pressed bool
}

// Frontend abstracts the window or terminal that owns input and presentation.
type Frontend interface {
	// Events returns the channel on which input events are delivered.
	Events() <-chan InputEvent

	// Present shows img with a one-line status text.
	Present(img image.Image, status string) error

	// Close restores the display and stops event delivery.
	Close()
}
