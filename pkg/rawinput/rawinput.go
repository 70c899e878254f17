// Package rawinput is the listening shell around the HID decoding
// pipeline. A Listener owns one dispatch goroutine that receives raw input
// notifications from a backend in arrival order, consults the capability
// store, and invokes the registered callbacks synchronously on that
// goroutine.
package rawinput

import (
	"context"
	"encoding/json"

	"github.com/ttsuki/librawinput/hidevent"
)

// DeviceType classifies a device by its top-level collection usage.
// Values combine into a bitmask for enumeration and subscription filters.
type DeviceType uint8

const (
	DeviceMouse DeviceType = 1 << iota
	DeviceKeyboard
	DeviceJoystick
	DeviceGamePad
)

const (
	DeviceNone DeviceType = 0
	DeviceAll             = DeviceMouse | DeviceKeyboard | DeviceJoystick | DeviceGamePad
)

func (t DeviceType) Has(mask DeviceType) bool {
	return t&mask != 0
}

func (t DeviceType) String() string {
	switch t {
	case DeviceMouse:
		return "mouse"
	case DeviceKeyboard:
		return "keyboard"
	case DeviceJoystick:
		return "joystick"
	case DeviceGamePad:
		return "gamepad"
	case DeviceNone:
		return "none"
	default:
		return "mixed"
	}
}

func (t DeviceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// DeviceDescriptor identifies one enumerated input device. Handle is unique
// for the lifetime of the process; a device that disconnects and reconnects
// receives a new handle. The string fields are best-effort and may be empty.
type DeviceDescriptor struct {
	Handle       uint64
	Type         DeviceType
	Path         string
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	Serial       string
}

// Notification is one backend event delivered to the dispatch goroutine.
// Exactly one of Report and Attached is meaningful: a report notification
// carries the transient raw bytes, an attach notification announces a device
// that appeared after startup.
type Notification struct {
	Type     DeviceType
	Report   hidevent.RawReport
	Attached *DeviceDescriptor
}

// Publisher delivers one backend notification to the owning listener. It
// blocks until the callback chain for the notification has returned, so a
// transient report buffer may be reused as soon as the call does. It
// returns false once the listener is shutting down.
type Publisher func(ctx context.Context, n Notification) bool

// Backend produces raw input notifications for a listener. Start blocks
// until ctx is cancelled; Ready is closed once the backend has enumerated
// devices and is armed to deliver notifications.
type Backend interface {
	Start(ctx context.Context, pub Publisher) error
	Ready() <-chan struct{}
	ListDevices(mask DeviceType) ([]DeviceDescriptor, error)
	ReportDescriptor(handle uint64) ([]byte, error)
}
