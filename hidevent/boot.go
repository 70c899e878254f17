package hidevent

const bootKeyboardReportLen = 8

// KeyboardEvent is the boot-protocol keyboard report: one modifier byte and
// up to six concurrently pressed key codes.
type KeyboardEvent struct {
	Device    uint64
	Timestamp int64
	Modifiers uint8
	Keys      [6]uint8
}

func (e KeyboardEvent) ElapsedSec() float64 {
	return float64(Clock()-e.Timestamp) / 1e6
}

// KeyIsDown reports whether a key code appears in the pressed-key slots.
func (e KeyboardEvent) KeyIsDown(code uint8) bool {
	for _, k := range e.Keys {
		if k != 0 && k == code {
			return true
		}
	}
	return false
}

// ParseKeyboard projects a boot-protocol keyboard report. Reports shorter
// than the fixed boot layout are rejected.
func ParseKeyboard(raw RawReport) (KeyboardEvent, bool) {
	data := raw.Data
	if len(data) < bootKeyboardReportLen {
		return KeyboardEvent{}, false
	}
	e := KeyboardEvent{
		Device:    raw.Device,
		Timestamp: raw.Timestamp,
		Modifiers: data[0],
	}
	copy(e.Keys[:], data[2:8])
	return e, true
}

// Mouse button bits of the boot-protocol report.
const (
	MouseButtonLeft   = 1 << 0
	MouseButtonRight  = 1 << 1
	MouseButtonMiddle = 1 << 2
	MouseButton4      = 1 << 3
	MouseButton5      = 1 << 4
)

// MouseEvent is the boot-protocol mouse report: button bits plus relative
// motion and an optional wheel delta. The edge masks are zero straight out
// of ParseMouse; WithButtonEdges derives them from the preceding report.
type MouseEvent struct {
	Device    uint64
	Timestamp int64
	Buttons   uint8
	DeltaX    int8
	DeltaY    int8
	Wheel     int8

	PressedButtons  uint8
	ReleasedButtons uint8
}

func (e MouseEvent) ElapsedSec() float64 {
	return float64(Clock()-e.Timestamp) / 1e6
}

func (e MouseEvent) ButtonIsDown(mask uint8) bool {
	return e.Buttons&mask != 0
}

// WithButtonEdges fills the down/up edge masks against the button state of
// the device's previous report.
func (e MouseEvent) WithButtonEdges(prevButtons uint8) MouseEvent {
	e.PressedButtons = e.Buttons &^ prevButtons
	e.ReleasedButtons = prevButtons &^ e.Buttons
	return e
}

// ParseMouse projects a boot-protocol mouse report. The wheel byte is
// optional; anything shorter than buttons plus X/Y is rejected.
func ParseMouse(raw RawReport) (MouseEvent, bool) {
	data := raw.Data
	if len(data) < 3 {
		return MouseEvent{}, false
	}
	e := MouseEvent{
		Device:    raw.Device,
		Timestamp: raw.Timestamp,
		Buttons:   data[0],
		DeltaX:    int8(data[1]),
		DeltaY:    int8(data[2]),
	}
	if len(data) > 3 {
		e.Wheel = int8(data[3])
	}
	return e, true
}
