// Package joystick maps generic capability-driven HID events onto the
// conventional joystick model: six centered axes, four sliders, two hat
// switches and a single folded 64-bit button set.
package joystick

import (
	"math"

	"github.com/ttsuki/librawinput/hidevent"
	"github.com/ttsuki/librawinput/hidusage"
)

// Axis slot indices of Event.
const (
	axisX = iota
	axisY
	axisZ
	axisRotX
	axisRotY
	axisRotZ
	axisCount
)

const (
	sliderCount = 4
	hatCount    = 2
)

// Axis is an optional normalized reading. Centered axes are in [-1, 1],
// sliders in [0, 1]. Present is false when no sample mapped to the slot or
// the raw value fell outside its declared logical range.
type Axis struct {
	Value   float64
	Present bool
}

// Hat is an optional hat-switch reading. Value is the angle as a fraction
// of a full turn in [0, 1]. NX and NY are the unit-circle projection of
// that angle, both zero when the hat is absent.
type Hat struct {
	Value   float64
	Present bool
	NX      float64
	NY      float64
}

// Event is the normalized joystick state decoded from one input report.
// Buttons holds the folded button-page banks, bit i being the i-th button
// in bank-then-index order; ButtonCount is the number of folded usages.
type Event struct {
	Device    uint64
	Timestamp int64

	X    Axis
	Y    Axis
	Z    Axis
	RotX Axis
	RotY Axis
	RotZ Axis

	Sliders [sliderCount]Axis
	Hats    [hatCount]Hat

	ButtonCount int
	Buttons     uint64
}

// ElapsedSec returns the age of the event in seconds.
func (e Event) ElapsedSec() float64 {
	return float64(hidevent.Clock()-e.Timestamp) / 1e6
}

// normalizer tracks which slot was assigned by which usage page. A slot is
// written once per page: a second sample from the same page is ignored,
// while a sample from a different page replaces the earlier assignment.
type normalizer struct {
	out Event

	axisPages   [axisCount]uint16
	axisSet     [axisCount]bool
	sliderPages [sliderCount]uint16
	sliderSet   [sliderCount]bool
	hatSet      [hatCount]bool
	nextSlider  int
	nextHat     int
}

// FromHidEvent interprets the generic samples of a decoded report against
// the joystick usage conventions. It is a pure function of its input: an
// event with no recognized samples produces an all-absent result.
func FromHidEvent(src hidevent.Event) Event {
	n := normalizer{out: Event{Device: src.Device, Timestamp: src.Timestamp}}
	for _, s := range src.Values.All() {
		n.dispatch(s)
	}
	n.foldButtons(src.Buttons)
	return n.out
}

func (n *normalizer) dispatch(s hidevent.ValueSample) {
	switch s.UsagePage {
	case hidusage.PageGenericDesktop:
		switch s.UsageID {
		case hidusage.GenericX:
			n.setAxis(axisX, s)
		case hidusage.GenericY:
			n.setAxis(axisY, s)
		case hidusage.GenericZ:
			n.setAxis(axisZ, s)
		case hidusage.GenericRx:
			n.setAxis(axisRotX, s)
		case hidusage.GenericRy:
			n.setAxis(axisRotY, s)
		case hidusage.GenericRz:
			n.setAxis(axisRotZ, s)
		case hidusage.GenericSlider:
			if n.nextSlider < sliderCount {
				n.setSlider(n.nextSlider, s)
				n.nextSlider++
			}
		case hidusage.GenericHatSwitch:
			if n.nextHat < hatCount {
				n.setHat(n.nextHat, s)
				n.nextHat++
			}
		}
	case hidusage.PageSimulation:
		switch s.UsageID {
		case hidusage.SimulationSteering:
			n.setAxis(axisX, s)
		case hidusage.SimulationAccelerator:
			n.setAxis(axisY, s)
		case hidusage.SimulationBrake:
			n.setAxis(axisZ, s)
		case hidusage.SimulationRudder:
			n.setAxis(axisRotZ, s)
		case hidusage.SimulationThrottle:
			n.setSlider(0, s)
			if n.nextSlider == 0 {
				n.nextSlider = 1
			}
		}
	case hidusage.PageGame:
		if s.UsageID == hidusage.GamePointOfView && !n.hatSet[0] {
			n.setHat(0, s)
			if n.nextHat == 0 {
				n.nextHat = 1
			}
		}
	}
}

func (n *normalizer) setAxis(idx int, s hidevent.ValueSample) {
	if n.axisSet[idx] && n.axisPages[idx] == s.UsagePage {
		return
	}
	n.axisSet[idx] = true
	n.axisPages[idx] = s.UsagePage
	*n.axisField(idx) = Axis{Value: axis(s.Value, s.LogicalMin, s.LogicalMax), Present: true}
}

func (n *normalizer) axisField(idx int) *Axis {
	switch idx {
	case axisX:
		return &n.out.X
	case axisY:
		return &n.out.Y
	case axisZ:
		return &n.out.Z
	case axisRotX:
		return &n.out.RotX
	case axisRotY:
		return &n.out.RotY
	default:
		return &n.out.RotZ
	}
}

func (n *normalizer) setSlider(idx int, s hidevent.ValueSample) {
	if n.sliderSet[idx] && n.sliderPages[idx] == s.UsagePage {
		return
	}
	n.sliderSet[idx] = true
	n.sliderPages[idx] = s.UsagePage
	v, ok := throttle(s.Value, s.LogicalMin, s.LogicalMax)
	n.out.Sliders[idx] = Axis{Value: v, Present: ok}
}

func (n *normalizer) setHat(idx int, s hidevent.ValueSample) {
	n.hatSet[idx] = true
	v, ok := throttle(s.Value, s.LogicalMin, s.LogicalMax)
	h := Hat{Value: v, Present: ok}
	if ok {
		h.NX = math.Cos(v * 2 * math.Pi)
		h.NY = math.Sin(v * 2 * math.Pi)
	}
	n.out.Hats[idx] = h
}

func (n *normalizer) foldButtons(banks hidevent.BankList) {
	offset := 0
	for _, b := range banks.All() {
		if b.UsagePage != hidusage.PageButton {
			continue
		}
		if offset >= 64 {
			break
		}
		n.out.Buttons |= b.Pressed << uint(offset)
		offset += b.Count
		if offset > 64 {
			offset = 64
		}
	}
	n.out.ButtonCount = offset
}

// axis scales a raw value against half the logical span. The range origin
// is deliberately ignored, so a [0,255] and a [-128,127] declaration
// normalize identically and a raw value equal to the half-span maps to 0.
func axis(value, min, max int32) float64 {
	half := (float64(max) - float64(min)) / 2
	if half <= 0 {
		return 0
	}
	return clamp((float64(value)-half)/half, -1, 1)
}

// throttle scales a raw value linearly onto [0, 1]. A value outside the
// declared logical range is a missing reading, not a saturated one.
func throttle(value, min, max int32) (float64, bool) {
	if value < min || value > max {
		return 0, false
	}
	span := float64(max) - float64(min)
	if span <= 0 {
		return 0, true
	}
	return clamp((float64(value)-float64(min))/span, 0, 1), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
