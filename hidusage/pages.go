// Package hidusage carries the usage-page and usage constants the joystick
// normalization tables are written against, plus human-readable names for
// logging and CLI output.
package hidusage

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

// Usage pages.
const (
	PageGenericDesktop uint16 = 0x01
	PageSimulation     uint16 = 0x02
	PageGame           uint16 = 0x05
	PageKeyboard       uint16 = 0x07
	PageLED            uint16 = 0x08
	PageButton         uint16 = 0x09
)

// Generic Desktop page usages.
const (
	GenericPointer   uint16 = 0x01
	GenericMouse     uint16 = 0x02
	GenericJoystick  uint16 = 0x04
	GenericGamePad   uint16 = 0x05
	GenericKeyboard  uint16 = 0x06
	GenericKeypad    uint16 = 0x07
	GenericMultiAxis uint16 = 0x08

	GenericX         uint16 = 0x30
	GenericY         uint16 = 0x31
	GenericZ         uint16 = 0x32
	GenericRx        uint16 = 0x33
	GenericRy        uint16 = 0x34
	GenericRz        uint16 = 0x35
	GenericSlider    uint16 = 0x36
	GenericDial      uint16 = 0x37
	GenericWheel     uint16 = 0x38
	GenericHatSwitch uint16 = 0x39
)

// Simulation Controls page usages.
const (
	SimulationRudder      uint16 = 0xba
	SimulationThrottle    uint16 = 0xbb
	SimulationAccelerator uint16 = 0xc4
	SimulationBrake       uint16 = 0xc5
	SimulationSteering    uint16 = 0xc8
)

// Game Controls page usages.
const (
	GamePointOfView uint16 = 0x20
)

var pageNames = map[uint16]string{
	PageGenericDesktop: "GenericDesktop",
	PageSimulation:     "Simulation",
	PageGame:           "Game",
	PageKeyboard:       "Keyboard",
	PageLED:            "LED",
	PageButton:         "Button",
}

var usageNames = map[uint16]map[uint16]string{
	PageGenericDesktop: {
		GenericPointer:   "Pointer",
		GenericMouse:     "Mouse",
		GenericJoystick:  "Joystick",
		GenericGamePad:   "GamePad",
		GenericKeyboard:  "Keyboard",
		GenericKeypad:    "Keypad",
		GenericMultiAxis: "MultiAxisController",
		GenericX:         "X",
		GenericY:         "Y",
		GenericZ:         "Z",
		GenericRx:        "Rx",
		GenericRy:        "Ry",
		GenericRz:        "Rz",
		GenericSlider:    "Slider",
		GenericDial:      "Dial",
		GenericWheel:     "Wheel",
		GenericHatSwitch: "HatSwitch",
	},
	PageSimulation: {
		SimulationRudder:      "Rudder",
		SimulationThrottle:    "Throttle",
		SimulationAccelerator: "Accelerator",
		SimulationBrake:       "Brake",
		SimulationSteering:    "Steering",
	},
	PageGame: {
		GamePointOfView: "PointOfView",
	},
}

// PageName returns the page name, or the hex code for unknown pages.
func PageName(page uint16) string {
	if name, ok := pageNames[page]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", page)
}

// Name returns a "Page/Usage" label for a usage. Button usages are rendered
// as their button index, unknown usages as hex.
func Name(page, usage uint16) string {
	if page == PageButton {
		return fmt.Sprintf("Button/%d", usage)
	}
	if names, ok := usageNames[page]; ok {
		if name, ok := names[usage]; ok {
			return PageName(page) + "/" + name
		}
	}
	return fmt.Sprintf("%s/0x%02x", PageName(page), usage)
}

// Alias returns a snake_case "page.usage" identifier, used as a key in CLI
// output and config files.
func Alias(page, usage uint16) string {
	if page == PageButton {
		return fmt.Sprintf("button.%d", usage)
	}
	name := fmt.Sprintf("0x%02x", usage)
	if names, ok := usageNames[page]; ok {
		if n, ok := names[usage]; ok {
			name = n
		}
	}
	return strcase.ToSnake(PageName(page)) + "." + strcase.ToSnake(name)
}
