package joystick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttsuki/librawinput/hidevent"
	"github.com/ttsuki/librawinput/hidusage"
)

func sample(page, usage uint16, value, min, max int32) hidevent.ValueSample {
	return hidevent.ValueSample{UsagePage: page, UsageID: usage, Value: value, LogicalMin: min, LogicalMax: max}
}

func genericSample(usage uint16, value, min, max int32) hidevent.ValueSample {
	return sample(hidusage.PageGenericDesktop, usage, value, min, max)
}

func buildEvent(values []hidevent.ValueSample, banks []hidevent.ButtonBank) hidevent.Event {
	var e hidevent.Event
	for _, v := range values {
		e.Values.Push(v)
	}
	for _, b := range banks {
		e.Buttons.Push(b)
	}
	return e
}

func TestAxisNormalization(t *testing.T) {
	tests := []struct {
		name            string
		value, min, max int32
		want            float64
	}{
		{"at minimum", 0, 0, 255, -1},
		{"at center", 127, 0, 255, -0.00392},
		{"at maximum", 255, 0, 255, 1},
		{"at exact half-span", 127, 0, 254, 0},
		// The range origin is ignored, so a signed declaration of the same
		// width normalizes exactly like the unsigned one.
		{"signed at raw zero", 0, -128, 127, -1},
		{"signed at raw 127", 127, -128, 127, -0.00392},
		{"signed at raw minimum", -128, -128, 127, -1},
		{"clamped below", -10, 0, 255, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
				genericSample(hidusage.GenericX, tc.value, tc.min, tc.max),
			}, nil))
			require.True(t, ev.X.Present)
			assert.InDelta(t, tc.want, ev.X.Value, 1e-3)
			assert.GreaterOrEqual(t, ev.X.Value, -1.0)
			assert.LessOrEqual(t, ev.X.Value, 1.0)
		})
	}
}

func TestThrottleNormalization(t *testing.T) {
	ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
		genericSample(hidusage.GenericSlider, 0, 0, 255),
		genericSample(hidusage.GenericSlider, 255, 0, 255),
		genericSample(hidusage.GenericSlider, 300, 0, 255),
	}, nil))

	require.True(t, ev.Sliders[0].Present)
	assert.Equal(t, 0.0, ev.Sliders[0].Value)
	require.True(t, ev.Sliders[1].Present)
	assert.Equal(t, 1.0, ev.Sliders[1].Value)
	// Out-of-range raw values are missing readings, not saturated ones.
	assert.False(t, ev.Sliders[2].Present)
	assert.False(t, ev.Sliders[3].Present)
}

func TestHatSwitchProjection(t *testing.T) {
	// Quarter turn: hat value 2 of 0..7 normalizes to 2/7 of a turn; use an
	// exact 0.25 fraction instead so the projection lands on the unit axes.
	ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
		genericSample(hidusage.GenericHatSwitch, 1, 0, 4),
	}, nil))

	h := ev.Hats[0]
	require.True(t, h.Present)
	assert.InDelta(t, 0.25, h.Value, 1e-9)
	assert.InDelta(t, 0.0, h.NX, 1e-9)
	assert.InDelta(t, 1.0, h.NY, 1e-9)
}

func TestHatSwitchNullState(t *testing.T) {
	ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
		genericSample(hidusage.GenericHatSwitch, 8, 0, 7),
	}, nil))

	h := ev.Hats[0]
	assert.False(t, h.Present)
	assert.Zero(t, h.NX)
	assert.Zero(t, h.NY)
}

func TestButtonFolding(t *testing.T) {
	ev := FromHidEvent(buildEvent(nil, []hidevent.ButtonBank{
		{UsagePage: hidusage.PageButton, UsageMinimum: 1, UsageMaximum: 3, Count: 3, Pressed: 0b101},
		{UsagePage: hidusage.PageButton, UsageMinimum: 4, UsageMaximum: 5, Count: 2, Pressed: 0b11},
		{UsagePage: hidusage.PageLED, UsageMinimum: 1, UsageMaximum: 8, Count: 8, Pressed: 0xff},
	}))

	assert.Equal(t, 5, ev.ButtonCount)
	assert.Equal(t, uint64(0b11101), ev.Buttons)
}

func TestButtonFoldingCapsAt64(t *testing.T) {
	ev := FromHidEvent(buildEvent(nil, []hidevent.ButtonBank{
		{UsagePage: hidusage.PageButton, UsageMinimum: 1, UsageMaximum: 60, Count: 60, Pressed: 1},
		{UsagePage: hidusage.PageButton, UsageMinimum: 61, UsageMaximum: 70, Count: 10, Pressed: 0b1111},
		{UsagePage: hidusage.PageButton, UsageMinimum: 71, UsageMaximum: 72, Count: 2, Pressed: 0b11},
	}))

	assert.Equal(t, 64, ev.ButtonCount)
	assert.Equal(t, uint64(1|0b1111<<60), ev.Buttons)
}

func TestSimulationPageOverridesGenericDesktop(t *testing.T) {
	ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
		genericSample(hidusage.GenericX, 0, 0, 255),
		genericSample(hidusage.GenericX, 255, 0, 255), // same page, ignored
		sample(hidusage.PageSimulation, hidusage.SimulationSteering, 255, 0, 255),
	}, nil))

	require.True(t, ev.X.Present)
	assert.InDelta(t, 1.0, ev.X.Value, 1e-9)
}

func TestSimulationThrottleTakesSliderZero(t *testing.T) {
	ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
		genericSample(hidusage.GenericSlider, 0, 0, 255),
		sample(hidusage.PageSimulation, hidusage.SimulationThrottle, 255, 0, 255),
		genericSample(hidusage.GenericSlider, 128, 0, 255),
	}, nil))

	require.True(t, ev.Sliders[0].Present)
	assert.InDelta(t, 1.0, ev.Sliders[0].Value, 1e-9)
	// The later generic slider lands in the next free slot.
	require.True(t, ev.Sliders[1].Present)
	assert.InDelta(t, 128.0/255.0, ev.Sliders[1].Value, 1e-9)
}

func TestPointOfViewContendsForHatZero(t *testing.T) {
	ev := FromHidEvent(buildEvent([]hidevent.ValueSample{
		genericSample(hidusage.GenericHatSwitch, 0, 0, 4),
		sample(hidusage.PageGame, hidusage.GamePointOfView, 2, 0, 4), // slot 0 taken, dropped
	}, nil))

	require.True(t, ev.Hats[0].Present)
	assert.InDelta(t, 0.0, ev.Hats[0].Value, 1e-9)
	assert.False(t, ev.Hats[1].Present)

	ev = FromHidEvent(buildEvent([]hidevent.ValueSample{
		sample(hidusage.PageGame, hidusage.GamePointOfView, 1, 0, 4),
		genericSample(hidusage.GenericHatSwitch, 3, 0, 4),
	}, nil))

	assert.InDelta(t, 0.25, ev.Hats[0].Value, 1e-9)
	assert.InDelta(t, 0.75, ev.Hats[1].Value, 1e-9)
}

func TestEmptyEventAllAbsent(t *testing.T) {
	ev := FromHidEvent(hidevent.Event{Device: 9})

	assert.Equal(t, uint64(9), ev.Device)
	assert.False(t, ev.X.Present)
	assert.False(t, ev.Y.Present)
	assert.False(t, ev.Z.Present)
	assert.False(t, ev.RotX.Present)
	assert.False(t, ev.RotY.Present)
	assert.False(t, ev.RotZ.Present)
	for _, s := range ev.Sliders {
		assert.False(t, s.Present)
	}
	for _, h := range ev.Hats {
		assert.False(t, h.Present)
	}
	assert.Zero(t, ev.ButtonCount)
	assert.Zero(t, ev.Buttons)
}

func TestEndToEnd(t *testing.T) {
	ev := FromHidEvent(buildEvent(
		[]hidevent.ValueSample{genericSample(hidusage.GenericX, 255, 0, 255)},
		[]hidevent.ButtonBank{{UsagePage: hidusage.PageButton, UsageMinimum: 1, UsageMaximum: 8, Count: 8, Pressed: 0b101}},
	))

	require.True(t, ev.X.Present)
	assert.InDelta(t, 1.0, ev.X.Value, 1e-9)
	assert.Equal(t, 8, ev.ButtonCount)
	assert.Equal(t, uint64(0b101), ev.Buttons)
}
