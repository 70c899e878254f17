package hidevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyboard(t *testing.T) {
	raw := RawReport{
		Device:    2,
		Timestamp: 50,
		Data:      []byte{0x02, 0x00, 0x04, 0x16, 0x00, 0x00, 0x00, 0x00},
	}
	e, ok := ParseKeyboard(raw)
	require.True(t, ok)
	assert.Equal(t, uint64(2), e.Device)
	assert.Equal(t, uint8(0x02), e.Modifiers)
	assert.True(t, e.KeyIsDown(0x04))
	assert.True(t, e.KeyIsDown(0x16))
	assert.False(t, e.KeyIsDown(0x05))
	assert.False(t, e.KeyIsDown(0x00))

	_, ok = ParseKeyboard(RawReport{Data: []byte{0x02, 0x00, 0x04}})
	assert.False(t, ok)
}

func TestParseMouse(t *testing.T) {
	e, ok := ParseMouse(RawReport{Data: []byte{0x01, 0xff, 0x05, 0xfe}})
	require.True(t, ok)
	assert.True(t, e.ButtonIsDown(MouseButtonLeft))
	assert.False(t, e.ButtonIsDown(MouseButtonRight))
	assert.Equal(t, int8(-1), e.DeltaX)
	assert.Equal(t, int8(5), e.DeltaY)
	assert.Equal(t, int8(-2), e.Wheel)

	e, ok = ParseMouse(RawReport{Data: []byte{0x00, 0x01, 0x02}})
	require.True(t, ok)
	assert.Equal(t, int8(0), e.Wheel)

	_, ok = ParseMouse(RawReport{Data: []byte{0x00, 0x01}})
	assert.False(t, ok)
}

func TestMouseButtonEdges(t *testing.T) {
	e, ok := ParseMouse(RawReport{Data: []byte{MouseButtonLeft | MouseButtonMiddle, 0, 0}})
	require.True(t, ok)
	assert.Zero(t, e.PressedButtons)
	assert.Zero(t, e.ReleasedButtons)

	e = e.WithButtonEdges(MouseButtonMiddle | MouseButtonRight)
	assert.Equal(t, uint8(MouseButtonLeft), e.PressedButtons)
	assert.Equal(t, uint8(MouseButtonRight), e.ReleasedButtons)

	// A held button appears in neither edge mask.
	e = e.WithButtonEdges(e.Buttons)
	assert.Zero(t, e.PressedButtons)
	assert.Zero(t, e.ReleasedButtons)
}
