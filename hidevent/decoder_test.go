package hidevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttsuki/librawinput/hidcap"
	"github.com/ttsuki/librawinput/hidusage"
)

func joystickCaps() *hidcap.DeviceCaps {
	return &hidcap.DeviceCaps{
		UsagePage:      hidusage.PageGenericDesktop,
		UsageID:        hidusage.GenericJoystick,
		MaxReportBytes: 4,
		Values: []hidcap.ValueCap{
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericX, LogicalMin: 0, LogicalMax: 255, BitOffset: 0, BitSize: 8},
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericY, LogicalMin: 0, LogicalMax: 255, BitOffset: 8, BitSize: 8},
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericHatSwitch, LogicalMin: 0, LogicalMax: 7, BitOffset: 16, BitSize: 4},
		},
		Buttons: []hidcap.ButtonCap{
			{UsagePage: hidusage.PageButton, UsageMinimum: 1, UsageMaximum: 8, IsRange: true, BitOffset: 24, ReportSize: 1, ReportCount: 8},
		},
	}
}

func TestDecodeJoystickReport(t *testing.T) {
	raw := RawReport{
		Device:    7,
		Timestamp: 1234,
		Data:      []byte{0xff, 0x80, 0x02, 0b00000101},
	}
	ev := Decode(raw, joystickCaps())

	assert.Equal(t, uint64(7), ev.Device)
	assert.Equal(t, int64(1234), ev.Timestamp)

	require.Equal(t, 3, ev.Values.Len())
	x := ev.Values.At(0)
	assert.Equal(t, hidusage.GenericX, x.UsageID)
	assert.Equal(t, int32(255), x.Value)
	assert.Equal(t, int32(0), x.LogicalMin)
	assert.Equal(t, int32(255), x.LogicalMax)
	assert.Equal(t, int32(0x80), ev.Values.At(1).Value)
	assert.Equal(t, int32(2), ev.Values.At(2).Value)

	require.Equal(t, 1, ev.Buttons.Len())
	bank := ev.Buttons.At(0)
	assert.Equal(t, hidusage.PageButton, bank.UsagePage)
	assert.Equal(t, 8, bank.Count)
	assert.Equal(t, uint64(0b101), bank.Pressed) // buttons 1 and 3
}

func TestDecodeIsIdempotent(t *testing.T) {
	caps := joystickCaps()
	raw := RawReport{Device: 1, Timestamp: 99, Data: []byte{0x12, 0x34, 0x05, 0xaa}}

	first := Decode(raw, caps)
	second := Decode(raw, caps)
	assert.Equal(t, first, second)
}

func TestDecodeNilCaps(t *testing.T) {
	ev := Decode(RawReport{Device: 3, Data: []byte{1, 2, 3}}, nil)
	assert.Equal(t, uint64(3), ev.Device)
	assert.Zero(t, ev.Values.Len())
	assert.Zero(t, ev.Buttons.Len())
}

func TestDecodeSkipsTruncatedFields(t *testing.T) {
	// Only the first byte is present; Y, hat and the button bank all fall
	// outside the payload and are skipped rather than emitted as zero.
	ev := Decode(RawReport{Data: []byte{0x40}}, joystickCaps())

	require.Equal(t, 1, ev.Values.Len())
	assert.Equal(t, hidusage.GenericX, ev.Values.At(0).UsageID)
	assert.Equal(t, int32(0x40), ev.Values.At(0).Value)
	assert.Zero(t, ev.Buttons.Len())
}

func TestDecodeSignExtension(t *testing.T) {
	caps := &hidcap.DeviceCaps{
		Values: []hidcap.ValueCap{
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericX, LogicalMin: -127, LogicalMax: 127, BitOffset: 0, BitSize: 8},
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericY, LogicalMin: 0, LogicalMax: 255, BitOffset: 8, BitSize: 8},
		},
	}
	ev := Decode(RawReport{Data: []byte{0xff, 0xff}}, caps)

	require.Equal(t, 2, ev.Values.Len())
	assert.Equal(t, int32(-1), ev.Values.At(0).Value)
	assert.Equal(t, int32(255), ev.Values.At(1).Value)
}

func TestDecodeReportIDFiltering(t *testing.T) {
	caps := &hidcap.DeviceCaps{
		HasReportIDs: true,
		Values: []hidcap.ValueCap{
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericX, ReportID: 1, LogicalMax: 255, BitOffset: 0, BitSize: 8},
			{UsagePage: hidusage.PageGenericDesktop, UsageID: hidusage.GenericRz, ReportID: 2, LogicalMax: 255, BitOffset: 0, BitSize: 8},
		},
	}

	ev := Decode(RawReport{Data: []byte{0x02, 0x55}}, caps)
	require.Equal(t, 1, ev.Values.Len())
	assert.Equal(t, hidusage.GenericRz, ev.Values.At(0).UsageID)
	assert.Equal(t, int32(0x55), ev.Values.At(0).Value)

	// A bare report-ID byte with no payload decodes to nothing.
	ev = Decode(RawReport{Data: []byte{0x01}}, caps)
	assert.Zero(t, ev.Values.Len())
}

func TestDecodeSelectorBank(t *testing.T) {
	caps := &hidcap.DeviceCaps{
		Buttons: []hidcap.ButtonCap{
			{UsagePage: hidusage.PageKeyboard, UsageMinimum: 0, UsageMaximum: 63, IsRange: true, Selector: true, BitOffset: 0, ReportSize: 8, ReportCount: 3},
		},
	}
	ev := Decode(RawReport{Data: []byte{0x04, 0x00, 0x07}}, caps)

	require.Equal(t, 1, ev.Buttons.Len())
	bank := ev.Buttons.At(0)
	assert.Equal(t, uint64(1<<4|1<<7), bank.Pressed)
	assert.Equal(t, 64, bank.Count)
}

func TestDecodeValueCapTruncation(t *testing.T) {
	caps := &hidcap.DeviceCaps{}
	data := make([]byte, MaxValues+4)
	for i := range data {
		data[i] = byte(i + 1)
		caps.Values = append(caps.Values, hidcap.ValueCap{
			UsagePage:  hidusage.PageGenericDesktop,
			UsageID:    uint16(0x30 + i),
			LogicalMax: 255,
			BitOffset:  i * 8,
			BitSize:    8,
		})
	}
	ev := Decode(RawReport{Data: data}, caps)

	assert.Equal(t, MaxValues, ev.Values.Len())
	assert.Equal(t, int32(MaxValues), ev.Values.At(MaxValues-1).Value)
}
