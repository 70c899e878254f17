package hidevent

import (
	"github.com/ttsuki/librawinput/hidcap"
	"github.com/ttsuki/librawinput/pkg/bits"
)

// Decode extracts all declared value and button capabilities from a raw
// report. It is a pure function of (raw.Data, caps): identical inputs yield
// identical events. A capability whose field is absent from this particular
// report is skipped, never emitted as a zero. A nil capability table yields
// an event with empty collections.
func Decode(raw RawReport, caps *hidcap.DeviceCaps) Event {
	e := Event{
		Device:    raw.Device,
		Timestamp: raw.Timestamp,
	}
	if caps == nil {
		return e
	}

	payload := raw.Data
	reportID := uint8(0)
	if caps.HasReportIDs {
		if len(payload) == 0 {
			return e
		}
		reportID = payload[0]
		payload = payload[1:]
	}
	r := bits.NewReader(payload)

	// Only the first MaxValues capability entries are examined; a skipped
	// entry does not free a slot for a later one.
	for i := 0; i < len(caps.Values) && i < MaxValues; i++ {
		vc := caps.Values[i]
		if vc.ReportID != reportID {
			continue
		}
		value, ok := readValue(r, vc)
		if !ok {
			continue
		}
		e.Values.Push(ValueSample{
			UsagePage:  vc.UsagePage,
			UsageID:    vc.UsageID,
			Value:      value,
			LogicalMin: vc.LogicalMin,
			LogicalMax: vc.LogicalMax,
		})
	}

	for i := 0; i < len(caps.Buttons) && i < MaxButtonBanks; i++ {
		bc := caps.Buttons[i]
		if bc.ReportID != reportID {
			continue
		}
		pressed, ok := readBank(r, bc)
		if !ok {
			continue
		}
		count := bc.UsageCount()
		if count > MaxButtonsPerBank {
			count = MaxButtonsPerBank
		}
		e.Buttons.Push(ButtonBank{
			UsagePage:    bc.UsagePage,
			UsageMinimum: bc.UsageMinimum,
			UsageMaximum: bc.UsageMaximum,
			Count:        count,
			Pressed:      pressed,
		})
	}

	return e
}

func readValue(r bits.Reader, vc hidcap.ValueCap) (int32, bool) {
	if vc.LogicalMin < 0 {
		return r.Int32(vc.BitOffset, vc.BitSize)
	}
	v, ok := r.Uint32(vc.BitOffset, vc.BitSize)
	return int32(v), ok
}

func readBank(r bits.Reader, bc hidcap.ButtonCap) (uint64, bool) {
	if bc.BitOffset+bc.ReportSize*bc.ReportCount > r.Len() {
		return 0, false
	}
	limit := bc.UsageCount()
	if limit > MaxButtonsPerBank {
		limit = MaxButtonsPerBank
	}
	var pressed uint64
	if bc.Selector {
		// Array item: each field holds the usage ID of an asserted button.
		for i := 0; i < bc.ReportCount; i++ {
			v, ok := r.Uint32(bc.BitOffset+i*bc.ReportSize, bc.ReportSize)
			if !ok || v == 0 {
				continue
			}
			idx := int(v) - int(bc.UsageMinimum)
			if idx >= 0 && idx < limit {
				pressed |= 1 << uint(idx)
			}
		}
		return pressed, true
	}
	// Variable 1-bit fields: bit i maps to usage UsageMinimum+i.
	for i := 0; i < bc.ReportCount && i < limit; i++ {
		if r.IsSet(bc.BitOffset + i) {
			pressed |= 1 << uint(i)
		}
	}
	return pressed, true
}
