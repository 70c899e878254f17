// Package hidcap derives per-device input-report capabilities from a parsed
// report descriptor. A capability carries the exact bit position of its field
// inside the report payload, so report decoding is plain bit arithmetic over
// the raw bytes.
package hidcap

import (
	"github.com/ttsuki/librawinput/hiddesc"
)

// ValueCap declares one absolute numeric input field.
type ValueCap struct {
	UsagePage  uint16
	UsageID    uint16
	LogicalMin int32
	LogicalMax int32

	ReportID  uint8
	BitOffset int // within the report payload, report ID byte excluded
	BitSize   int
}

// ButtonCap declares a contiguous or singleton set of binary usages.
// A selector capability comes from an array item: each field holds the usage
// ID of a currently asserted button instead of a dedicated bit.
type ButtonCap struct {
	UsagePage    uint16
	UsageMinimum uint16
	UsageMaximum uint16
	IsRange      bool
	Selector     bool

	ReportID    uint8
	BitOffset   int
	ReportSize  int
	ReportCount int
}

// UsageCount returns the number of button usages the capability declares.
func (c ButtonCap) UsageCount() int {
	if c.IsRange {
		return int(c.UsageMaximum) - int(c.UsageMinimum) + 1
	}
	return 1
}

// DeviceCaps is the immutable capability table of one device.
type DeviceCaps struct {
	UsagePage uint16 // top-level application collection
	UsageID   uint16

	HasReportIDs   bool
	MaxReportBytes int

	Values  []ValueCap
	Buttons []ButtonCap
}

// FromDescriptor flattens the descriptor's input items, in declaration order,
// into value and button capabilities. Constant (padding) items advance the
// bit cursor but yield no capability.
func FromDescriptor(desc hiddesc.Descriptor) DeviceCaps {
	caps := DeviceCaps{
		HasReportIDs:   desc.HasReportIDs(),
		MaxReportBytes: desc.MaxInputReportBytes(),
	}
	if len(desc.Collections) > 0 {
		caps.UsagePage = desc.Collections[0].UsagePage
		caps.UsageID = desc.Collections[0].UsageID
	}

	cursor := make(map[uint8]int)
	for _, item := range desc.InputItems() {
		size := int(item.ReportSize)
		count := int(item.ReportCount)
		offset := cursor[item.ReportID]
		cursor[item.ReportID] = offset + size*count

		if item.Flags.IsConstant() || size == 0 || count == 0 {
			continue
		}

		switch {
		case item.Flags.IsVariable() && size == 1:
			caps.Buttons = append(caps.Buttons, buttonCaps(item, offset)...)
		case item.Flags.IsVariable():
			caps.Values = append(caps.Values, valueCaps(item, offset)...)
		case item.Flags.IsArray() && item.UsageMaximum != 0 && (size == 8 || size == 16):
			caps.Buttons = append(caps.Buttons, ButtonCap{
				UsagePage:    item.UsagePage,
				UsageMinimum: item.UsageMinimum,
				UsageMaximum: item.UsageMaximum,
				IsRange:      true,
				Selector:     true,
				ReportID:     item.ReportID,
				BitOffset:    offset,
				ReportSize:   size,
				ReportCount:  count,
			})
		}
	}
	return caps
}

func buttonCaps(item hiddesc.DataItem, offset int) []ButtonCap {
	size := int(item.ReportSize)
	count := int(item.ReportCount)
	if item.UsageMaximum != 0 {
		return []ButtonCap{{
			UsagePage:    item.UsagePage,
			UsageMinimum: item.UsageMinimum,
			UsageMaximum: item.UsageMaximum,
			IsRange:      true,
			ReportID:     item.ReportID,
			BitOffset:    offset,
			ReportSize:   size,
			ReportCount:  count,
		}}
	}
	// One singleton capability per declared usage, each owning one bit.
	caps := make([]ButtonCap, 0, len(item.UsageIDs))
	for i, usage := range item.UsageIDs {
		if i >= count {
			break
		}
		caps = append(caps, ButtonCap{
			UsagePage:    item.UsagePage,
			UsageMinimum: usage,
			UsageMaximum: usage,
			ReportID:     item.ReportID,
			BitOffset:    offset + i*size,
			ReportSize:   size,
			ReportCount:  1,
		})
	}
	return caps
}

func valueCaps(item hiddesc.DataItem, offset int) []ValueCap {
	size := int(item.ReportSize)
	count := int(item.ReportCount)
	if len(item.UsageIDs) == 0 {
		if item.UsageMaximum == 0 {
			return nil
		}
		// Range-valued items are modeled by their first usage only.
		return []ValueCap{{
			UsagePage:  item.UsagePage,
			UsageID:    item.UsageMinimum,
			LogicalMin: item.LogicalMinimum,
			LogicalMax: item.LogicalMaximum,
			ReportID:   item.ReportID,
			BitOffset:  offset,
			BitSize:    size,
		}}
	}
	// A usage list shorter than the report count repeats its last usage.
	caps := make([]ValueCap, 0, count)
	for i := 0; i < count; i++ {
		usage := item.UsageIDs[len(item.UsageIDs)-1]
		if i < len(item.UsageIDs) {
			usage = item.UsageIDs[i]
		}
		caps = append(caps, ValueCap{
			UsagePage:  item.UsagePage,
			UsageID:    usage,
			LogicalMin: item.LogicalMinimum,
			LogicalMax: item.LogicalMaximum,
			ReportID:   item.ReportID,
			BitOffset:  offset + i*size,
			BitSize:    size,
		})
	}
	return caps
}
