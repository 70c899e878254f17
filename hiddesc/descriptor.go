// Package hiddesc parses HID report descriptors into the subset of the
// descriptor model needed to derive input-report capabilities: top-level
// application collections and their input data items in declaration order.
package hiddesc

// ItemType distinguishes the three main item kinds carrying report data.
type ItemType uint8

const (
	ItemTypeInput ItemType = iota
	ItemTypeOutput
	ItemTypeFeature
)

type DataFlags uint32

const (
	DataFlagConstant DataFlags = 1 << iota // 0 = Data, 1 = Constant (padding)
	DataFlagVariable                       // 0 = Array, 1 = Variable
	DataFlagRelative                       // 0 = Absolute, 1 = Relative
)

func (d DataFlags) IsConstant() bool {
	return d&DataFlagConstant != 0
}

func (d DataFlags) IsVariable() bool {
	return d&DataFlagVariable != 0
}

func (d DataFlags) IsArray() bool {
	return !d.IsVariable()
}

func (d DataFlags) IsRelative() bool {
	return d&DataFlagRelative != 0
}

// DataItem is one Input/Output/Feature main item. The number of report fields
// it occupies is ReportCount, each ReportSize bits wide.
type DataItem struct {
	Type         ItemType
	Flags        DataFlags
	UsagePage    uint16
	UsageIDs     []uint16
	UsageMinimum uint16
	UsageMaximum uint16

	ReportID    uint8
	ReportSize  uint32
	ReportCount uint32

	LogicalMinimum int32
	LogicalMaximum int32
}

// Collection is a top-level application collection. Data items of nested
// collections are flattened into Items, preserving declaration order.
type Collection struct {
	UsagePage uint16
	UsageID   uint16
	Items     []DataItem
}

type Descriptor struct {
	Collections []Collection
}

// InputItems returns every input data item of the descriptor in declaration
// order across all top-level collections.
func (d Descriptor) InputItems() []DataItem {
	var items []DataItem
	for _, c := range d.Collections {
		for _, item := range c.Items {
			if item.Type == ItemTypeInput {
				items = append(items, item)
			}
		}
	}
	return items
}

// HasReportIDs reports whether the descriptor declares numbered reports.
func (d Descriptor) HasReportIDs() bool {
	for _, c := range d.Collections {
		for _, item := range c.Items {
			if item.ReportID != 0 {
				return true
			}
		}
	}
	return false
}

// MaxInputReportBytes returns the byte length of the largest input report,
// including the report ID prefix byte when report IDs are in use.
func (d Descriptor) MaxInputReportBytes() int {
	bitsPerReport := make(map[uint8]int)
	for _, item := range d.InputItems() {
		bitsPerReport[item.ReportID] += int(item.ReportSize) * int(item.ReportCount)
	}
	maxBytes := 0
	for id, nbits := range bitsPerReport {
		n := (nbits + 7) / 8
		if id != 0 {
			n++
		}
		if n > maxBytes {
			maxBytes = n
		}
	}
	return maxBytes
}
