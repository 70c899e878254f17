// Package hidevent decodes raw HID input reports into a bounded, generic set
// of value samples and button banks, driven purely by the device's
// capability table. It also carries the near-trivial keyboard and mouse
// projections for boot-protocol reports.
package hidevent

import (
	"time"
)

// Capacity bounds of a decoded event. Capabilities beyond these bounds are
// silently truncated, matching the fixed per-event buffers.
const (
	MaxValues         = 16
	MaxButtonBanks    = 16
	MaxButtonsPerBank = 64
)

var clockStart = time.Now()

// Clock returns microseconds since an arbitrary process-local origin.
// Timestamps are monotonic and comparable only within one process run.
func Clock() int64 {
	return time.Since(clockStart).Microseconds()
}

// RawReport is a single input-report notification. Data is a transient
// buffer owned by the event source: it is valid only for the duration of the
// synchronous callback chain and must be copied to be retained.
type RawReport struct {
	Device    uint64
	Timestamp int64
	Data      []byte
}

// ValueSample is one decoded numeric input field.
type ValueSample struct {
	UsagePage  uint16
	UsageID    uint16
	Value      int32
	LogicalMin int32
	LogicalMax int32
}

// ButtonBank is the decoded state of one button capability: bit i of Pressed
// is set iff usage UsageMinimum+i is currently asserted.
type ButtonBank struct {
	UsagePage    uint16
	UsageMinimum uint16
	UsageMaximum uint16
	Count        int
	Pressed      uint64
}

// ValueList is a fixed-capacity list of value samples.
type ValueList struct {
	n     int
	items [MaxValues]ValueSample
}

func (l *ValueList) Push(v ValueSample) {
	if l.n < MaxValues {
		l.items[l.n] = v
		l.n++
	}
}

func (l ValueList) Len() int {
	return l.n
}

func (l ValueList) At(i int) ValueSample {
	return l.items[i]
}

// All returns the populated samples in declaration order.
func (l ValueList) All() []ValueSample {
	return l.items[:l.n]
}

// BankList is a fixed-capacity list of button banks.
type BankList struct {
	n     int
	items [MaxButtonBanks]ButtonBank
}

func (l *BankList) Push(b ButtonBank) {
	if l.n < MaxButtonBanks {
		l.items[l.n] = b
		l.n++
	}
}

func (l BankList) Len() int {
	return l.n
}

func (l BankList) At(i int) ButtonBank {
	return l.items[i]
}

func (l BankList) All() []ButtonBank {
	return l.items[:l.n]
}

// Event is the generic capability-driven decoding of one input report.
// Values and Buttons preserve the capability table's declaration order.
type Event struct {
	Device    uint64
	Timestamp int64
	Values    ValueList
	Buttons   BankList
}

// ElapsedSec returns the age of the event in seconds.
func (e Event) ElapsedSec() float64 {
	return float64(Clock()-e.Timestamp) / 1e6
}
