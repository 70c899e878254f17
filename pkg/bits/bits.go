// Package bits reads bit-packed fields out of HID report payloads.
// HID fields are packed LSB-first and may start at any bit offset, so all
// accessors address the payload by absolute bit position.
package bits

// Reader is a read-only view over a report payload.
type Reader struct {
	data []byte
}

func NewReader(data []byte) Reader {
	return Reader{data: data}
}

// Len returns the payload length in bits.
func (r Reader) Len() int {
	return len(r.data) * 8
}

func (r Reader) Bytes() []byte {
	return r.data
}

// Uint32 extracts an unsigned field of bitSize bits starting at bitOffset.
// It reports false when the field does not fit the payload.
func (r Reader) Uint32(bitOffset, bitSize int) (uint32, bool) {
	if bitSize <= 0 || bitSize > 32 {
		return 0, false
	}
	if bitOffset < 0 || bitOffset+bitSize > r.Len() {
		return 0, false
	}
	byteStart := bitOffset / 8
	shift := bitOffset % 8
	byteCount := (shift + bitSize + 7) / 8
	var v uint64
	for i := 0; i < byteCount; i++ {
		v |= uint64(r.data[byteStart+i]) << (8 * i)
	}
	v >>= uint(shift)
	v &= 1<<uint(bitSize) - 1
	return uint32(v), true
}

// Int32 extracts a field like Uint32 and sign-extends it from bitSize bits.
func (r Reader) Int32(bitOffset, bitSize int) (int32, bool) {
	v, ok := r.Uint32(bitOffset, bitSize)
	if !ok {
		return 0, false
	}
	if bitSize < 32 && v&(1<<uint(bitSize-1)) != 0 {
		v |= ^uint32(0) << uint(bitSize)
	}
	return int32(v), true
}

// IsSet reports whether the bit at bitOffset is set.
// Bits outside the payload read as unset.
func (r Reader) IsSet(bitOffset int) bool {
	if bitOffset < 0 || bitOffset >= r.Len() {
		return false
	}
	return r.data[bitOffset/8]&(1<<uint(bitOffset%8)) != 0
}
