package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint32(t *testing.T) {
	type testCase struct {
		name      string
		data      []byte
		bitOffset int
		bitSize   int
		expected  uint32
		ok        bool
	}

	tests := []testCase{
		{
			name:      "whole byte",
			data:      []byte{0xa5},
			bitOffset: 0,
			bitSize:   8,
			expected:  0xa5,
			ok:        true,
		},
		{
			name:      "low nibble",
			data:      []byte{0xa5},
			bitOffset: 0,
			bitSize:   4,
			expected:  0x5,
			ok:        true,
		},
		{
			name:      "high nibble",
			data:      []byte{0xa5},
			bitOffset: 4,
			bitSize:   4,
			expected:  0xa,
			ok:        true,
		},
		{
			name:      "unaligned across bytes",
			data:      []byte{0b1100_0000, 0b0000_0011},
			bitOffset: 6,
			bitSize:   4,
			expected:  0b1111,
			ok:        true,
		},
		{
			name:      "little endian uint16",
			data:      []byte{0x34, 0x12},
			bitOffset: 0,
			bitSize:   16,
			expected:  0x1234,
			ok:        true,
		},
		{
			name:      "32 bits at odd offset",
			data:      []byte{0x00, 0xfe, 0xff, 0xff, 0xff, 0x01},
			bitOffset: 9,
			bitSize:   32,
			expected:  0xffffffff,
			ok:        true,
		},
		{
			name:      "field past end",
			data:      []byte{0xff},
			bitOffset: 4,
			bitSize:   8,
			ok:        false,
		},
		{
			name:      "zero size",
			data:      []byte{0xff},
			bitOffset: 0,
			bitSize:   0,
			ok:        false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := NewReader(tc.data).Uint32(tc.bitOffset, tc.bitSize)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, v)
			}
		})
	}
}

func TestInt32(t *testing.T) {
	r := NewReader([]byte{0xff, 0x7f})

	v, ok := r.Int32(0, 8)
	assert.True(t, ok)
	assert.Equal(t, int32(-1), v)

	v, ok = r.Int32(0, 16)
	assert.True(t, ok)
	assert.Equal(t, int32(0x7fff), v)

	v, ok = r.Int32(4, 4)
	assert.True(t, ok)
	assert.Equal(t, int32(-1), v)
}

func TestIsSet(t *testing.T) {
	r := NewReader([]byte{0b0000_0101, 0b1000_0000})
	assert.True(t, r.IsSet(0))
	assert.False(t, r.IsSet(1))
	assert.True(t, r.IsSet(2))
	assert.True(t, r.IsSet(15))
	assert.False(t, r.IsSet(16))
	assert.False(t, r.IsSet(-1))
}
