package hiddesc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Short item tag prefixes (high 6 bits). The low 2 bits of the prefix byte
// encode the payload size.
const (
	tagInput         = 0x80
	tagOutput        = 0x90
	tagFeature       = 0xb0
	tagCollection    = 0xa0
	tagEndCollection = 0xc0

	tagUsagePage    = 0x04
	tagLogicalMin   = 0x14
	tagLogicalMax   = 0x24
	tagPhysicalMin  = 0x34
	tagPhysicalMax  = 0x44
	tagUnitExponent = 0x54
	tagUnit         = 0x64
	tagReportSize   = 0x74
	tagReportID     = 0x84
	tagReportCount  = 0x94
	tagPush         = 0xa4
	tagPop          = 0xb4

	tagUsage       = 0x08
	tagUsageMin    = 0x18
	tagUsageMax    = 0x28
	tagDelimiter   = 0xa8
	longItemPrefix = 0xfe
)

type globalState struct {
	usagePage      uint16
	logicalMinimum int32
	logicalMaximum int32
	reportSize     uint32
	reportCount    uint32
	reportID       uint8
}

type localState struct {
	usages       []uint16
	usageMinimum uint16
	usageMaximum uint16
}

type parser struct {
	global      globalState
	globalStack []globalState
	local       localState

	collections []Collection
	current     *Collection
	depth       int
}

// Parse decodes a raw report descriptor blob.
func Parse(data []byte) (Descriptor, error) {
	p := &parser{}
	for i := 0; i < len(data); {
		prefix := data[i]
		if prefix == longItemPrefix {
			if i+1 >= len(data) {
				return Descriptor{}, errors.New("hiddesc: truncated long item")
			}
			i += 3 + int(data[i+1])
			continue
		}
		size := int(prefix & 0x03)
		if size == 3 {
			size = 4
		}
		if i+1+size > len(data) {
			return Descriptor{}, fmt.Errorf("hiddesc: truncated item 0x%02x", prefix)
		}
		payload := data[i+1 : i+1+size]
		if err := p.item(prefix&0xfc, payload); err != nil {
			return Descriptor{}, err
		}
		i += 1 + size
	}
	if p.depth != 0 {
		return Descriptor{}, errors.New("hiddesc: unbalanced collection")
	}
	return Descriptor{Collections: p.collections}, nil
}

func (p *parser) item(tag uint8, payload []byte) error {
	switch tag {
	case tagInput:
		return p.dataItem(ItemTypeInput, payload)
	case tagOutput:
		return p.dataItem(ItemTypeOutput, payload)
	case tagFeature:
		return p.dataItem(ItemTypeFeature, payload)
	case tagCollection:
		p.openCollection()
	case tagEndCollection:
		return p.closeCollection()
	case tagUsagePage:
		p.global.usagePage = uint16(uintValue(payload))
	case tagLogicalMin:
		p.global.logicalMinimum = intValue(payload)
	case tagLogicalMax:
		p.global.logicalMaximum = intValue(payload)
	case tagReportSize:
		p.global.reportSize = uintValue(payload)
	case tagReportID:
		p.global.reportID = uint8(uintValue(payload))
	case tagReportCount:
		p.global.reportCount = uintValue(payload)
	case tagPush:
		p.globalStack = append(p.globalStack, p.global)
	case tagPop:
		if len(p.globalStack) == 0 {
			return errors.New("hiddesc: pop with empty global stack")
		}
		p.global = p.globalStack[len(p.globalStack)-1]
		p.globalStack = p.globalStack[:len(p.globalStack)-1]
	case tagUsage:
		// A 4-byte usage carries its own usage page in the high word; only
		// the usage ID is kept, the page stays as declared by Usage Page.
		p.local.usages = append(p.local.usages, uint16(uintValue(payload)))
	case tagUsageMin:
		p.local.usageMinimum = uint16(uintValue(payload))
	case tagUsageMax:
		p.local.usageMaximum = uint16(uintValue(payload))
	case tagPhysicalMin, tagPhysicalMax, tagUnitExponent, tagUnit, tagDelimiter:
		// parsed but not modeled
	default:
		// unknown tags are skipped; local state is untouched
	}
	return nil
}

func (p *parser) openCollection() {
	if p.depth == 0 {
		usageID := uint16(0)
		if len(p.local.usages) > 0 {
			usageID = p.local.usages[0]
		}
		p.collections = append(p.collections, Collection{
			UsagePage: p.global.usagePage,
			UsageID:   usageID,
		})
		p.current = &p.collections[len(p.collections)-1]
	}
	p.depth++
	p.local = localState{}
}

func (p *parser) closeCollection() error {
	if p.depth == 0 {
		return errors.New("hiddesc: end collection without open collection")
	}
	p.depth--
	if p.depth == 0 {
		p.current = nil
	}
	p.local = localState{}
	return nil
}

func (p *parser) dataItem(typ ItemType, payload []byte) error {
	if p.current == nil {
		return errors.New("hiddesc: data item outside of a collection")
	}
	if len(payload) == 0 {
		return errors.New("hiddesc: data item without flags")
	}
	usages := make([]uint16, len(p.local.usages))
	copy(usages, p.local.usages)
	p.current.Items = append(p.current.Items, DataItem{
		Type:           typ,
		Flags:          DataFlags(uintValue(payload)),
		UsagePage:      p.global.usagePage,
		UsageIDs:       usages,
		UsageMinimum:   p.local.usageMinimum,
		UsageMaximum:   p.local.usageMaximum,
		ReportID:       p.global.reportID,
		ReportSize:     p.global.reportSize,
		ReportCount:    p.global.reportCount,
		LogicalMinimum: p.global.logicalMinimum,
		LogicalMaximum: p.global.logicalMaximum,
	})
	p.local = localState{}
	return nil
}

func uintValue(payload []byte) uint32 {
	switch len(payload) {
	case 1:
		return uint32(payload[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(payload))
	case 4:
		return binary.LittleEndian.Uint32(payload)
	default:
		return 0
	}
}

func intValue(payload []byte) int32 {
	switch len(payload) {
	case 1:
		return int32(int8(payload[0]))
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(payload)))
	case 4:
		return int32(binary.LittleEndian.Uint32(payload))
	default:
		return 0
	}
}
