package hidcap

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/ttsuki/librawinput/hiddesc"
	"go.uber.org/zap"
)

// DescriptorSource queries the raw report-descriptor blob for a device.
type DescriptorSource func(handle uint64) ([]byte, error)

// Store caches one immutable DeviceCaps entry per device handle.
// A handle whose descriptor could not be retrieved or parsed is remembered as
// having no decodable capabilities; the failed query is not repeated.
type Store struct {
	log    *zap.Logger
	source DescriptorSource
	caps   *xsync.MapOf[uint64, *DeviceCaps]
}

func NewStore(log *zap.Logger, source DescriptorSource) *Store {
	return &Store{
		log:    log,
		source: source,
		caps:   xsync.NewMapOf[uint64, *DeviceCaps](),
	}
}

// Load queries, parses and caches the capability table for a handle.
// Failures are logged and cached as "no capabilities"; they are never
// propagated past the returned error.
func (s *Store) Load(handle uint64) error {
	raw, err := s.source(handle)
	if err != nil {
		s.log.Warn("failed to read report descriptor",
			zap.Uint64("device", handle), zap.Error(err))
		s.caps.Store(handle, nil)
		return fmt.Errorf("report descriptor for device %d: %w", handle, err)
	}
	desc, err := hiddesc.Parse(raw)
	if err != nil {
		s.log.Warn("failed to parse report descriptor",
			zap.Uint64("device", handle), zap.Error(err))
		s.caps.Store(handle, nil)
		return fmt.Errorf("parse report descriptor for device %d: %w", handle, err)
	}
	caps := FromDescriptor(desc)
	s.caps.Store(handle, &caps)
	s.log.Debug("capabilities loaded",
		zap.Uint64("device", handle),
		zap.Uint64("descriptorHash", xxhash.Sum64(raw)),
		zap.Int("values", len(caps.Values)),
		zap.Int("buttonCaps", len(caps.Buttons)),
	)
	return nil
}

// Get looks up the capability table for a handle. ok is false both for
// unknown handles and for handles whose capability load failed.
func (s *Store) Get(handle uint64) (*DeviceCaps, bool) {
	caps, ok := s.caps.Load(handle)
	if !ok || caps == nil {
		return nil, false
	}
	return caps, true
}

// Ensure returns the cached entry for a handle, loading it on first sight.
// Devices that appear after the eager startup population are picked up here.
func (s *Store) Ensure(handle uint64) (*DeviceCaps, bool) {
	caps, _ := s.caps.LoadOrCompute(handle, func() *DeviceCaps {
		raw, err := s.source(handle)
		if err != nil {
			s.log.Warn("failed to read report descriptor",
				zap.Uint64("device", handle), zap.Error(err))
			return nil
		}
		desc, err := hiddesc.Parse(raw)
		if err != nil {
			s.log.Warn("failed to parse report descriptor",
				zap.Uint64("device", handle), zap.Error(err))
			return nil
		}
		c := FromDescriptor(desc)
		return &c
	})
	if caps == nil {
		return nil, false
	}
	return caps, true
}
