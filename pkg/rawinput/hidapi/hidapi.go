// Package hidapi is the hidapi-backed notification source for rawinput
// listeners. It enumerates hidraw devices, classifies them by their
// top-level application usage, and runs one blocking read loop per open
// device.
package hidapi

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	hid "github.com/sstallion/go-hid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ttsuki/librawinput/hiddesc"
	"github.com/ttsuki/librawinput/hidevent"
	"github.com/ttsuki/librawinput/pkg/rawinput"
)

// readBufferSize is the reusable per-device read buffer. A device whose
// descriptor declares a larger maximum input report gets a dedicated
// buffer sized to that report instead.
const readBufferSize = 4096

const descriptorBufferSize = 4096

var defaultOptions = backendOptions{
	pollInterval: 5 * time.Second,
	readTimeout:  time.Second,
}

type backendOptions struct {
	pollInterval time.Duration
	readTimeout  time.Duration
}

type Option func(*backendOptions)

// WithPollInterval sets how often the device list is re-enumerated to pick
// up hotplugged devices.
func WithPollInterval(d time.Duration) Option {
	return func(o *backendOptions) {
		o.pollInterval = d
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *backendOptions) {
		o.readTimeout = d
	}
}

// Backend implements the rawinput.Backend interface on top of hidapi.
type Backend struct {
	log     *zap.Logger
	options backendOptions
	mask    rawinput.DeviceType
	ready   chan struct{}
	pub     rawinput.Publisher

	nextHandle atomic.Uint64
	devices    *xsync.MapOf[uint64, *openDevice]
	byPath     *xsync.MapOf[string, uint64]
}

type openDevice struct {
	desc      rawinput.DeviceDescriptor
	dev       *hid.Device
	maxReport int
	cancel    context.CancelFunc
}

func NewBackend(log *zap.Logger, mask rawinput.DeviceType, opts ...Option) *Backend {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Backend{
		log:     log.Named("hidapi"),
		options: options,
		mask:    mask,
		ready:   make(chan struct{}),
		devices: xsync.NewMapOf[uint64, *openDevice](),
		byPath:  xsync.NewMapOf[string, uint64](),
	}
}

func (b *Backend) Ready() <-chan struct{} {
	return b.ready
}

// Start opens every currently connected device matching the mask, then
// polls for hotplug changes until ctx is cancelled. New devices are
// announced to the listener with an attach notification.
func (b *Backend) Start(ctx context.Context, pub rawinput.Publisher) error {
	hid.Init()
	defer hid.Exit()
	b.pub = pub

	if err := b.refreshDevices(ctx, false); err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	close(b.ready)
	b.log.Info("hidapi backend started")

	ticker := time.NewTicker(b.options.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return ctx.Err()
		case <-ticker.C:
			if err := b.refreshDevices(ctx, true); err != nil {
				b.log.Error("failed to refresh devices", zap.Error(err))
			}
		}
	}
}

// ListDevices returns the currently open devices matching the mask.
func (b *Backend) ListDevices(mask rawinput.DeviceType) ([]rawinput.DeviceDescriptor, error) {
	var out []rawinput.DeviceDescriptor
	b.devices.Range(func(_ uint64, od *openDevice) bool {
		if od.desc.Type.Has(mask) {
			out = append(out, od.desc)
		}
		return true
	})
	return out, nil
}

// ReportDescriptor reads the raw report-descriptor blob of an open device.
func (b *Backend) ReportDescriptor(handle uint64) ([]byte, error) {
	od, ok := b.devices.Load(handle)
	if !ok {
		return nil, fmt.Errorf("device %d is not open", handle)
	}
	buf := make([]byte, descriptorBufferSize)
	n, err := od.dev.GetReportDescriptor(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read report descriptor: %w", err)
	}
	return buf[:n], nil
}

// classify maps a top-level application usage onto a device type.
func classify(info *hid.DeviceInfo) rawinput.DeviceType {
	if info.UsagePage != 0x01 {
		return rawinput.DeviceNone
	}
	switch info.Usage {
	case 0x02:
		return rawinput.DeviceMouse
	case 0x06:
		return rawinput.DeviceKeyboard
	case 0x04:
		return rawinput.DeviceJoystick
	case 0x05:
		return rawinput.DeviceGamePad
	default:
		return rawinput.DeviceNone
	}
}

func (b *Backend) refreshDevices(ctx context.Context, announce bool) error {
	seen := make(map[string]struct{})
	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		typ := classify(info)
		if !typ.Has(b.mask) {
			return nil
		}
		seen[info.Path] = struct{}{}
		if _, ok := b.byPath.Load(info.Path); ok {
			return nil
		}
		od, err := b.openDevice(ctx, info, typ)
		if err != nil {
			b.log.Warn("failed to open device",
				zap.String("path", info.Path), zap.Error(err))
			return nil
		}
		if announce {
			desc := od.desc
			b.pub(ctx, rawinput.Notification{Type: typ, Attached: &desc})
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Close devices that disappeared. Their handles are never reused, so
	// stale capability entries cannot alias a new device.
	b.byPath.Range(func(path string, handle uint64) bool {
		if _, ok := seen[path]; ok {
			return true
		}
		b.byPath.Delete(path)
		if od, ok := b.devices.LoadAndDelete(handle); ok {
			b.log.Debug("device detached",
				zap.Uint64("device", handle), zap.String("path", path))
			od.cancel()
			od.dev.Close()
		}
		return true
	})
	return nil
}

func (b *Backend) openDevice(ctx context.Context, info *hid.DeviceInfo, typ rawinput.DeviceType) (*openDevice, error) {
	dev, err := hid.OpenPath(info.Path)
	if err != nil {
		return nil, err
	}
	handle := b.nextHandle.Inc()
	od := &openDevice{
		desc: rawinput.DeviceDescriptor{
			Handle:       handle,
			Type:         typ,
			Path:         info.Path,
			VendorID:     info.VendorID,
			ProductID:    info.ProductID,
			Manufacturer: info.MfrStr,
			Product:      info.ProductStr,
			Serial:       info.SerialNbr,
		},
		dev:       dev,
		maxReport: maxReportSize(dev),
	}
	devCtx, cancel := context.WithCancel(ctx)
	od.cancel = cancel
	b.devices.Store(handle, od)
	b.byPath.Store(info.Path, handle)
	go b.readLoop(devCtx, od)
	b.log.Debug("device opened",
		zap.Uint64("device", handle),
		zap.String("type", typ.String()),
		zap.String("path", info.Path))
	return od, nil
}

// maxReportSize derives the largest input report the device can send. The
// descriptor-level size already accounts for the report-ID prefix byte.
func maxReportSize(dev *hid.Device) int {
	buf := make([]byte, descriptorBufferSize)
	n, err := dev.GetReportDescriptor(buf)
	if err != nil {
		return 0
	}
	desc, err := hiddesc.Parse(buf[:n])
	if err != nil {
		return 0
	}
	return desc.MaxInputReportBytes()
}

func (b *Backend) readLoop(ctx context.Context, od *openDevice) {
	buf := make([]byte, readBufferSize)
	if od.maxReport > readBufferSize {
		// Oversized reports get a dedicated buffer instead of truncation.
		buf = make([]byte, od.maxReport)
	}
	for ctx.Err() == nil {
		n, err := od.dev.ReadWithTimeout(buf, b.options.readTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Debug("read failed, closing device",
				zap.Uint64("device", od.desc.Handle), zap.Error(err))
			return
		}
		if n == 0 {
			continue
		}
		// pub returns only after the callbacks are done with buf, so the
		// next read may reuse it.
		b.pub(ctx, rawinput.Notification{
			Type: od.desc.Type,
			Report: hidevent.RawReport{
				Device:    od.desc.Handle,
				Timestamp: hidevent.Clock(),
				Data:      buf[:n],
			},
		})
	}
}

func (b *Backend) closeAll() {
	b.devices.Range(func(handle uint64, od *openDevice) bool {
		od.cancel()
		od.dev.Close()
		b.devices.Delete(handle)
		return true
	})
	b.byPath.Range(func(path string, _ uint64) bool {
		b.byPath.Delete(path)
		return true
	})
}
