// Package monitor wires the listening shell, the device registry and the
// live-reloaded settings file into a console tool that prints every decoded
// input event.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger"
	"github.com/goccy/go-yaml"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ttsuki/librawinput/hidcap"
	"github.com/ttsuki/librawinput/hiddesc"
	"github.com/ttsuki/librawinput/hidevent"
	"github.com/ttsuki/librawinput/hidusage"
	"github.com/ttsuki/librawinput/internal/configsvc"
	"github.com/ttsuki/librawinput/internal/devreg"
	"github.com/ttsuki/librawinput/joystick"
	"github.com/ttsuki/librawinput/pkg/monitor/filterdsl"
	"github.com/ttsuki/librawinput/pkg/rawinput"
	"github.com/ttsuki/librawinput/pkg/rawinput/hidapi"
)

// view is one immutable snapshot of the compiled settings, swapped
// atomically on config reload.
type view struct {
	settings Settings
	filter   filterdsl.Filter
}

type Monitor struct {
	config Config
	log    *zap.Logger
	out    io.Writer

	db        *badger.DB
	configSvc *configsvc.Service
	registry  *devreg.Registry

	view    atomic.Pointer[view]
	devices *xsync.MapOf[uint64, rawinput.DeviceDescriptor]
}

func New(config Config, out io.Writer) (*Monitor, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: logger.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	return &Monitor{
		config:    config,
		log:       logger,
		out:       out,
		db:        db,
		configSvc: configsvc.New(logger),
		registry:  devreg.New(db, logger, time.Now),
		devices:   xsync.NewMapOf[uint64, rawinput.DeviceDescriptor](),
	}, nil
}

func (m *Monitor) Close() error {
	return m.db.Close()
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any)   { l.l.Error(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Warningf(msg string, args ...any) { l.l.Warn(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Infof(msg string, args ...any)    { l.l.Info(fmt.Sprintf(msg, args...)) }
func (l badgerLogger) Debugf(msg string, args ...any)   { l.l.Debug(fmt.Sprintf(msg, args...)) }

// Run starts the monitor and blocks until the context is cancelled. The
// settings file is created with defaults on first run and is live-reloaded;
// an invalid reload keeps the last valid settings.
func (m *Monitor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return m.configSvc.Start(groupCtx)
	})
	select {
	case <-groupCtx.Done():
		return group.Wait()
	case <-m.configSvc.Ready():
	}

	settings, err := configsvc.RegisterWithDefault(m.configSvc, m.config.SettingsConfig, DefaultSettings(), m.onSettingsChange)
	if err != nil {
		return fmt.Errorf("failed to register settings: %w", err)
	}
	if err := m.applySettings(settings); err != nil {
		return err
	}

	mask, err := parseTypes(settings.Types)
	if err != nil {
		return err
	}
	backend := hidapi.NewBackend(m.log, mask)
	listener, err := rawinput.Listen(groupCtx, backend, mask, rawinput.Callbacks{
		OnRawReport:  m.onRawReport,
		OnKeyboard:   m.onKeyboard,
		OnMouse:      m.onMouse,
		OnGenericHID: m.onGenericHID,
		OnJoystick:   m.onJoystick,
	}, rawinput.WithLogger(m.log))
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}
	m.registerDevices(listener, backend)

	<-groupCtx.Done()
	if err := listener.Close(); err != nil {
		m.log.Error("failed to stop listener", zap.Error(err))
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}

func (m *Monitor) onSettingsChange(settings Settings, err error) {
	if err != nil {
		m.log.Error("failed to reload settings", zap.Error(err))
		return
	}
	if err := m.applySettings(settings); err != nil {
		m.log.Error("invalid settings, keeping previous", zap.Error(err))
	}
}

func (m *Monitor) applySettings(settings Settings) error {
	filter, err := filterdsl.Compile(settings.Filter)
	if err != nil {
		return fmt.Errorf("invalid filter %q: %w", settings.Filter, err)
	}
	m.view.Store(&view{settings: settings, filter: filter})
	return nil
}

var typeNames = map[string]rawinput.DeviceType{
	"mouse":    rawinput.DeviceMouse,
	"keyboard": rawinput.DeviceKeyboard,
	"joystick": rawinput.DeviceJoystick,
	"gamepad":  rawinput.DeviceGamePad,
	"all":      rawinput.DeviceAll,
}

func parseTypes(types []string) (rawinput.DeviceType, error) {
	if len(types) == 0 {
		return rawinput.DeviceAll, nil
	}
	mask := rawinput.DeviceNone
	for _, name := range types {
		t, ok := typeNames[strings.ToLower(name)]
		if !ok {
			return rawinput.DeviceNone, fmt.Errorf("unknown device type %q", name)
		}
		mask |= t
	}
	return mask, nil
}

// registerDevices records every currently connected device in the
// persistent registry, hashing the report descriptor when one is readable.
func (m *Monitor) registerDevices(l *rawinput.Listener, backend *hidapi.Backend) {
	devices, err := l.Devices()
	if err != nil {
		m.log.Error("failed to enumerate devices", zap.Error(err))
		return
	}
	for _, d := range devices {
		m.devices.Store(d.Handle, d)
		var hash uint64
		if raw, err := backend.ReportDescriptor(d.Handle); err == nil {
			hash = xxhash.Sum64(raw)
		}
		if _, err := m.registry.Touch(d, hash); err != nil {
			m.log.Error("failed to register device", zap.Error(err))
		}
	}
}

func (m *Monitor) passes(device uint64) bool {
	v := m.view.Load()
	d, ok := m.devices.Load(device)
	if !ok {
		// A device seen mid-session; descriptors are refreshed lazily.
		return true
	}
	return v.filter(d)
}

func (m *Monitor) onRawReport(typ rawinput.DeviceType, r hidevent.RawReport) {
	v := m.view.Load()
	if !v.settings.ShowRaw || !m.passes(r.Device) {
		return
	}
	fmt.Fprintf(m.out, "[%12.6f] %-8s dev=%d raw % x\n",
		float64(r.Timestamp)/1e6, typ.String(), r.Device, r.Data)
}

func (m *Monitor) onKeyboard(e hidevent.KeyboardEvent) {
	v := m.view.Load()
	if !v.settings.ShowKeyboard || !m.passes(e.Device) {
		return
	}
	var keys []string
	for _, k := range e.Keys {
		if k != 0 {
			keys = append(keys, fmt.Sprintf("%02x", k))
		}
	}
	fmt.Fprintf(m.out, "[%12.6f] keyboard dev=%d mods=%02x keys=[%s]\n",
		float64(e.Timestamp)/1e6, e.Device, e.Modifiers, strings.Join(keys, " "))
}

func (m *Monitor) onMouse(e hidevent.MouseEvent) {
	v := m.view.Load()
	if !v.settings.ShowMouse || !m.passes(e.Device) {
		return
	}
	fmt.Fprintf(m.out, "[%12.6f] mouse    dev=%d buttons=%03b down=%03b up=%03b dx=%+d dy=%+d wheel=%+d\n",
		float64(e.Timestamp)/1e6, e.Device, e.Buttons, e.PressedButtons, e.ReleasedButtons, e.DeltaX, e.DeltaY, e.Wheel)
}

func (m *Monitor) onGenericHID(e hidevent.Event) {
	v := m.view.Load()
	if !v.settings.ShowGeneric || !m.passes(e.Device) {
		return
	}
	var parts []string
	for _, s := range e.Values.All() {
		parts = append(parts, fmt.Sprintf("%s=%d", hidusage.Alias(s.UsagePage, s.UsageID), s.Value))
	}
	for _, b := range e.Buttons.All() {
		parts = append(parts, fmt.Sprintf("%s-%d=%b",
			hidusage.Alias(b.UsagePage, b.UsageMinimum), b.UsageMaximum, b.Pressed))
	}
	fmt.Fprintf(m.out, "[%12.6f] hid      dev=%d %s\n",
		float64(e.Timestamp)/1e6, e.Device, strings.Join(parts, " "))
}

func (m *Monitor) onJoystick(e joystick.Event) {
	v := m.view.Load()
	if !v.settings.ShowJoystick || !m.passes(e.Device) {
		return
	}
	var parts []string
	axes := []struct {
		name string
		a    joystick.Axis
	}{
		{"X", e.X}, {"Y", e.Y}, {"Z", e.Z},
		{"RotX", e.RotX}, {"RotY", e.RotY}, {"RotZ", e.RotZ},
	}
	for _, ax := range axes {
		if ax.a.Present {
			parts = append(parts, fmt.Sprintf("%s=%+.3f", ax.name, ax.a.Value))
		}
	}
	for i, s := range e.Sliders {
		if s.Present {
			parts = append(parts, fmt.Sprintf("Slider%d=%.3f", i, s.Value))
		}
	}
	for i, h := range e.Hats {
		if h.Present {
			parts = append(parts, fmt.Sprintf("Hat%d=%.3f(%+.2f,%+.2f)", i, h.Value, h.NX, h.NY))
		}
	}
	parts = append(parts, fmt.Sprintf("buttons=%0*b", e.ButtonCount, e.Buttons))
	fmt.Fprintf(m.out, "[%12.6f] joystick dev=%d %s\n",
		float64(e.Timestamp)/1e6, e.Device, strings.Join(parts, " "))
}

// ListDevices brings the backend up just long enough to enumerate matching
// devices, and returns the result as indented JSON or as YAML.
func (m *Monitor) ListDevices(ctx context.Context, filterSrc string, asYAML bool) ([]byte, error) {
	filter, err := filterdsl.Compile(filterSrc)
	if err != nil {
		return nil, err
	}
	devices, err := m.enumerate(ctx)
	if err != nil {
		return nil, err
	}
	var out []rawinput.DeviceDescriptor
	for _, d := range devices {
		if filter(d) {
			out = append(out, d)
		}
	}
	if asYAML {
		return yaml.Marshal(out)
	}
	return json.MarshalIndent(out, "", "  ")
}

// Describe reads and parses the report descriptor of the device at path,
// returning its derived capability table as indented JSON.
func (m *Monitor) Describe(ctx context.Context, path string) ([]byte, error) {
	backend := hidapi.NewBackend(m.log, rawinput.DeviceAll)
	var target *rawinput.DeviceDescriptor
	raw, desc, err := m.withBackend(ctx, backend, func() ([]byte, error) {
		devices, err := backend.ListDevices(rawinput.DeviceAll)
		if err != nil {
			return nil, err
		}
		for i := range devices {
			if devices[i].Path == path {
				target = &devices[i]
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("device not found: %s", path)
		}
		return backend.ReportDescriptor(target.Handle)
	})
	if err != nil {
		return nil, err
	}

	type description struct {
		Device         rawinput.DeviceDescriptor `json:"device"`
		DescriptorHash uint64                    `json:"descriptorHash"`
		Capabilities   hidcap.DeviceCaps         `json:"capabilities"`
	}
	return json.MarshalIndent(description{
		Device:         *target,
		DescriptorHash: xxhash.Sum64(raw),
		Capabilities:   desc,
	}, "", "  ")
}

// ExportRegistry dumps every device ever seen as YAML.
func (m *Monitor) ExportRegistry(w io.Writer) error {
	return m.registry.ExportYAML(w)
}

func (m *Monitor) enumerate(ctx context.Context) ([]rawinput.DeviceDescriptor, error) {
	backend := hidapi.NewBackend(m.log, rawinput.DeviceAll)
	var devices []rawinput.DeviceDescriptor
	_, _, err := m.withBackend(ctx, backend, func() ([]byte, error) {
		var err error
		devices, err = backend.ListDevices(rawinput.DeviceAll)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// withBackend runs fn against a briefly started backend. The raw bytes fn
// returns are parsed into a capability table when non-empty.
func (m *Monitor) withBackend(ctx context.Context, backend *hidapi.Backend, fn func() ([]byte, error)) ([]byte, hidcap.DeviceCaps, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- backend.Start(ctx, func(context.Context, rawinput.Notification) bool { return false })
	}()
	select {
	case <-ctx.Done():
		return nil, hidcap.DeviceCaps{}, ctx.Err()
	case err := <-errCh:
		return nil, hidcap.DeviceCaps{}, fmt.Errorf("failed to start backend: %w", err)
	case <-backend.Ready():
	}
	raw, err := fn()
	cancel()
	<-errCh
	if err != nil {
		return nil, hidcap.DeviceCaps{}, err
	}
	var caps hidcap.DeviceCaps
	if len(raw) > 0 {
		desc, err := hiddesc.Parse(raw)
		if err != nil {
			return nil, hidcap.DeviceCaps{}, fmt.Errorf("failed to parse report descriptor: %w", err)
		}
		caps = hidcap.FromDescriptor(desc)
	}
	return raw, caps, nil
}
