package rawinput

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ttsuki/librawinput/hidcap"
	"github.com/ttsuki/librawinput/hidevent"
	"github.com/ttsuki/librawinput/joystick"
)

// State of a listener. Transitions are one-way:
// Constructing -> Listening -> Stopping -> Stopped.
type State uint32

const (
	StateConstructing State = iota
	StateListening
	StateStopping
	StateStopped
)

// Callbacks is the set of independently optional event sinks. A nil slot
// disables the corresponding projection entirely: a listener with no
// OnGenericHID and no OnJoystick never decodes HID reports. All callbacks
// run synchronously on the dispatch goroutine in notification arrival
// order; buffers passed to OnRawReport are only valid for the duration of
// the call.
type Callbacks struct {
	OnRawReport  func(DeviceType, hidevent.RawReport)
	OnKeyboard   func(hidevent.KeyboardEvent)
	OnMouse      func(hidevent.MouseEvent)
	OnGenericHID func(hidevent.Event)
	OnJoystick   func(joystick.Event)
}

type listenerOptions struct {
	log *zap.Logger
}

type Option func(*listenerOptions)

func WithLogger(log *zap.Logger) Option {
	return func(o *listenerOptions) {
		o.log = log
	}
}

// Listener owns the dispatch goroutine and the capability store for one
// subscription. Create it with Listen and release it with Close.
type Listener struct {
	log       *zap.Logger
	backend   Backend
	mask      DeviceType
	callbacks Callbacks
	caps      *hidcap.Store

	// last seen mouse button state per device, touched only on the
	// dispatch goroutine
	mouseButtons map[uint64]uint8

	state  atomic.Uint32
	notif  chan envelope
	done   chan struct{}
	cancel context.CancelFunc
	errCh  chan error
}

// envelope pairs a notification with its completion signal. The dispatch
// goroutine closes dispatched after the callback chain returns, which is
// what lets a backend reuse its transient report buffer.
type envelope struct {
	n          Notification
	dispatched chan struct{}
}

// Listen starts a backend, eagerly primes the capability store for every
// currently connected HID-decodable device, and arms the dispatch
// goroutine. It blocks until the listener is fully ready to deliver
// notifications; a backend that fails to come up is a construction failure
// and no listener is returned.
func Listen(ctx context.Context, backend Backend, mask DeviceType, callbacks Callbacks, opts ...Option) (*Listener, error) {
	options := listenerOptions{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(ctx)
	l := &Listener{
		log:          options.log.Named("rawinput"),
		backend:      backend,
		mask:         mask,
		callbacks:    callbacks,
		caps:         hidcap.NewStore(options.log, backend.ReportDescriptor),
		mouseButtons: map[uint64]uint8{},
		notif:        make(chan envelope),
		done:         make(chan struct{}),
		cancel:       cancel,
		errCh:        make(chan error, 1),
	}

	go func() {
		l.errCh <- backend.Start(ctx, l.publish)
	}()
	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case err := <-l.errCh:
		cancel()
		if err == nil {
			err = errors.New("backend exited before becoming ready")
		}
		return nil, fmt.Errorf("failed to start backend: %w", err)
	case <-backend.Ready():
	}

	if err := l.primeCapabilities(); err != nil {
		cancel()
		return nil, err
	}

	dispatchReady := make(chan struct{})
	go l.run(ctx, dispatchReady)
	<-dispatchReady

	l.state.Store(uint32(StateListening))
	l.log.Info("listening", zap.String("mask", mask.String()))
	return l, nil
}

// State returns the listener's lifecycle state.
func (l *Listener) State() State {
	return State(l.state.Load())
}

// Devices enumerates currently connected devices matching the mask.
func (l *Listener) Devices() ([]DeviceDescriptor, error) {
	return l.backend.ListDevices(l.mask)
}

// Close stops listening and blocks until the dispatch goroutine has
// finished; an in-flight callback always runs to completion first. Close is
// idempotent.
func (l *Listener) Close() error {
	if !l.state.CompareAndSwap(uint32(StateListening), uint32(StateStopping)) {
		return nil
	}
	l.cancel()
	<-l.done
	err := <-l.errCh
	l.state.Store(uint32(StateStopped))
	l.log.Info("stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (l *Listener) primeCapabilities() error {
	decodable := l.mask & (DeviceJoystick | DeviceGamePad)
	if decodable == DeviceNone {
		return nil
	}
	devices, err := l.backend.ListDevices(decodable)
	if err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		// Load failures are cached as "no capabilities" and logged
		// inside the store; reports from such devices decode to empty.
		_ = l.caps.Load(d.Handle)
	}
	return nil
}

func (l *Listener) publish(ctx context.Context, n Notification) bool {
	env := envelope{n: n, dispatched: make(chan struct{})}
	select {
	case <-ctx.Done():
		return false
	case l.notif <- env:
	}
	// Once the send succeeded the dispatch goroutine owns the notification
	// and is guaranteed to signal completion; the caller must not touch the
	// report buffer until then.
	<-env.dispatched
	return true
}

func (l *Listener) run(ctx context.Context, ready chan<- struct{}) {
	defer close(l.done)
	close(ready)
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-l.notif:
			l.dispatch(env.n)
			close(env.dispatched)
		}
	}
}

func (l *Listener) dispatch(n Notification) {
	if n.Attached != nil {
		l.onAttached(*n.Attached)
		return
	}
	if l.callbacks.OnRawReport != nil {
		l.callbacks.OnRawReport(n.Type, n.Report)
	}
	switch n.Type {
	case DeviceKeyboard:
		if l.callbacks.OnKeyboard != nil {
			if e, ok := hidevent.ParseKeyboard(n.Report); ok {
				l.callbacks.OnKeyboard(e)
			}
		}
	case DeviceMouse:
		if l.callbacks.OnMouse != nil {
			if e, ok := hidevent.ParseMouse(n.Report); ok {
				e = e.WithButtonEdges(l.mouseButtons[e.Device])
				l.mouseButtons[e.Device] = e.Buttons
				l.callbacks.OnMouse(e)
			}
		}
	case DeviceJoystick, DeviceGamePad:
		if l.callbacks.OnGenericHID == nil && l.callbacks.OnJoystick == nil {
			return
		}
		caps, _ := l.caps.Ensure(n.Report.Device)
		e := hidevent.Decode(n.Report, caps)
		if l.callbacks.OnGenericHID != nil {
			l.callbacks.OnGenericHID(e)
		}
		if l.callbacks.OnJoystick != nil {
			l.callbacks.OnJoystick(joystick.FromHidEvent(e))
		}
	}
}

func (l *Listener) onAttached(d DeviceDescriptor) {
	l.log.Debug("device attached",
		zap.Uint64("device", d.Handle),
		zap.String("type", d.Type.String()),
		zap.String("path", d.Path))
	if d.Type.Has(DeviceJoystick | DeviceGamePad) {
		l.caps.Ensure(d.Handle)
	}
}
