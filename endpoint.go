package ksaudio

import (
	"errors"
	"fmt"
	"sync"
)

// Endpoint is the facade of one filter: it describes the capability graph, answers property
// requests, negotiates formats and creates streams. Wave endpoints carry a streaming pin,
// topology endpoints only bridge pins.
type Endpoint struct {
	device     *Device
	descriptor *FilterDescriptor
	capture    bool

	mu          sync.Mutex
	initialized bool
	closed      bool
	streams     map[*Stream]struct{}
}

// NewWaveEndpoint returns the wave endpoint of the given direction. Init must be called before streams are created.
func NewWaveEndpoint(dev *Device, capture bool) *Endpoint {
	return newEndpoint(dev, newWaveFilter(capture), capture)
}

// NewTopologyEndpoint returns the topology endpoint of the given direction.
func NewTopologyEndpoint(dev *Device, capture bool) *Endpoint {
	d := newTopologyRenderFilter()
	if capture {
		d = newTopologyCaptureFilter()
	}

	return newEndpoint(dev, d, capture)
}

func newEndpoint(dev *Device, d *FilterDescriptor, capture bool) *Endpoint {
	return &Endpoint{
		device:     dev,
		descriptor: d,
		capture:    capture,
		streams:    make(map[*Stream]struct{}),
	}
}

// Init binds the endpoint to its device.
func (e *Endpoint) Init() error {
	if e == nil || e.device == nil {
		return fmt.Errorf("endpoint without device: %w", ErrInvalidParameter)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.initialized = true
	e.device.logf("endpoint %s: initialized", e.descriptor.Name)

	return nil
}

// Name returns the filter name.
func (e *Endpoint) Name() string {
	if e == nil {
		return ""
	}

	return e.descriptor.Name
}

// IsCapture reports whether the endpoint is a capture endpoint.
func (e *Endpoint) IsCapture() bool {
	return e != nil && e.capture
}

// Describe returns the static capability graph. The graph is shared by every caller and must not be modified.
func (e *Endpoint) Describe() *FilterDescriptor {
	if e == nil {
		return nil
	}

	return e.descriptor
}

// Property answers a filter-scoped property request.
func (e *Endpoint) Property(req *PropertyRequest) error {
	if e == nil {
		return fmt.Errorf("nil endpoint: %w", ErrInvalidParameter)
	}

	return e.handle("filter", e.descriptor.Properties, req)
}

// PinProperty answers a property request on pin. The pin index is stored in the instance data when the caller left it empty.
func (e *Endpoint) PinProperty(pin uint32, req *PropertyRequest) error {
	if e == nil || req == nil {
		return fmt.Errorf("nil endpoint or request: %w", ErrInvalidParameter)
	}

	p, err := e.descriptor.Pin(pin)
	if err != nil {
		return err
	}

	if len(req.Instance) == 0 {
		req.SetPinIndex(pin)
	}

	return e.handle(fmt.Sprintf("pin%d", pin), p.Properties, req)
}

// NodeProperty answers a property request on node.
func (e *Endpoint) NodeProperty(node uint32, req *PropertyRequest) error {
	if e == nil {
		return fmt.Errorf("nil endpoint: %w", ErrInvalidParameter)
	}

	n, err := e.descriptor.Node(node)
	if err != nil {
		return err
	}

	return e.handle(fmt.Sprintf("node%d", node), n.Properties, req)
}

func (e *Endpoint) handle(scope string, t AutomationTable, req *PropertyRequest) error {
	err := t.Handle(req)

	if req != nil && e.device != nil {
		e.device.logf("endpoint %s %s: %s: %v", e.descriptor.Name, scope, req, err)
	}

	return err
}

// Negotiate returns the format the pin agrees to for the caller's range.
// Repeated calls with the same range return the same format.
func (e *Endpoint) Negotiate(pin uint32, r *FormatRange) (FormatDescriptor, error) {
	if e == nil {
		return FormatDescriptor{}, fmt.Errorf("nil endpoint: %w", ErrInvalidParameter)
	}

	p, err := e.descriptor.Pin(pin)
	if err != nil {
		return FormatDescriptor{}, err
	}

	return intersect(p, r)
}

// DataRangeIntersection negotiates like Negotiate and encodes the result into out.
// It returns the size of the result record; an empty out is the probe and fails with ErrBufferTooSmall.
func (e *Endpoint) DataRangeIntersection(pin uint32, r *FormatRange, out []byte) (uint32, error) {
	if e == nil {
		return 0, fmt.Errorf("nil endpoint: %w", ErrInvalidParameter)
	}

	p, err := e.descriptor.Pin(pin)
	if err != nil {
		return 0, err
	}

	return intersectInto(p, r, out)
}

// CreateStream creates a stream on a streaming pin. The stream byte rate is taken from format.
func (e *Endpoint) CreateStream(pin uint32, capture bool, format *FormatDescriptor) (*Stream, error) {
	if e == nil {
		return nil, fmt.Errorf("nil endpoint: %w", ErrInvalidParameter)
	}

	if err := format.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized || e.closed {
		return nil, fmt.Errorf("endpoint %s: %w", e.descriptor.Name, ErrDeviceNotReady)
	}

	p, err := e.descriptor.Pin(pin)
	if err != nil {
		return nil, err
	}

	if !p.IsStreaming() {
		return nil, fmt.Errorf("pin %d of %s is not a streaming pin: %w", pin, e.descriptor.Name, ErrInvalidParameter)
	}

	if capture != e.capture {
		return nil, fmt.Errorf("direction does not match endpoint %s: %w", e.descriptor.Name, ErrInvalidParameter)
	}

	if format.IsBridge() {
		return nil, fmt.Errorf("bridge format on streaming pin: %w", ErrInvalidParameter)
	}

	var n uint32
	for s := range e.streams {
		if s.pin == pin {
			n++
		}
	}

	if n >= p.MaxFilterInstances {
		return nil, fmt.Errorf("pin %d has %d of %d instances: %w", pin, n, p.MaxFilterInstances, ErrInsufficientResources)
	}

	s := newStream(e, pin, capture, *format)
	e.streams[s] = struct{}{}

	e.device.logf("endpoint %s: new stream on pin %d, %s", e.descriptor.Name, pin, format)

	return s, nil
}

// Streams returns the number of open streams.
func (e *Endpoint) Streams() int {
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.streams)
}

// Close closes every open stream. A closed endpoint creates no new streams.
func (e *Endpoint) Close() error {
	if e == nil {
		return fmt.Errorf("nil endpoint: %w", ErrInvalidParameter)
	}

	e.mu.Lock()
	e.closed = true
	streams := make([]*Stream, 0, len(e.streams))
	for s := range e.streams {
		streams = append(streams, s)
	}
	e.mu.Unlock()

	var errs []error
	for _, s := range streams {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (e *Endpoint) removeStream(s *Stream) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.streams, s)
}
