package ksaudio

import (
	"fmt"
)

// PropertyRequest is a single property query issued by the host.
//
// ValueSize is the size of the caller's value buffer on input and the number of bytes
// written (or required) on output. Value may be nil, in which case sizes are still
// reported but nothing is written.
type PropertyRequest struct {
	Set       GUID
	ID        uint32
	Verb      Verb
	Instance  []byte // Instance data, for pin-scoped requests the pin index as a little-endian ULONG.
	Value     []byte
	ValueSize uint32

	// Item is the automation table entry the request was routed to. It is set by AutomationTable.Handle.
	Item *PropertyItem
}

// NewPropertyRequest returns a request with a value buffer of the given size.
// A size of zero yields the probe form of the request.
func NewPropertyRequest(set GUID, id uint32, verb Verb, size uint32) *PropertyRequest {
	req := &PropertyRequest{
		Set:       set,
		ID:        id,
		Verb:      verb,
		ValueSize: size,
	}

	if size > 0 {
		req.Value = make([]byte, size)
	}

	return req
}

// PinIndex returns the pin index carried in the instance data, or KSFILTER_NODE when there is none.
func (r *PropertyRequest) PinIndex() uint32 {
	if len(r.Instance) < SizeofULONG {
		return KSFILTER_NODE
	}

	return le.Uint32(r.Instance)
}

// SetPinIndex stores a pin index in the instance data.
func (r *PropertyRequest) SetPinIndex(pin uint32) {
	r.Instance = make([]byte, SizeofULONG)
	le.PutUint32(r.Instance, pin)
}

// String returns a short description used in log lines.
func (r *PropertyRequest) String() string {
	return fmt.Sprintf("set=%s id=%d verb=%#x size=%d", guidName(r.Set), r.ID, uint32(r.Verb), r.ValueSize)
}

func (r *PropertyRequest) validate() error {
	if r == nil {
		return fmt.Errorf("nil request: %w", ErrInvalidParameter)
	}

	if r.Verb == 0 {
		return fmt.Errorf("empty verb: %w", ErrInvalidParameter)
	}

	if r.Value != nil && uint32(len(r.Value)) < r.ValueSize {
		return fmt.Errorf("value buffer is %d bytes, request claims %d: %w", len(r.Value), r.ValueSize, ErrInvalidParameter)
	}

	return nil
}

// reserve checks the caller's buffer against a record of the given size.
// A zero-size buffer is the probe and fails with ErrBufferTooSmall, a non-zero undersized
// buffer fails with ErrInvalidBufferSize. Both report the required size in ValueSize.
func (r *PropertyRequest) reserve(size uint32) error {
	switch {
	case r.ValueSize == 0:
		r.ValueSize = size

		return ErrBufferTooSmall
	case r.ValueSize < size:
		got := r.ValueSize
		r.ValueSize = size

		return fmt.Errorf("need %d bytes, got %d: %w", size, got, ErrInvalidBufferSize)
	}

	r.ValueSize = size

	return nil
}

// value returns the first size bytes of the value buffer, or nil when the caller passed none.
func (r *PropertyRequest) value(size uint32) []byte {
	if r.Value == nil {
		return nil
	}

	return r.Value[:size]
}

func (r *PropertyRequest) isBasicSupport() bool {
	return r.Verb&KSPROPERTY_TYPE_BASICSUPPORT != 0
}

func (r *PropertyRequest) isSet() bool {
	return r.Verb&KSPROPERTY_TYPE_SET != 0
}

// PropertyHandler answers property requests for one attribute family.
type PropertyHandler interface {
	HandleProperty(req *PropertyRequest) error
}

// PropertyItem is one entry of an automation table.
type PropertyItem struct {
	Set     GUID
	ID      uint32
	Flags   Verb
	Handler PropertyHandler
}

// AutomationTable is the list of properties a filter, pin or node answers.
type AutomationTable []PropertyItem

// Lookup returns the item for (set, id).
func (t AutomationTable) Lookup(set GUID, id uint32) (*PropertyItem, bool) {
	for i := range t {
		if t[i].Set == set && t[i].ID == id {
			return &t[i], true
		}
	}

	return nil, false
}

// Handle routes the request to the handler of the matching item.
// Unknown attributes and verbs outside the item's flags fail with ErrNotImplemented.
func (t AutomationTable) Handle(req *PropertyRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	item, ok := t.Lookup(req.Set, req.ID)
	if !ok {
		return fmt.Errorf("%s: %w", req, ErrNotImplemented)
	}

	if req.Verb&^item.Flags != 0 {
		return fmt.Errorf("%s: verb not supported: %w", req, ErrNotImplemented)
	}

	req.Item = item

	return item.Handler.HandleProperty(req)
}

// basicSupport answers a capability query with a property description.
// A buffer large enough for the description gets the full record, a buffer
// large enough for a ULONG gets the access flags only.
func basicSupport(req *PropertyRequest, access Verb, vt uint32) error {
	const full = SizeofPropertyDescription

	switch {
	case req.ValueSize == 0:
		req.ValueSize = full

		return ErrBufferTooSmall
	case req.ValueSize >= full:
		if b := req.value(full); b != nil {
			d := PropertyDescription{
				AccessFlags:     access,
				DescriptionSize: full,
				PropTypeSet: Identifier{
					Set: KSPROPTYPESETID_General,
					ID:  vt,
				},
			}
			d.put(b)
		}

		req.ValueSize = full

		return nil
	case req.ValueSize >= SizeofULONG:
		accessOnly(req, access)

		return nil
	}

	return basicSupportTooSmall(req, full)
}

// flagsSupport answers a capability query whose full record is the access flags word.
func flagsSupport(req *PropertyRequest, access Verb) error {
	if err := req.reserve(SizeofULONG); err != nil {
		return err
	}

	accessOnly(req, access)

	return nil
}

func accessOnly(req *PropertyRequest, access Verb) {
	if b := req.value(SizeofULONG); b != nil {
		le.PutUint32(b, uint32(access))
	}

	req.ValueSize = SizeofULONG
}

func basicSupportTooSmall(req *PropertyRequest, full uint32) error {
	got := req.ValueSize
	req.ValueSize = full

	return fmt.Errorf("basic support needs %d or %d bytes, got %d: %w", full, SizeofULONG, got, ErrInvalidBufferSize)
}

// checkRequest rejects nil requests and requests not routed through an automation table.
func checkRequest(req *PropertyRequest) error {
	if err := req.validate(); err != nil {
		return err
	}

	if req.Item == nil {
		return fmt.Errorf("missing property item: %w", ErrInvalidParameter)
	}

	return nil
}
