package internal

import "strings"

// FrameValueKind discriminates what a Frame binding currently holds.
type FrameValueKind string

const (
	FrameScalar FrameValueKind = "scalar"
	FrameItem   FrameValueKind = "item"
	FrameList   FrameValueKind = "list"
)

// FrameValue is one binding's current content.
type FrameValue struct {
	Kind   FrameValueKind
	Scalar string
	Item   *CaptureItem
	List   *CaptureList
}

// Frame is the per-top-level-invocation binding environment (spec §3,
// §4.6 "Capture Frame"). Each top-level RollTable/RollTemplate call owns
// a fresh Frame so that "{{4*npcTemplate}}" yields four independent
// frames (spec §8 property 7); a Frame is never shared across calls and
// is not safe for concurrent use, matching spec §5's single-threaded
// cooperative model.
type Frame struct {
	values       map[string]FrameValue
	order        []string
	instances    map[string]*CaptureItem
	tableResults map[string]*CaptureItem
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{
		values:       make(map[string]FrameValue),
		instances:    make(map[string]*CaptureItem),
		tableResults: make(map[string]*CaptureItem),
	}
}

// normalizeName strips a leading "$" so bindings are addressable whether
// the author wrote "name" or "$name" in the document (spec §4.6).
func normalizeName(name string) string {
	return strings.TrimPrefix(name, "$")
}

// Get looks up a binding by name.
func (f *Frame) Get(name string) (FrameValue, bool) {
	v, ok := f.values[normalizeName(name)]
	return v, ok
}

// HasList reports whether name currently holds a CaptureList.
func (f *Frame) HasList(name string) bool {
	v, ok := f.Get(name)
	return ok && v.Kind == FrameList
}

func (f *Frame) set(name string, v FrameValue) {
	key := normalizeName(name)
	if _, exists := f.values[key]; !exists {
		f.order = append(f.order, key)
	}
	f.values[key] = v
}

// SetScalar stores a plain string binding.
func (f *Frame) SetScalar(name, value string) {
	f.set(name, FrameValue{Kind: FrameScalar, Scalar: value})
}

// SetItem stores a CaptureItem binding, enabling later property access.
func (f *Frame) SetItem(name string, item *CaptureItem) {
	f.set(name, FrameValue{Kind: FrameItem, Item: item})
}

// SetList stores a CaptureList binding produced by a capture-into roll.
func (f *Frame) SetList(name string, list *CaptureList) {
	f.set(name, FrameValue{Kind: FrameList, List: list})
}

// Snapshot returns the binding names in first-declaration order.
func (f *Frame) Snapshot() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Instance returns the cached roll for a "table#name" singleton.
func (f *Frame) Instance(key string) (*CaptureItem, bool) {
	item, ok := f.instances[key]
	return item, ok
}

// SetInstance caches the first roll of a "table#name" singleton.
func (f *Frame) SetInstance(key string, item *CaptureItem) {
	f.instances[key] = item
}

// TableResult returns the most recently materialized CaptureItem whose
// source table id is tableID, within this top-level invocation. It backs
// "@tableId.key" placeholder references made outside the row that
// produced them (spec §3, §9's "Intra-set reference + math" scenario,
// where a later shared binding or the pattern references a table already
// rolled earlier in the same frame).
func (f *Frame) TableResult(tableID string) (*CaptureItem, bool) {
	item, ok := f.tableResults[tableID]
	return item, ok
}

// SetTableResult records the last CaptureItem materialized from tableID.
func (f *Frame) SetTableResult(tableID string, item *CaptureItem) {
	f.tableResults[tableID] = item
}
