package internal

// CapturedField is one value of a materialized sets map: either a plain
// string or a nested CaptureItem, preserving enough structure to support
// chained "$x.@a.@b" property access (spec §3, §9 "nested-record
// captures vs. flat sets").
type CapturedField struct {
	IsItem bool
	Str    string
	Item   *CaptureItem
}

// CaptureItem is the central runtime record produced whenever a table
// roll is captured, or a shared binding evaluates to a table/template
// result (spec §3).
type CaptureItem struct {
	Value         string
	RawValue      string
	Description   string
	SourceTableID string
	Sets          map[string]CapturedField
	SetOrder      []string
	IsTemplate    bool
}

// FieldOrNil returns the CapturedField stored under key and true, or a
// zero CapturedField and false if the key is absent from Sets.
func (c *CaptureItem) FieldOrNil(key string) (CapturedField, bool) {
	if c == nil || c.Sets == nil {
		return CapturedField{}, false
	}
	f, ok := c.Sets[key]
	return f, ok
}

// Flatten returns the string representation of a CapturedField,
// flattening a nested CaptureItem to its Value.
func (f CapturedField) Flatten() string {
	if f.IsItem {
		if f.Item == nil {
			return ""
		}
		return f.Item.Value
	}
	return f.Str
}

// CaptureList is an ordered list of CaptureItems produced by a multi-roll
// or capture-into expression.
type CaptureList struct {
	Items []*CaptureItem
}

func (l *CaptureList) Count() int {
	if l == nil {
		return 0
	}
	return len(l.Items)
}

// At returns the i-th item, supporting negative indices counting from
// the end; ok is false on out-of-range access (spec §4.5 CaptureAccess).
func (l *CaptureList) At(i int) (*CaptureItem, bool) {
	if l == nil {
		return nil, false
	}
	n := len(l.Items)
	if i < 0 {
		i = n + i
	}
	if i < 0 || i >= n {
		return nil, false
	}
	return l.Items[i], true
}
