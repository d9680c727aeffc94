package rtengine

import (
	"time"

	"github.com/randtable/rtengine/internal"
)

// CaptureItem, CaptureList and CapturedField are re-exported from the core
// package as type aliases so callers inspecting a Result's captures never
// need to import internal directly, while the evaluator itself (which
// needs Frame alongside these types) stays free of an rtengine->internal
// ->rtengine import cycle.
type (
	CaptureItem   = internal.CaptureItem
	CaptureList   = internal.CaptureList
	CapturedField = internal.CapturedField
)

// Result is the envelope returned by RollTable and RollTemplate: the
// rendered text plus a flat copy of the top-level roll's materialized
// sets (spec §6).
type Result struct {
	Text         string
	Metadata     ResultMetadata
	Placeholders map[string]string
}

// ResultMetadata carries the identifying context of one roll: which table
// or template produced it, and when (spec §6).
type ResultMetadata struct {
	SourceID   string
	IsTemplate bool
	Timestamp  time.Time
}

// placeholdersFromItem flattens item's materialized sets (spec §6: "a
// flat copy of the top-level roll's materialized sets") into a plain
// string map holding every key in item.SetOrder; the map itself keeps no
// order. For a template roll,
// item.Sets mirrors the template's shared bindings (spec §3 "isTemplate").
func placeholdersFromItem(item *internal.CaptureItem) map[string]string {
	out := make(map[string]string, len(item.SetOrder))
	for _, key := range item.SetOrder {
		if f, ok := item.Sets[key]; ok {
			out[key] = f.Flatten()
		}
	}
	return out
}
