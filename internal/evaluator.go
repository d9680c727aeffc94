package internal

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// TableKind discriminates the three table shapes of spec §3.
type TableKind string

const (
	TableSimple     TableKind = "simple"
	TableCollection TableKind = "collection"
	TableComposite  TableKind = "composite"
)

// EntryView is the evaluator's read-only view of one table entry, decoupled
// from rtengine's document JSON shape so the core package never imports it.
// Weight is a pointer so a nil (unspecified, defaults to 1) weight can be
// told apart from an explicit weight of 0, which stays unreachable rather
// than defaulting (spec §3.1).
type EntryView struct {
	ID          string
	Index       int
	Value       string
	Weight      *float64
	Description string
	Sets        map[string]string
	SetOrder    []string
}

// entryWeight resolves an EntryView's effective weight: an unspecified
// weight defaults to 1, but an explicit weight (even ≤ 0) is taken as-is.
func entryWeight(w *float64) float64 {
	if w == nil {
		return 1
	}
	return *w
}

// WeightedSourceView is one member of a composite table's source list.
type WeightedSourceView struct {
	TableID string
	Weight  float64
}

// TableView is the evaluator's read-only view of one table.
type TableView struct {
	ID              string
	Kind            TableKind
	DefaultSets     map[string]string
	DefaultSetOrder []string
	Entries         []EntryView          // simple
	RefIDs          []string             // collection
	Sources         []WeightedSourceView // composite
}

// TemplateView is the evaluator's read-only view of one template.
type TemplateView struct {
	ID      string
	Shared  []SharedBindingView
	Pattern string
}

// SharedBindingView is one ordered "name: template" pair of a template's
// shared block.
type SharedBindingView struct {
	Name     string
	Template string
}

// Host is everything the core evaluator needs from the outside world: the
// loaded document's tables/templates/variables, the abstract weighted
// sampler, and the pluggable dice/math resolvers (spec §1's "external
// collaborators").
type Host interface {
	Table(id string) (TableView, bool)
	Template(id string) (TemplateView, bool)
	Variables() map[string]string
	// Sample returns the index chosen by a single weighted draw over
	// weights (entries with weight <= 0 are never selectable).
	Sample(weights []float64) int
	RollDice(expr string) (string, error)
	EvalMath(expr string, scope CondScope) (string, error)
	DefaultSeparator() string
	MaxRecursionDepth() int
	Logger() *zap.Logger
}

// AgainContext tracks the table and per-chain exclusion set that "again"
// resolves against; it only exists while evaluating a simple-table entry's
// own value (spec §4.5 "Again").
type AgainContext struct {
	TableID string
	Exclude map[string]bool
}

// PlaceholderScope resolves "@name[.propChain]" placeholders active during
// one entry's description/sets/value evaluation (spec §4.4).
type PlaceholderScope interface {
	ResolveRoot(name string, props []PropStep) string
}

// EvalContext threads the state that varies per recursive Evaluate call:
// the frame is constant for a whole top-level roll, while depth,
// placeholder scope and again-context are rebuilt at each table-ref
// boundary.
type EvalContext struct {
	Frame       *Frame
	Depth       int
	Placeholder PlaceholderScope
	Again       *AgainContext
}

func (c *EvalContext) child(depth int) *EvalContext {
	return &EvalContext{Frame: c.Frame, Depth: depth, Placeholder: c.Placeholder, Again: c.Again}
}

// Evaluator is the C5 tree-walking evaluator. One Evaluator is created per
// top-level RollTable/RollTemplate call; its Frame, instance cache and
// materialization cycle stack are never reused across calls (spec §5).
type Evaluator struct {
	host       Host
	cache      *ParseCache
	cycleStack map[string]bool
}

// NewEvaluator builds an Evaluator bound to host, sharing cache (safe for
// concurrent reuse across unrelated top-level calls) across invocations.
func NewEvaluator(host Host, cache *ParseCache) *Evaluator {
	if cache == nil {
		cache = NewParseCache()
	}
	return &Evaluator{host: host, cache: cache, cycleStack: make(map[string]bool)}
}

// Evaluate parses and interprets source as a mini-template, returning its
// rendered text and, when source parsed to exactly one expression token
// whose evaluation produced a CaptureItem, that item as well (spec §4.5's
// "the string parsed to exactly one token" rule).
func (ev *Evaluator) Evaluate(source string, ctx *EvalContext) (string, *CaptureItem, error) {
	max := ev.host.MaxRecursionDepth()
	if max > 0 && ctx.Depth > max {
		return "", nil, &RecursionLimitError{Depth: ctx.Depth, LastToken: source}
	}

	frags, err := ev.cache.Fragments(source)
	if err != nil {
		return "", nil, err
	}

	if len(frags) == 1 && frags[0].Kind == FragmentExpr {
		node, err := ParseFragment(frags[0].Text)
		if err != nil {
			return "", nil, err
		}
		return ev.evalNode(node, ctx)
	}

	var sb strings.Builder
	for _, f := range frags {
		if f.Kind == FragmentText {
			sb.WriteString(f.Text)
			continue
		}
		node, err := ParseFragment(f.Text)
		if err != nil {
			return "", nil, err
		}
		text, _, err := ev.evalNode(node, ctx)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil, nil
}

func (ev *Evaluator) nextCtx(ctx *EvalContext) *EvalContext {
	return ctx.child(ctx.Depth + 1)
}

// evalNode dispatches on the AST node kind, implementing spec §4.5's
// per-production semantics.
func (ev *Evaluator) evalNode(node Node, ctx *EvalContext) (string, *CaptureItem, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return n.Text, nil, nil

	case *QuotedNode:
		text, _, err := ev.Evaluate(n.Raw, ev.nextCtx(ctx))
		return text, nil, err

	case *DiceNode:
		text, err := ev.host.RollDice(n.Expr)
		if err != nil {
			return "", nil, err
		}
		return text, nil, nil

	case *MathNode:
		text, err := ev.host.EvalMath(n.Expr, ev.condScope(ctx))
		if err != nil {
			return "", nil, err
		}
		return text, nil, nil

	case *VariableNode:
		return ev.evalVariable(n, ctx)

	case *CaptureAccessNode:
		return ev.evalCaptureAccess(n, ctx)

	case *PlaceholderNode:
		return ev.evalPlaceholder(n, ctx)

	case *TableRefNode:
		return ev.evalTableRef(n, ctx)

	case *InstanceNode:
		return ev.evalInstance(n, ctx)

	case *MultiRollNode:
		return ev.evalMultiRoll(n, ctx, nil)

	case *CaptureMultiNode:
		return ev.evalCaptureMulti(n, ctx)

	case *CollectNode:
		return ev.evalCollect(n, ctx)

	case *AgainNode:
		return ev.evalAgain(n, ctx)

	case *SwitchNode:
		return ev.evalSwitch(n.Clauses, n.Else, ctx)

	case *AttachedSwitchNode:
		baseText, baseItem, err := ev.evalNode(n.Base, ctx)
		if err != nil {
			return "", nil, err
		}
		scope := dollarScope{inner: ev.condScope(ctx), value: baseText}
		matched, text, item, err := ev.evalSwitchMatch(n.Clauses, n.Else, ctx, scope)
		if err != nil {
			return "", nil, err
		}
		if matched {
			return text, item, nil
		}
		return baseText, baseItem, nil
	}
	return "", nil, fmt.Errorf("unhandled node kind %v", node.Kind())
}

// --- variables / captures ------------------------------------------------

func (ev *Evaluator) evalVariable(n *VariableNode, ctx *EvalContext) (string, *CaptureItem, error) {
	fv, ok := ctx.Frame.Get(n.Name)
	if !ok {
		return "", nil, nil // MissingVariable: recoverable, renders empty
	}
	switch fv.Kind {
	case FrameScalar:
		return fv.Scalar, nil, nil
	case FrameItem:
		return fv.Item.Value, fv.Item, nil
	case FrameList:
		var parts []string
		for _, it := range fv.List.Items {
			parts = append(parts, it.Value)
		}
		return strings.Join(parts, ev.host.DefaultSeparator()), nil, nil
	}
	return "", nil, nil
}

func (ev *Evaluator) evalCaptureAccess(n *CaptureAccessNode, ctx *EvalContext) (string, *CaptureItem, error) {
	fv, ok := ctx.Frame.Get(n.Name)
	if !ok {
		return "", nil, nil
	}
	switch fv.Kind {
	case FrameList:
		if n.HasIndex {
			item, ok := fv.List.At(n.Index)
			if !ok {
				return "", nil, nil // IndexOutOfRange: recoverable
			}
			text, chained := evalItemChain(item, n.Props)
			return text, chained, nil
		}
		if len(n.Props) == 1 && n.Props[0].Kind == PropCount {
			return strconv.Itoa(fv.List.Count()), nil, nil
		}
		sep := n.Sep.Separator(ev.host.DefaultSeparator())
		parts := make([]string, 0, fv.List.Count())
		for _, it := range fv.List.Items {
			parts = append(parts, it.Value)
		}
		return strings.Join(parts, sep), nil, nil
	case FrameItem:
		text, chained := evalItemChain(fv.Item, n.Props)
		return text, chained, nil
	case FrameScalar:
		if len(n.Props) == 0 {
			return fv.Scalar, nil, nil
		}
		return "", nil, nil // MissingProperty: scalar has no chain
	}
	return "", nil, nil
}

// evalItemChain walks a "$x.@a.@b" / "@tableId.key" property chain over a
// CaptureItem, returning the flattened text plus (when the chain ends
// exactly on a nested CaptureItem, or is empty) that item itself so a
// single-token expression can still emit a capture (spec §4.5, §4.6).
func evalItemChain(item *CaptureItem, props []PropStep) (string, *CaptureItem) {
	cur := item
	for i, step := range props {
		switch step.Kind {
		case PropValue:
			if cur == nil {
				return "", nil
			}
			return cur.Value, nil
		case PropDescription:
			if cur == nil {
				return "", nil
			}
			return cur.Description, nil
		case PropCount:
			return "", nil // MissingProperty: count only applies to lists
		case PropAt:
			if cur == nil {
				return "", nil
			}
			f, ok := cur.Sets[step.Name]
			if !ok {
				return "", nil // MissingKey: recoverable
			}
			if i == len(props)-1 {
				if f.IsItem {
					return f.Item.Value, f.Item
				}
				return f.Str, nil
			}
			if !f.IsItem {
				return "", nil // MissingProperty: can't chain through a plain string
			}
			cur = f.Item
		}
	}
	if cur == nil {
		return "", nil
	}
	return cur.Value, cur
}

// --- placeholders ----------------------------------------------------------

func (ev *Evaluator) evalPlaceholder(n *PlaceholderNode, ctx *EvalContext) (string, *CaptureItem, error) {
	if ctx.Placeholder == nil {
		return "", nil, nil // MissingVariable-equivalent outside any entry context
	}
	return ctx.Placeholder.ResolveRoot(n.Name, n.Props), nil, nil
}

// materializationScope implements PlaceholderScope for one entry's
// description/sets/value evaluation, exposing "@self.value",
// "@self.description" and "@<tableId>.<key>" (spec §4.4).
type materializationScope struct {
	rawValue    string
	description string
	tableID     string
	partial     map[string]CapturedField
	parent      PlaceholderScope
}

func (s *materializationScope) ResolveRoot(name string, props []PropStep) string {
	if name == "self" {
		if len(props) == 0 {
			return s.rawValue
		}
		switch props[0].Kind {
		case PropValue:
			return s.rawValue
		case PropDescription:
			return s.description
		}
		return ""
	}
	if s.tableID != "" && name == s.tableID {
		if len(props) == 0 {
			return ""
		}
		first := props[0]
		if first.Kind != PropAt {
			return ""
		}
		f, ok := s.partial[first.Name]
		if !ok {
			// MissingKey / cycle short-circuit: never falls back to an outer
			// scope for the table currently materializing (spec §8 property 4).
			return ""
		}
		if len(props) == 1 {
			return f.Flatten()
		}
		if !f.IsItem {
			return ""
		}
		text, _ := evalItemChain(f.Item, props[1:])
		return text
	}
	return s.fallback(name, props)
}

// fallback defers to the enclosing placeholder scope (spec §3's
// "@tableId.key" intra-set reference also fires for a table rolled
// earlier in the same top-level invocation, not only the row currently
// materializing) so that a reference to a sibling table or an ancestor
// row still resolves instead of unconditionally going empty.
func (s *materializationScope) fallback(name string, props []PropStep) string {
	if s.parent == nil {
		return "" // MissingKey: unknown placeholder root
	}
	return s.parent.ResolveRoot(name, props)
}

// framePlaceholderScope backs "@tableId.key" references made outside any
// entry's own materialization — most commonly a template's shared
// bindings or pattern referencing a table rolled by an earlier shared
// binding (spec §9's intra-set-reference-plus-math scenario).
type framePlaceholderScope struct {
	frame *Frame
}

func (s *framePlaceholderScope) ResolveRoot(name string, props []PropStep) string {
	item, ok := s.frame.TableResult(name)
	if !ok {
		return "" // MissingKey: recoverable
	}
	if len(props) == 0 {
		return item.Value
	}
	text, _ := evalItemChain(item, props)
	return text
}

// condScope adapts the current EvalContext into the shared CondScope used
// by switch conditions and math substitution.
func (ev *Evaluator) condScope(ctx *EvalContext) CondScope { return evalScope{ev: ev, ctx: ctx} }

// dollarScope overrides the bare "$" comparand to resolve to a fixed
// scalar, used by attached switch (spec §4.5: "the bare symbol $ refers
// to this scalar") while delegating every named "$name"/"@name" lookup
// to the wrapped scope unchanged.
type dollarScope struct {
	inner CondScope
	value string
}

func (s dollarScope) ResolveVariable(name string, props []PropStep) string {
	if name == "" {
		if len(props) != 0 {
			return ""
		}
		return s.value
	}
	return s.inner.ResolveVariable(name, props)
}

func (s dollarScope) ResolvePlaceholder(name string, props []PropStep) string {
	return s.inner.ResolvePlaceholder(name, props)
}

type evalScope struct {
	ev  *Evaluator
	ctx *EvalContext
}

func (s evalScope) ResolveVariable(name string, props []PropStep) string {
	fv, ok := s.ctx.Frame.Get(name)
	if !ok {
		return ""
	}
	switch fv.Kind {
	case FrameScalar:
		if len(props) == 0 {
			return fv.Scalar
		}
		return ""
	case FrameItem:
		if len(props) == 0 {
			return fv.Item.Value
		}
		text, _ := evalItemChain(fv.Item, props)
		return text
	case FrameList:
		if len(props) == 1 && props[0].Kind == PropCount {
			return strconv.Itoa(fv.List.Count())
		}
	}
	return ""
}

func (s evalScope) ResolvePlaceholder(name string, props []PropStep) string {
	if s.ctx.Placeholder == nil {
		return ""
	}
	return s.ctx.Placeholder.ResolveRoot(name, props)
}

// --- table references --------------------------------------------------------

func (ev *Evaluator) evalTableRef(n *TableRefNode, ctx *EvalContext) (string, *CaptureItem, error) {
	isTable, isTemplate := false, false
	if _, ok := ev.host.Table(n.TableID); ok {
		isTable = true
	} else if _, ok := ev.host.Template(n.TableID); ok {
		isTemplate = true
	}

	var item *CaptureItem
	var err error
	if isTemplate {
		item, _, err = ev.rollTemplateByID(n.TableID, ctx)
	} else if isTable {
		item, err = ev.rollTableByID(n.TableID, ctx)
	} else {
		return "", nil, &UnknownTableError{TableID: n.TableID}
	}
	if err != nil {
		return "", nil, err
	}
	if len(n.Props) == 0 {
		return item.Value, item, nil
	}
	text, chained := evalItemChain(item, n.Props)
	return text, chained, nil
}

func (ev *Evaluator) rollTableByID(tableID string, ctx *EvalContext) (*CaptureItem, error) {
	entry, sourceTableID, _, ok, err := ev.selectEntry(tableID, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &CaptureItem{SourceTableID: tableID}, nil
	}
	item, err := ev.materializeAndEvalEntry(sourceTableID, entry, ctx)
	if err != nil {
		return nil, err
	}
	if ctx.Frame != nil {
		ctx.Frame.SetTableResult(sourceTableID, item)
	}
	return item, nil
}

// rollTemplateByID runs the C7 Template Runner: a fresh Frame seeded with
// the document's default variables, each shared binding evaluated in
// order and bound into that frame, then the pattern evaluated against it
// (spec §3, §8.7 "independent frames per invocation").
func (ev *Evaluator) rollTemplateByID(templateID string, ctx *EvalContext) (*CaptureItem, *Frame, error) {
	tmpl, ok := ev.host.Template(templateID)
	if !ok {
		return nil, nil, &UnknownTemplateError{TemplateID: templateID}
	}

	frame := NewFrame()
	for k, v := range ev.host.Variables() {
		frame.SetScalar(k, v)
	}
	newCtx := &EvalContext{Frame: frame, Depth: ctx.Depth + 1, Placeholder: &framePlaceholderScope{frame: frame}}

	sets := map[string]CapturedField{}
	var order []string
	for _, sb := range tmpl.Shared {
		text, item, err := ev.Evaluate(sb.Template, newCtx)
		if err != nil {
			return nil, nil, err
		}
		if item != nil {
			frame.SetItem(sb.Name, item)
			sets[sb.Name] = CapturedField{IsItem: true, Item: item}
		} else {
			frame.SetScalar(sb.Name, text)
			sets[sb.Name] = CapturedField{Str: text}
		}
		order = append(order, sb.Name)
	}

	patternText, _, err := ev.Evaluate(tmpl.Pattern, newCtx)
	if err != nil {
		return nil, nil, err
	}

	return &CaptureItem{
		Value:         patternText,
		RawValue:      tmpl.Pattern,
		SourceTableID: templateID,
		Sets:          sets,
		SetOrder:      order,
		IsTemplate:    true,
	}, frame, nil
}

// RollTable is the top-level entry point for rolling tableID directly
// (spec §6's RollTable operation): a fresh Frame seeded with document
// variables, one weighted draw, full materialization.
func (ev *Evaluator) RollTable(tableID string) (*CaptureItem, *Frame, error) {
	frame := NewFrame()
	for k, v := range ev.host.Variables() {
		frame.SetScalar(k, v)
	}
	ctx := &EvalContext{Frame: frame, Depth: 0, Placeholder: &framePlaceholderScope{frame: frame}}
	item, err := ev.rollTableByID(tableID, ctx)
	if err != nil {
		return nil, nil, err
	}
	return item, frame, nil
}

// RollTemplate is the top-level entry point for running templateID
// directly (spec §6's RollTemplate operation).
func (ev *Evaluator) RollTemplate(templateID string) (*CaptureItem, *Frame, error) {
	frame := NewFrame()
	ctx := &EvalContext{Frame: frame, Depth: 0, Placeholder: &framePlaceholderScope{frame: frame}}
	return ev.rollTemplateByID(templateID, ctx)
}

func (ev *Evaluator) evalInstance(n *InstanceNode, ctx *EvalContext) (string, *CaptureItem, error) {
	key := n.TableID + "#" + n.Name
	if item, ok := ctx.Frame.Instance(key); ok {
		return item.Value, item, nil
	}
	item, err := ev.rollTableByID(n.TableID, ctx)
	if err != nil {
		return "", nil, err
	}
	ctx.Frame.SetInstance(key, item)
	return item.Value, item, nil
}

// --- entry selection (C3) ----------------------------------------------------

// entryIdentity is the exclusion-set key for one entry: its declared id, or
// its positional index when no id was given (spec §4.3).
func entryIdentity(e EntryView) string {
	if e.ID != "" {
		return e.ID
	}
	return fmt.Sprintf("#%d", e.Index)
}

// selectEntry performs a weighted draw from tableID, recursing through
// collection/composite shapes until it lands on a simple-table entry.
// ok is false (with a nil error) when the reachable pool is empty after
// applying exclude — the UniquePoolExhausted recoverable case.
func (ev *Evaluator) selectEntry(tableID string, exclude map[string]bool) (EntryView, string, string, bool, error) {
	t, ok := ev.host.Table(tableID)
	if !ok {
		return EntryView{}, "", "", false, &UnknownTableError{TableID: tableID}
	}
	switch t.Kind {
	case TableComposite:
		if len(t.Sources) == 0 {
			return EntryView{}, "", "", false, nil
		}
		weights := make([]float64, len(t.Sources))
		for i, src := range t.Sources {
			w := src.Weight
			if w <= 0 {
				w = 1
			}
			weights[i] = w
		}
		idx := ev.host.Sample(weights)
		if idx < 0 || idx >= len(t.Sources) {
			idx = 0
		}
		return ev.selectEntry(t.Sources[idx].TableID, exclude)
	case TableCollection:
		var entries []EntryView
		for _, ref := range t.RefIDs {
			sub, ok := ev.host.Table(ref)
			if !ok {
				continue
			}
			entries = append(entries, sub.Entries...)
		}
		return ev.selectFromEntries(entries, tableID, exclude)
	default:
		return ev.selectFromEntries(t.Entries, tableID, exclude)
	}
}

func (ev *Evaluator) selectFromEntries(entries []EntryView, sourceTableID string, exclude map[string]bool) (EntryView, string, string, bool, error) {
	weights := make([]float64, len(entries))
	any := false
	for i, e := range entries {
		if exclude != nil && exclude[entryIdentity(e)] {
			weights[i] = 0
			continue
		}
		w := entryWeight(e.Weight)
		if w <= 0 {
			weights[i] = 0
			continue
		}
		weights[i] = w
		any = true
	}
	if !any {
		return EntryView{}, sourceTableID, "", false, nil
	}
	idx := ev.host.Sample(weights)
	if idx < 0 || idx >= len(entries) {
		idx = 0
	}
	e := entries[idx]
	return e, sourceTableID, entryIdentity(e), true, nil
}

// --- sets materialization (C4) -----------------------------------------------

func mergeSetKeys(defaultOrder, entryOrder []string) []string {
	seen := make(map[string]bool, len(defaultOrder)+len(entryOrder))
	out := make([]string, 0, len(defaultOrder)+len(entryOrder))
	for _, k := range defaultOrder {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range entryOrder {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// materializeAndEvalEntry merges table.DefaultSets with entry.Sets (entry
// wins), evaluates each as a mini-template exposing the growing partial
// map as "@<tableId>.<key>", then evaluates the entry's own value and
// description, producing a fully-formed CaptureItem (spec §4.4, §4.5).
func (ev *Evaluator) materializeAndEvalEntry(sourceTableID string, entry EntryView, ctx *EvalContext) (*CaptureItem, error) {
	table, _ := ev.host.Table(sourceTableID)

	descScope := &materializationScope{rawValue: entry.Value, tableID: sourceTableID, partial: map[string]CapturedField{}, parent: ctx.Placeholder}
	descCtx := ctx.child(ctx.Depth + 1)
	descCtx.Placeholder = descScope
	descCtx.Again = nil
	descText, _, err := ev.Evaluate(entry.Description, descCtx)
	if err != nil {
		return nil, err
	}

	partial := map[string]CapturedField{}
	var order []string
	matScope := &materializationScope{rawValue: entry.Value, description: descText, tableID: sourceTableID, partial: partial, parent: ctx.Placeholder}

	keys := mergeSetKeys(table.DefaultSetOrder, entry.SetOrder)
	for _, k := range keys {
		stackKey := sourceTableID + "\x00" + k
		if ev.cycleStack[stackKey] {
			partial[k] = CapturedField{Str: ""}
			order = append(order, k)
			continue
		}

		tmpl, fromEntry := entry.Sets[k]
		if !fromEntry {
			tmpl = table.DefaultSets[k]
		}

		ev.cycleStack[stackKey] = true
		subCtx := ctx.child(ctx.Depth + 1)
		subCtx.Placeholder = matScope
		subCtx.Again = nil
		text, item, evalErr := ev.Evaluate(tmpl, subCtx)
		delete(ev.cycleStack, stackKey)
		if evalErr != nil {
			return nil, evalErr
		}
		if item != nil {
			partial[k] = CapturedField{IsItem: true, Item: item}
		} else {
			partial[k] = CapturedField{Str: text}
		}
		order = append(order, k)
	}

	valueCtx := ctx.child(ctx.Depth + 1)
	valueCtx.Placeholder = matScope
	valueCtx.Again = &AgainContext{TableID: sourceTableID, Exclude: map[string]bool{entryIdentity(entry): true}}
	valueText, _, err := ev.Evaluate(entry.Value, valueCtx)
	if err != nil {
		return nil, err
	}

	return &CaptureItem{
		Value:         valueText,
		RawValue:      entry.Value,
		Description:   descText,
		SourceTableID: sourceTableID,
		Sets:          partial,
		SetOrder:      order,
	}, nil
}

// --- multi-roll / capture-into / collect / again -----------------------------

func (ev *Evaluator) resolveCount(spec CountSpec, ctx *EvalContext) (int, error) {
	switch spec.Kind {
	case CountInt:
		return spec.Int, nil
	case CountVar:
		fv, ok := ctx.Frame.Get(spec.VarName)
		if !ok {
			return 0, nil
		}
		if spec.VarIsCount {
			if fv.Kind == FrameList {
				return fv.List.Count(), nil
			}
			return 0, nil
		}
		switch fv.Kind {
		case FrameScalar:
			n, _ := strconv.Atoi(strings.TrimSpace(fv.Scalar))
			return n, nil
		case FrameList:
			return fv.List.Count(), nil
		case FrameItem:
			n, _ := strconv.Atoi(strings.TrimSpace(fv.Item.Value))
			return n, nil
		}
		return 0, nil
	case CountDice:
		s, err := ev.host.RollDice(spec.DiceExpr)
		if err != nil {
			return 0, err
		}
		n, _ := strconv.Atoi(strings.TrimSpace(s))
		return n, nil
	}
	return 0, nil
}

// rollMany draws count entries from tableID (recursive composite/collection
// aware), honoring unique exclusion, and materializes each into an entry's
// own fresh evaluation context (each gets its own "again" seed and
// placeholder scope). Drawing stops early, without error, if the pool runs
// dry under unique mode. A template id (with no table of that id) runs the
// template count times, each run in its own fresh frame.
func (ev *Evaluator) rollMany(tableID string, count int, unique bool, ctx *EvalContext) (*CaptureList, error) {
	list := &CaptureList{}
	if _, isTable := ev.host.Table(tableID); !isTable {
		if _, isTemplate := ev.host.Template(tableID); isTemplate {
			for i := 0; i < count; i++ {
				item, _, err := ev.rollTemplateByID(tableID, ctx)
				if err != nil {
					return nil, err
				}
				list.Items = append(list.Items, item)
			}
			return list, nil
		}
	}
	exclude := map[string]bool{}
	for i := 0; i < count; i++ {
		var ex map[string]bool
		if unique {
			ex = exclude
		}
		entry, sourceTableID, identity, ok, err := ev.selectEntry(tableID, ex)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if unique {
			exclude[identity] = true
		}
		item, err := ev.materializeAndEvalEntry(sourceTableID, entry, ctx)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
	}
	return list, nil
}

func (ev *Evaluator) evalMultiRoll(n *MultiRollNode, ctx *EvalContext, presetList *CaptureList) (string, *CaptureItem, error) {
	count, err := ev.resolveCount(n.Count, ctx)
	if err != nil {
		return "", nil, err
	}
	list := presetList
	if list == nil {
		list, err = ev.rollMany(n.TableID, count, n.Unique, ctx)
		if err != nil {
			return "", nil, err
		}
	}
	if n.Sep.isSilent() {
		return "", nil, nil
	}
	sep := n.Sep.Separator(ev.host.DefaultSeparator())
	parts := make([]string, 0, len(list.Items))
	for _, it := range list.Items {
		parts = append(parts, it.Value)
	}
	return strings.Join(parts, sep), nil, nil
}

func (ev *Evaluator) evalCaptureMulti(n *CaptureMultiNode, ctx *EvalContext) (string, *CaptureItem, error) {
	count, err := ev.resolveCount(n.Roll.Count, ctx)
	if err != nil {
		return "", nil, err
	}
	list, err := ev.rollMany(n.Roll.TableID, count, n.Roll.Unique, ctx)
	if err != nil {
		return "", nil, err
	}
	ctx.Frame.SetList(n.VarName, list)
	return ev.evalMultiRoll(n.Roll, ctx, list)
}

func (ev *Evaluator) evalCollect(n *CollectNode, ctx *EvalContext) (string, *CaptureItem, error) {
	fv, ok := ctx.Frame.Get(n.VarName)
	if !ok || fv.Kind != FrameList {
		return "", nil, nil // MissingVariable: recoverable
	}
	seen := map[string]bool{}
	parts := make([]string, 0, fv.List.Count())
	for _, item := range fv.List.Items {
		var val string
		switch n.Accessor.Kind {
		case PropValue:
			val = item.Value
		case PropAt:
			f, ok := item.Sets[n.Accessor.Name]
			if !ok {
				continue
			}
			val = f.Flatten()
		default:
			val = item.Value
		}
		if val == "" {
			continue
		}
		if n.Unique {
			if seen[val] {
				continue
			}
			seen[val] = true
		}
		parts = append(parts, val)
	}
	sep := n.Sep.Separator(ev.host.DefaultSeparator())
	return strings.Join(parts, sep), nil, nil
}

func (ev *Evaluator) evalAgain(n *AgainNode, ctx *EvalContext) (string, *CaptureItem, error) {
	if ctx.Again == nil {
		return "", nil, &InvalidAgainContextError{}
	}
	count := 1
	if n.Count != nil {
		c, err := ev.resolveCount(*n.Count, ctx)
		if err != nil {
			return "", nil, err
		}
		count = c
	}

	var parts []string
	for i := 0; i < count; i++ {
		var ex map[string]bool
		if n.Unique {
			ex = ctx.Again.Exclude
		}
		entry, sourceTableID, identity, ok, err := ev.selectEntry(ctx.Again.TableID, ex)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			break
		}
		if n.Unique {
			ctx.Again.Exclude[identity] = true
		}
		item, err := ev.materializeAndEvalEntry(sourceTableID, entry, ctx)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, item.Value)
	}
	if n.Sep.isSilent() {
		return "", nil, nil
	}
	sep := n.Sep.Separator(ev.host.DefaultSeparator())
	return strings.Join(parts, sep), nil, nil
}

// --- switch / attached switch -------------------------------------------------

func (ev *Evaluator) evalSwitch(clauses []SwitchClause, elseRes *ResultExpr, ctx *EvalContext) (string, *CaptureItem, error) {
	matched, text, item, err := ev.evalSwitchMatch(clauses, elseRes, ctx, ev.condScope(ctx))
	if err != nil {
		return "", nil, err
	}
	if matched {
		return text, item, nil
	}
	return "", nil, nil
}

func (ev *Evaluator) evalSwitchMatch(clauses []SwitchClause, elseRes *ResultExpr, ctx *EvalContext, scope CondScope) (bool, string, *CaptureItem, error) {
	for _, clause := range clauses {
		if EvalCondition(clause.Cond, scope) {
			text, item, err := ev.evalResultExpr(clause.Result, ctx)
			return true, text, item, err
		}
	}
	if elseRes != nil {
		text, item, err := ev.evalResultExpr(*elseRes, ctx)
		return true, text, item, err
	}
	return false, "", nil, nil
}

func (ev *Evaluator) evalResultExpr(r ResultExpr, ctx *EvalContext) (string, *CaptureItem, error) {
	if r.Kind == ResultQuoted {
		text, _, err := ev.Evaluate(r.Quoted, ev.nextCtx(ctx))
		return text, nil, err
	}
	return ev.evalNode(r.Expr, ctx)
}
