package rtengine

import (
	"go.uber.org/zap"

	"github.com/randtable/rtengine/internal"
)

// docHost implements internal.Host by projecting a *Document plus the
// engine's pluggable collaborators (spec §1's "external collaborators":
// document data, sampler, dice/math resolvers).
type docHost struct {
	tables    map[string]internal.TableView
	templates map[string]internal.TemplateView
	variables map[string]string

	sampler      Sampler
	diceResolver DiceResolver
	mathResolver MathResolver
	separator    string
	maxDepth     int
	logger       *zap.Logger
}

func newDocHost(doc *Document, cfg *engineConfig) *docHost {
	h := &docHost{
		tables:       make(map[string]internal.TableView, len(doc.Tables)),
		templates:    make(map[string]internal.TemplateView, len(doc.Templates)),
		variables:    doc.Variables,
		sampler:      cfg.sampler,
		diceResolver: cfg.diceResolver,
		mathResolver: cfg.mathResolver,
		separator:    cfg.defaultSeparator,
		maxDepth:     cfg.maxRecursionDepth,
		logger:       cfg.logger,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	for id, t := range doc.Tables {
		h.tables[id] = convertTable(id, t)
	}
	for id, tmpl := range doc.Templates {
		shared := make([]internal.SharedBindingView, 0, len(tmpl.Shared))
		for _, sb := range tmpl.Shared {
			shared = append(shared, internal.SharedBindingView{Name: sb.Name, Template: sb.Template})
		}
		h.templates[id] = internal.TemplateView{ID: id, Shared: shared, Pattern: tmpl.Pattern}
	}
	return h
}

func convertTable(id string, t Table) internal.TableView {
	tv := internal.TableView{
		ID:              id,
		Kind:            internal.TableKind(t.Kind),
		DefaultSets:     pairsToMap(t.DefaultSets),
		DefaultSetOrder: pairsToOrder(t.DefaultSets),
		RefIDs:          t.Refs,
	}
	for i, e := range t.Entries {
		tv.Entries = append(tv.Entries, internal.EntryView{
			ID:          e.ID,
			Index:       i,
			Value:       e.Value,
			Weight:      e.Weight,
			Description: e.Description,
			Sets:        pairsToMap(e.Sets),
			SetOrder:    pairsToOrder(e.Sets),
		})
	}
	for _, s := range t.Sources {
		tv.Sources = append(tv.Sources, internal.WeightedSourceView{TableID: s.Table, Weight: s.Weight})
	}
	return tv
}

func pairsToMap(pairs []SetPair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

func pairsToOrder(pairs []SetPair) []string {
	if len(pairs) == 0 {
		return nil
	}
	order := make([]string, len(pairs))
	for i, p := range pairs {
		order[i] = p.Key
	}
	return order
}

func (h *docHost) Table(id string) (internal.TableView, bool) {
	t, ok := h.tables[id]
	return t, ok
}

func (h *docHost) Template(id string) (internal.TemplateView, bool) {
	t, ok := h.templates[id]
	return t, ok
}

func (h *docHost) Variables() map[string]string { return h.variables }

func (h *docHost) Sample(weights []float64) int { return h.sampler.Sample(weights) }

func (h *docHost) RollDice(expr string) (string, error) { return h.diceResolver.RollDice(expr) }

func (h *docHost) EvalMath(expr string, scope internal.CondScope) (string, error) {
	return h.mathResolver.EvalMath(expr, scope)
}

func (h *docHost) DefaultSeparator() string { return h.separator }

func (h *docHost) MaxRecursionDepth() int { return h.maxDepth }

func (h *docHost) Logger() *zap.Logger { return h.logger }
