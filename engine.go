package rtengine

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/randtable/rtengine/internal"
)

// Engine rolls tables and runs templates from one loaded Document. An
// Engine is safe for concurrent use: each roll builds its own Evaluator,
// Frame and cycle-detection state (spec §5); only the shared, read-only
// document projection and parse cache are reused across calls.
type Engine struct {
	doc   *Document
	host  *docHost
	cache *internal.ParseCache
	cfg   *engineConfig
}

// NewEngine builds an Engine over doc, applying opts over the default
// configuration (spec §4.6, §6). doc is validated before any roll can run.
func NewEngine(doc *Document, opts ...Option) (*Engine, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{
		doc:   doc,
		host:  newDocHost(doc, cfg),
		cache: internal.NewParseCache(),
		cfg:   cfg,
	}, nil
}

func (e *Engine) logger() *zap.Logger { return e.host.Logger() }

// RollTable draws one entry from tableID, materializes its sets and value,
// and returns the rendered Result (spec §6's RollTable operation). ctx is
// checked for cancellation before the roll starts; evaluation itself is
// pure CPU work and does not poll ctx mid-recursion, matching spec §5's
// single-threaded cooperative model.
func (e *Engine) RollTable(ctx context.Context, tableID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := e.host.Table(tableID); !ok {
		return nil, NewUnknownTableError(tableID)
	}
	ev := internal.NewEvaluator(e.host, e.cache)
	item, _, err := ev.RollTable(tableID)
	if err != nil {
		return nil, asEngineError(err, e.cfg.maxRecursionDepth)
	}
	return &Result{
		Text:         item.Value,
		Metadata:     ResultMetadata{SourceID: tableID, Timestamp: time.Now()},
		Placeholders: placeholdersFromItem(item),
	}, nil
}

// RollTemplate runs templateID's shared bindings then its pattern, and
// returns the rendered Result (spec §6's RollTemplate operation).
func (e *Engine) RollTemplate(ctx context.Context, templateID string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := e.host.Template(templateID); !ok {
		return nil, NewUnknownTemplateError(templateID)
	}
	ev := internal.NewEvaluator(e.host, e.cache)
	item, _, err := ev.RollTemplate(templateID)
	if err != nil {
		return nil, asEngineError(err, e.cfg.maxRecursionDepth)
	}
	return &Result{
		Text:         item.Value,
		Metadata:     ResultMetadata{SourceID: templateID, IsTemplate: true, Timestamp: time.Now()},
		Placeholders: placeholdersFromItem(item),
	}, nil
}

// ListTables returns every table id defined in the loaded document, sorted.
func (e *Engine) ListTables() []string {
	ids := make([]string, 0, len(e.doc.Tables))
	for id := range e.doc.Tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListTemplates returns every template id defined in the loaded document,
// sorted.
func (e *Engine) ListTemplates() []string {
	ids := make([]string, 0, len(e.doc.Templates))
	for id := range e.doc.Templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
