package rules

import "github.com/solatis/antiseptic/internal/types"

// Engine cleans names with a loaded Store. It is the regex implementation of
// the rename workflow's Cleaner.
type Engine struct {
	store *Store
	sink  Sink
}

// NewEngine creates an engine over store, reporting applied rules to sink.
func NewEngine(store *Store, sink Sink) *Engine {
	return &Engine{store: store, sink: sinkOrDiscard(sink)}
}

// Name identifies the strategy in logs and configuration.
func (e *Engine) Name() string {
	return "regex"
}

// Clean applies every active rule once. Never fails.
func (e *Engine) Clean(name string) (types.CleanResult, error) {
	return Apply(e.store, name, e.sink), nil
}

// Store returns the engine's rule store.
func (e *Engine) Store() *Store {
	return e.store
}
