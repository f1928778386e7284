// Package parse implements C3: converting source text into the uniform
// ASTNode shape consumed by the knowledge graph, via a
// ParserRegistry mapping file extensions to language parsers.
// Grounded on internal/world/ast_treesitter.go's TreeSitterParser and the
// per-language CodeParser shape in internal/world/python_parser.go /
// rust_parser.go / typescript_parser.go, generalized into a single
// Parser interface and a registry that degrades to "no parser" rather
// than crashing when an optional grammar is unavailable.
package parse

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// Parser converts one file's source text into ASTNodes.
type Parser interface {
	Language() string
	Extensions() []string
	Parse(path string, content []byte) ([]taskmodel.ASTNode, error)
}

// ParserRegistry maps file extensions to parsers. One
// parser (the native Go parser) is always registered; others register
// lazily on first query via a factory and may fail with a
// missing-dependency error, which degrades to "no parser" rather than a
// crash. SWARM_LITE_MODE disables optional parsers entirely.
type ParserRegistry struct {
	mu        sync.Mutex
	parsers   map[string]Parser           // extension -> resolved parser
	factories map[string]func() (Parser, error)
	liteMode  bool
	log       *zap.Logger
}

// NewRegistry constructs a registry with the native Go parser always
// registered, and factories for the optional languages registered lazily.
func NewRegistry(liteMode bool, log *zap.Logger) *ParserRegistry {
	if log == nil {
		log = logging.NewNop()
	}
	r := &ParserRegistry{
		parsers:   make(map[string]Parser),
		factories: make(map[string]func() (Parser, error)),
		liteMode:  liteMode,
		log:       logging.For(log, logging.CategoryParse),
	}
	r.registerAlways(NewGoParser())
	if !liteMode {
		r.registerFactory([]string{".py", ".pyw"}, func() (Parser, error) { return NewPythonParser() })
		r.registerFactory([]string{".js", ".jsx", ".mjs"}, func() (Parser, error) { return NewJavaScriptParser() })
		r.registerFactory([]string{".ts", ".tsx"}, func() (Parser, error) { return NewTypeScriptParser() })
		r.registerFactory([]string{".rs"}, func() (Parser, error) { return NewRustParser() })
	}
	return r
}

func (r *ParserRegistry) registerAlways(p Parser) {
	for _, ext := range p.Extensions() {
		r.parsers[ext] = p
	}
}

func (r *ParserRegistry) registerFactory(exts []string, factory func() (Parser, error)) {
	for _, ext := range exts {
		r.factories[ext] = factory
	}
}

// For returns the parser for a file extension (e.g. ".py"), resolving a
// lazy factory on first use. Returns (nil, false) if no parser is
// available — the caller (internal/graph) must skip the file, not crash.
func (r *ParserRegistry) For(ext string) (Parser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.parsers[ext]; ok {
		return p, true
	}
	factory, ok := r.factories[ext]
	if !ok {
		return nil, false
	}
	p, err := factory()
	if err != nil {
		r.log.Warn("parser unavailable, degrading to no parser", zap.String("ext", ext), zap.Error(err))
		delete(r.factories, ext)
		return nil, false
	}
	r.parsers[ext] = p
	return p, true
}

// ParseFile resolves a parser by the file's extension and parses it. A
// parser that errors on a single file is logged at debug level and the
// file is skipped — the caller continues the build.
func (r *ParserRegistry) ParseFile(path, ext string, content []byte) ([]taskmodel.ASTNode, error) {
	p, ok := r.For(ext)
	if !ok {
		return nil, fmt.Errorf("parse: no parser registered for extension %q", ext)
	}
	nodes, err := p.Parse(path, content)
	if err != nil {
		r.log.Debug("parser error, skipping file", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	return nodes, nil
}
