package parse

import (
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

type typescriptParser struct{}

// NewTypeScriptParser is the optional TS/TSX parser, reusing jsWalk over
// the typescript grammar.
func NewTypeScriptParser() (Parser, error) { return typescriptParser{}, nil }

func (typescriptParser) Language() string     { return "typescript" }
func (typescriptParser) Extensions() []string { return []string{".ts", ".tsx"} }

func (typescriptParser) Parse(path string, content []byte) ([]taskmodel.ASTNode, error) {
	return jsWalk(typescript.GetLanguage(), path, content)
}
