package parse

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// tsParse runs a tree-sitter grammar over content and returns the root
// node plus a getText closure, mirroring ast_treesitter.go's ParseGo shape.
func tsParse(lang *sitter.Language, content []byte) (*sitter.Node, func(*sitter.Node) string, func(), error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)
	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		p.Close()
		return nil, nil, nil, fmt.Errorf("parse: tree-sitter: %w", err)
	}
	getText := func(n *sitter.Node) string { return n.Content(content) }
	closeFn := func() { tree.Close(); p.Close() }
	return tree.RootNode(), getText, closeFn, nil
}

// span builds an ASTNode's location/content fields from a tree-sitter node.
func span(n *sitter.Node, getText func(*sitter.Node) string, file string) (startLine, endLine int, content string) {
	return int(n.StartPoint().Row) + 1, int(n.EndPoint().Row) + 1, getText(n)
}

// collectCalls walks the subtree under n looking for call-expression-shaped
// nodes (callExprType) and returns the unqualified callee identifier for
// each, e.g. `pkg.Foo()` / `obj.method()` -> "Foo" / "method".
func collectCalls(n *sitter.Node, callExprType string, getText func(*sitter.Node) string) []string {
	var calls []string
	var walk func(*sitter.Node)
	walk = func(cur *sitter.Node) {
		if cur.Type() == callExprType {
			fn := cur.ChildByFieldName("function")
			if fn == nil && cur.NamedChildCount() > 0 {
				fn = cur.NamedChild(0)
			}
			if fn != nil {
				name := getText(fn)
				if idx := lastSep(name); idx >= 0 {
					name = name[idx+1:]
				}
				calls = append(calls, name)
			}
		}
		for i := 0; i < int(cur.NamedChildCount()); i++ {
			walk(cur.NamedChild(i))
		}
	}
	walk(n)
	return calls
}

func lastSep(s string) int {
	idx := -1
	for i, r := range s {
		if r == '.' {
			idx = i
		}
	}
	return idx
}

func newNode(name string, nt taskmodel.NodeType, file string, n *sitter.Node, getText func(*sitter.Node) string) taskmodel.ASTNode {
	start, end, content := span(n, getText, file)
	node := taskmodel.ASTNode{
		Name:      name,
		NodeType:  nt,
		File:      file,
		StartLine: start,
		EndLine:   end,
		Content:   content,
	}
	return node
}
