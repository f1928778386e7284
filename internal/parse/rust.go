package parse

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

type rustParser struct{}

// NewRustParser is the optional Rust parser. Grounded on
// internal/world/rust_parser.go (struct_item/trait_item/impl_item/
// function_item walk, impl-block methods handled as children of impl_item).
func NewRustParser() (Parser, error) { return rustParser{}, nil }

func (rustParser) Language() string     { return "rust" }
func (rustParser) Extensions() []string { return []string{".rs"} }

func (rustParser) Parse(path string, content []byte) ([]taskmodel.ASTNode, error) {
	root, getText, closeFn, err := tsParse(rust.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var nodes []taskmodel.ASTNode
	var walk func(n *sitter.Node, inImpl bool)
	walk = func(n *sitter.Node, inImpl bool) {
		switch n.Type() {
		case "struct_item":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeStruct, path, n, getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "trait_item":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeTrait, path, n, getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "impl_item":
			if trait := n.ChildByFieldName("trait"); trait != nil {
				if typeNode := n.ChildByFieldName("type"); typeNode != nil {
					nodes = append(nodes, rustImplEdge(typeNode, trait, path, n, getText))
				}
			}
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.NamedChildCount()); i++ {
					walk(body.NamedChild(i), true)
				}
			}
			return
		case "function_item":
			nt := taskmodel.NodeFunction
			if inImpl {
				nt = taskmodel.NodeMethod
			}
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), nt, path, n, getText)
				node.Calls = collectCalls(n, "call_expression", getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i), inImpl)
		}
	}
	walk(root, false)
	return nodes, nil
}

// rustImplEdge records `impl Trait for Type` as a class-shaped node whose
// Inherits names the trait, so the knowledge graph can draw an inherits
// edge from Type to Trait without a separate edge kind.
func rustImplEdge(typeNode, traitNode *sitter.Node, path string, spanNode *sitter.Node, getText func(*sitter.Node) string) taskmodel.ASTNode {
	node := newNode(getText(typeNode), taskmodel.NodeStruct, path, spanNode, getText)
	node.Inherits = []string{getText(traitNode)}
	finishNode(&node)
	return node
}
