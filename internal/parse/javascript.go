package parse

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

type javascriptParser struct{ lang *sitter.Language }

// NewJavaScriptParser is the optional JS/JSX parser. Grounded on
// internal/world/typescript_parser.go's walkNode (class_declaration,
// method_definition, function_declaration, lexical_declaration-as-arrow-
// function/component).
func NewJavaScriptParser() (Parser, error) { return javascriptParser{lang: javascript.GetLanguage()}, nil }

func (javascriptParser) Language() string     { return "javascript" }
func (javascriptParser) Extensions() []string { return []string{".js", ".jsx", ".mjs"} }

func (p javascriptParser) Parse(path string, content []byte) ([]taskmodel.ASTNode, error) {
	return jsWalk(p.lang, path, content)
}

// jsWalk is shared by the JavaScript and TypeScript parsers, since both
// grammars expose the same core node shapes for functions/classes/JSX.
func jsWalk(lang *sitter.Language, path string, content []byte) ([]taskmodel.ASTNode, error) {
	root, getText, closeFn, err := tsParse(lang, content)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var nodes []taskmodel.ASTNode
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "class_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeClass, path, n, getText)
				if heritage := n.ChildByFieldName("heritage"); heritage != nil {
					node.Inherits = append(node.Inherits, jsExtendsNames(heritage, getText)...)
				} else {
					for i := 0; i < int(n.NamedChildCount()); i++ {
						if c := n.NamedChild(i); c.Type() == "class_heritage" {
							node.Inherits = append(node.Inherits, jsExtendsNames(c, getText)...)
						}
					}
				}
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "interface_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeInterface, path, n, getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "function_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				node := jsFunctionNode(getText(name), n, n, path, getText)
				nodes = append(nodes, node)
			}
		case "method_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeMethod, path, n, getText)
				node.Calls = collectCalls(n, "call_expression", getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "lexical_declaration", "variable_declaration":
			nodes = append(nodes, jsVarDeclNodes(n, path, getText)...)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return nodes, nil
}

func jsExtendsNames(heritage *sitter.Node, getText func(*sitter.Node) string) []string {
	var out []string
	for i := 0; i < int(heritage.NamedChildCount()); i++ {
		out = append(out, getText(heritage.NamedChild(i)))
	}
	return out
}

func jsFunctionNode(name string, spanNode, callNode *sitter.Node, path string, getText func(*sitter.Node) string) taskmodel.ASTNode {
	node := newNode(name, taskmodel.NodeFunction, path, spanNode, getText)
	node.Calls = collectCalls(callNode, "call_expression", getText)
	node.Hooks = hooks(node.Content)
	finishNode(&node)
	return node
}

// jsVarDeclNodes handles `const X = (...) => {...}` — the React/Next
// function-component idiom.
func jsVarDeclNodes(decl *sitter.Node, path string, getText func(*sitter.Node) string) []taskmodel.ASTNode {
	var nodes []taskmodel.ASTNode
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		declarator := decl.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		valueNode := declarator.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		switch valueNode.Type() {
		case "arrow_function", "function", "function_expression":
			nodes = append(nodes, jsFunctionNode(getText(nameNode), decl, valueNode, path, getText))
		}
	}
	return nodes
}
