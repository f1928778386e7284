package parse

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

type pythonParser struct{}

// NewPythonParser is the optional Python parser, lazily registered unless
// SWARM_LITE_MODE is set. Grounded on internal/world/python_parser.go's
// class_definition/function_definition/decorated_definition handling.
func NewPythonParser() (Parser, error) { return pythonParser{}, nil }

func (pythonParser) Language() string     { return "python" }
func (pythonParser) Extensions() []string { return []string{".py", ".pyw"} }

func (pythonParser) Parse(path string, content []byte) ([]taskmodel.ASTNode, error) {
	root, getText, closeFn, err := tsParse(python.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var nodes []taskmodel.ASTNode
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "class_definition":
			nodes = append(nodes, pythonClassNode(n, path, getText))
		case "function_definition":
			nodes = append(nodes, pythonFuncNode(n, n, path, getText))
		case "decorated_definition":
			inner := n.NamedChild(int(n.NamedChildCount()) - 1)
			if inner != nil {
				switch inner.Type() {
				case "function_definition":
					nodes = append(nodes, pythonFuncNode(n, inner, path, getText))
				case "class_definition":
					node := pythonClassNode(inner, path, getText)
					node.StartLine = int(n.StartPoint().Row) + 1
					node.Content = getText(n)
					finishNode(&node)
					nodes = append(nodes, node)
				}
				// The wrapped definition was emitted above with the
				// decorator span; walk only its children so it is not
				// emitted a second time without the decorator.
				for i := 0; i < int(inner.NamedChildCount()); i++ {
					walk(inner.NamedChild(i))
				}
				return
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return nodes, nil
}

func pythonClassNode(n *sitter.Node, path string, getText func(*sitter.Node) string) taskmodel.ASTNode {
	nameNode := n.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = getText(nameNode)
	}
	node := newNode(name, taskmodel.NodeClass, path, n, getText)
	if super := n.ChildByFieldName("superclasses"); super != nil {
		for i := 0; i < int(super.NamedChildCount()); i++ {
			node.Inherits = append(node.Inherits, getText(super.NamedChild(i)))
		}
	}
	finishNode(&node)
	return node
}

// pythonFuncNode builds the node for a function_definition, but uses spanNode
// (the decorated_definition wrapper, when present) for the start line and
// content so decorator text is available for the API-route heuristic.
func pythonFuncNode(spanNode, fnNode *sitter.Node, path string, getText func(*sitter.Node) string) taskmodel.ASTNode {
	nameNode := fnNode.ChildByFieldName("name")
	name := ""
	if nameNode != nil {
		name = getText(nameNode)
	}
	node := newNode(name, taskmodel.NodeFunction, path, fnNode, getText)
	node.StartLine = int(spanNode.StartPoint().Row) + 1
	node.Content = getText(spanNode)
	node.Calls = collectCalls(fnNode, "call", getText)
	finishNode(&node)
	return node
}
