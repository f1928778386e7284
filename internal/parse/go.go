package parse

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// goParser is the always-registered native parser.
// Grounded on ast_treesitter.go's extractGoSymbols walk.
type goParser struct{}

// NewGoParser constructs the native Go parser. It never fails, since the
// golang grammar is statically linked.
func NewGoParser() (Parser, error) { return goParser{}, nil }

func (goParser) Language() string     { return "go" }
func (goParser) Extensions() []string { return []string{".go"} }

func (goParser) Parse(path string, content []byte) ([]taskmodel.ASTNode, error) {
	root, getText, closeFn, err := tsParse(golang.GetLanguage(), content)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var nodes []taskmodel.ASTNode
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeFunction, path, n, getText)
				node.Calls = collectCalls(n, "call_expression", getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "method_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				node := newNode(getText(name), taskmodel.NodeMethod, path, n, getText)
				node.Calls = collectCalls(n, "call_expression", getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		case "type_spec":
			if name := n.ChildByFieldName("name"); name != nil {
				typeNode := n.ChildByFieldName("type")
				nt := taskmodel.NodeTypeAlias
				if typeNode != nil {
					switch typeNode.Type() {
					case "struct_type":
						nt = taskmodel.NodeStruct
					case "interface_type":
						nt = taskmodel.NodeInterface
					}
				}
				node := newNode(getText(name), nt, path, n, getText)
				finishNode(&node)
				nodes = append(nodes, node)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return nodes, nil
}
