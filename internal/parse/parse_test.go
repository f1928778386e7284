package parse

import (
	"testing"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

func findNode(nodes []taskmodel.ASTNode, name string) (taskmodel.ASTNode, bool) {
	for _, n := range nodes {
		if n.Name == name {
			return n, true
		}
	}
	return taskmodel.ASTNode{}, false
}

func TestGoParserExtractsFunctionsAndCalls(t *testing.T) {
	src := []byte(`package sample

func helper() int { return 1 }

func DoWork() int {
	return helper()
}
`)
	p, err := NewGoParser()
	if err != nil {
		t.Fatalf("NewGoParser: %v", err)
	}
	nodes, err := p.Parse("sample.go", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	work, ok := findNode(nodes, "DoWork")
	if !ok {
		t.Fatalf("expected DoWork node, got %+v", nodes)
	}
	if work.NodeType != taskmodel.NodeFunction {
		t.Fatalf("expected function node type, got %v", work.NodeType)
	}
	found := false
	for _, c := range work.Calls {
		if c == "helper" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected DoWork to call helper, got %v", work.Calls)
	}
}

func TestGoParserClassifiesStructAndInterface(t *testing.T) {
	src := []byte(`package sample

type Widget struct {
	Name string
}

type Renderer interface {
	Render() string
}
`)
	p, _ := NewGoParser()
	nodes, err := p.Parse("sample.go", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	widget, ok := findNode(nodes, "Widget")
	if !ok || widget.NodeType != taskmodel.NodeStruct {
		t.Fatalf("expected Widget struct node, got %+v", nodes)
	}
	renderer, ok := findNode(nodes, "Renderer")
	if !ok || renderer.NodeType != taskmodel.NodeInterface {
		t.Fatalf("expected Renderer interface node, got %+v", nodes)
	}
}

func TestJavaScriptParserClassifiesReactComponent(t *testing.T) {
	src := []byte(`
function Greeting(props) {
  const data = useFetchData();
  return <div><Header title={props.title} /></div>;
}
`)
	p, err := NewJavaScriptParser()
	if err != nil {
		t.Fatalf("NewJavaScriptParser: %v", err)
	}
	nodes, err := p.Parse("Greeting.jsx", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	greeting, ok := findNode(nodes, "Greeting")
	if !ok {
		t.Fatalf("expected Greeting node, got %+v", nodes)
	}
	if greeting.NodeType != taskmodel.NodeComponent {
		t.Fatalf("expected component node type, got %v", greeting.NodeType)
	}
	if len(greeting.Renders) == 0 {
		t.Fatalf("expected renders to include Header, got %v", greeting.Renders)
	}
	if len(greeting.Hooks) == 0 {
		t.Fatalf("expected hooks to include useFetchData, got %v", greeting.Hooks)
	}
}

func TestPythonParserExtractsAPIRoute(t *testing.T) {
	src := []byte(`
@app.get("/api/users/{id}")
def get_user(id):
    return lookup(id)
`)
	p, err := NewPythonParser()
	if err != nil {
		t.Fatalf("NewPythonParser: %v", err)
	}
	nodes, err := p.Parse("routes.py", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn, ok := findNode(nodes, "get_user")
	if !ok {
		t.Fatalf("expected get_user node, got %+v", nodes)
	}
	if fn.APIRoute != "/api/users/{id}" {
		t.Fatalf("expected api route to be captured, got %q", fn.APIRoute)
	}
}

func TestRegistryDegradesWithoutCrashingInLiteMode(t *testing.T) {
	r := NewRegistry(true, nil)
	if _, ok := r.For(".py"); ok {
		t.Fatalf("expected no python parser registered in lite mode")
	}
	if _, ok := r.For(".go"); !ok {
		t.Fatalf("expected native go parser to remain registered in lite mode")
	}
}

func TestParseFileSkipsUnknownExtension(t *testing.T) {
	r := NewRegistry(false, nil)
	nodes, err := r.ParseFile("x.unknown", ".unknown", []byte("irrelevant"))
	if err == nil {
		t.Fatalf("expected error for unregistered extension")
	}
	if nodes != nil {
		t.Fatalf("expected nil nodes, got %v", nodes)
	}
}
