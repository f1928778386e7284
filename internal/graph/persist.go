package graph

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// CacheSchemaVersion is bumped whenever Graph's cached shape changes
// incompatibly. Load rejects a cache tagged with a different version and
// forces a rebuild.
const CacheSchemaVersion = 1

type cacheFile struct {
	SchemaVersion int
	Nodes         map[string]cacheNode
	Edges         []cacheEdge
}

// cacheNode/cacheEdge mirror taskmodel.ASTNode/Edge as plain structs so
// gob doesn't need to know about the taskmodel package's exported method
// set — only its data shape.
type cacheNode struct {
	Name, NodeType, File              string
	StartLine, EndLine                int
	Content, FrameworkRole, APIRoute  string
	Calls, Inherits, Renders, APICalls, Hooks []string
}

type cacheEdge struct {
	From, To, Type string
}

// Save serializes g to path as a single gob-encoded, schema-tagged cache
// file. encoding/gob is the standard-library choice here: it is the
// idiomatic stdlib answer for "serialize one process's own Go structs to
// disk, read back by the same process," with no external schema to keep
// in sync.
func Save(g *Graph, path string) error {
	cf := cacheFile{SchemaVersion: CacheSchemaVersion}
	cf.Nodes = make(map[string]cacheNode, len(g.Nodes))
	for id, n := range g.Nodes {
		cf.Nodes[id] = cacheNode{
			Name: n.Name, NodeType: string(n.NodeType), File: n.File,
			StartLine: n.StartLine, EndLine: n.EndLine, Content: n.Content,
			FrameworkRole: n.FrameworkRole, APIRoute: n.APIRoute,
			Calls: n.Calls, Inherits: n.Inherits, Renders: n.Renders,
			APICalls: n.APICalls, Hooks: n.Hooks,
		}
	}
	for _, e := range g.Edges {
		cf.Edges = append(cf.Edges, cacheEdge{From: e.From, To: e.To, Type: string(e.Type)})
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cf); err != nil {
		return fmt.Errorf("graph: encode cache: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads a cache file written by Save. A schema-version mismatch (or
// any decode error) returns ErrCacheStale, signaling the caller to rebuild
// rather than silently serve a mismatched graph.
var ErrCacheStale = fmt.Errorf("graph: cache missing or schema mismatch")

func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrCacheStale
	}
	var cf cacheFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cf); err != nil {
		return nil, ErrCacheStale
	}
	if cf.SchemaVersion != CacheSchemaVersion {
		return nil, ErrCacheStale
	}

	g := newGraph()
	for id, n := range cf.Nodes {
		g.Nodes[id] = nodeFromCache(n)
		if g.Nodes[id].APIRoute != "" {
			g.routeIndex[NormalizeRoute(g.Nodes[id].APIRoute)] = id
		}
	}
	for _, e := range cf.Edges {
		g.Edges = append(g.Edges, edgeFromCache(e))
	}
	return g, nil
}

func nodeFromCache(n cacheNode) taskmodel.ASTNode {
	return taskmodel.ASTNode{
		Name: n.Name, NodeType: taskmodel.NodeType(n.NodeType), File: n.File,
		StartLine: n.StartLine, EndLine: n.EndLine, Content: n.Content,
		FrameworkRole: n.FrameworkRole, APIRoute: n.APIRoute,
		Calls: n.Calls, Inherits: n.Inherits, Renders: n.Renders,
		APICalls: n.APICalls, Hooks: n.Hooks,
	}
}

func edgeFromCache(e cacheEdge) taskmodel.Edge {
	return taskmodel.Edge{From: e.From, To: e.To, Type: taskmodel.EdgeType(e.Type)}
}
