// Package graph implements C4: the HippoRAG-style code knowledge graph —
// construction from ASTNodes, route-normalized API edges, a versioned
// binary cache, an optional parallel SQL persistence path, and
// Personalized PageRank retrieval.
package graph

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/swarmkernel/orchestrator/internal/logging"
	"github.com/swarmkernel/orchestrator/internal/parse"
	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// DefaultParallelism bounds concurrent file parsing during Build
const DefaultParallelism = 4

// Graph is the in-memory knowledge graph: nodes keyed by `<file>::<name>`,
// directed edges, and a normalized-route -> handler-node index built once
// per Build.
type Graph struct {
	SchemaVersion int
	Nodes         map[string]taskmodel.ASTNode
	Edges         []taskmodel.Edge
	routeIndex    map[string]string // normalized route -> handler node id
}

func newGraph() *Graph {
	return &Graph{
		SchemaVersion: CacheSchemaVersion,
		Nodes:         make(map[string]taskmodel.ASTNode),
		routeIndex:    make(map[string]string),
	}
}

// Build walks every file under root, parses it via registry, and
// constructs nodes and calls/inherits/renders edges. API edges are added
// in a second pass once every handler's route is known.
func Build(ctx context.Context, root string, registry *parse.ParserRegistry, parallelism int, log *zap.Logger) (*Graph, error) {
	if log == nil {
		log = logging.NewNop()
	}
	log = logging.For(log, logging.CategoryGraph)
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g := newGraph()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for _, path := range files {
		path := path
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			ext := strings.ToLower(filepath.Ext(path))
			content, err := os.ReadFile(path)
			if err != nil {
				log.Debug("graph: read failed, skipping", zap.String("path", path), zap.Error(err))
				return nil
			}
			nodes, err := registry.ParseFile(path, ext, content)
			if err != nil {
				log.Debug("graph: no parser for file, skipping", zap.String("path", path))
				return nil
			}
			mu.Lock()
			addNodes(g, nodes)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	addAPIEdges(g)
	return g, nil
}

// addNodes registers nodes and their calls/inherits/renders edges. Calls
// and renders targets are resolved lazily by symbol name, since the
// callee/base/component node may not exist yet or may live in another file.
func addNodes(g *Graph, nodes []taskmodel.ASTNode) {
	for _, n := range nodes {
		g.Nodes[n.ID()] = n
		for _, callee := range n.Calls {
			g.Edges = append(g.Edges, taskmodel.Edge{From: n.ID(), To: callee, Type: taskmodel.EdgeCalls})
		}
		for _, base := range n.Inherits {
			g.Edges = append(g.Edges, taskmodel.Edge{From: n.ID(), To: base, Type: taskmodel.EdgeInherits})
		}
		for _, jsx := range n.Renders {
			g.Edges = append(g.Edges, taskmodel.Edge{From: n.ID(), To: jsx, Type: taskmodel.EdgeRenders})
		}
		if n.APIRoute != "" {
			g.routeIndex[NormalizeRoute(n.APIRoute)] = n.ID()
		}
	}
}

// addAPIEdges draws (caller) --calls_api--> (handler) once every node's
// api_route has been indexed.
func addAPIEdges(g *Graph) {
	for _, n := range g.Nodes {
		for _, call := range n.APICalls {
			if handler, ok := g.routeIndex[NormalizeRoute(call)]; ok {
				g.Edges = append(g.Edges, taskmodel.Edge{From: n.ID(), To: handler, Type: taskmodel.EdgeCallsAPI})
			}
		}
	}
}

// AddRelated adds `related_to` edges from a caller-supplied symbol ->
// related-symbols mapping.
func (g *Graph) AddRelated(related map[string][]string) {
	for from, tos := range related {
		for _, to := range tos {
			g.Edges = append(g.Edges, taskmodel.Edge{From: from, To: to, Type: taskmodel.EdgeRelated})
		}
	}
}

// outgoing builds an adjacency list keyed by node id for PageRank, mapping
// edges that target a bare symbol name (calls/inherits/renders) onto every
// node whose ID ends in `::<symbol>`.
func (g *Graph) outgoing() map[string][]string {
	bySymbol := make(map[string][]string)
	for id, n := range g.Nodes {
		bySymbol[n.Name] = append(bySymbol[n.Name], id)
	}
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			continue
		}
		if _, ok := g.Nodes[e.To]; ok {
			adj[e.From] = append(adj[e.From], e.To)
			continue
		}
		for _, target := range bySymbol[e.To] {
			adj[e.From] = append(adj[e.From], target)
		}
	}
	return adj
}
