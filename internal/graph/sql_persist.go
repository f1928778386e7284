package graph

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/swarmkernel/orchestrator/internal/taskmodel"
)

// SQLStore is an optional parallel SQL persistence path for the knowledge
// graph alongside the primary gob cache. It mirrors a `knowledge_graph` table
// (entity_a, relation, entity_b, weight) and its StoreLink/QueryLinks
// shape, generalized from arbitrary weighted entity links to this
// package's typed ASTNode/Edge pair.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens (creating if absent) a knowledge_graph table at path.
func OpenSQLStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS knowledge_graph (
		entity_a TEXT NOT NULL,
		relation TEXT NOT NULL,
		entity_b TEXT NOT NULL,
		weight REAL NOT NULL DEFAULT 1.0,
		PRIMARY KEY (entity_a, relation, entity_b)
	)`)
	if err != nil {
		return fmt.Errorf("graph: sql migrate: %w", err)
	}
	return nil
}

// Persist mirrors g's edges into the knowledge_graph table.
func (s *SQLStore) Persist(g *Graph) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, e := range g.Edges {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO knowledge_graph (entity_a, relation, entity_b, weight) VALUES (?, ?, ?, ?)`,
			e.From, string(e.Type), e.To, 1.0,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryLinks returns every stored edge touching entity, mirroring
// local_graph.go's direction-scoped QueryLinks.
func (s *SQLStore) QueryLinks(entity, direction string) ([]taskmodel.Edge, error) {
	var query string
	var args []any
	switch direction {
	case "outgoing":
		query, args = `SELECT entity_a, relation, entity_b FROM knowledge_graph WHERE entity_a = ?`, []any{entity}
	case "incoming":
		query, args = `SELECT entity_a, relation, entity_b FROM knowledge_graph WHERE entity_b = ?`, []any{entity}
	default:
		query, args = `SELECT entity_a, relation, entity_b FROM knowledge_graph WHERE entity_a = ? OR entity_b = ?`, []any{entity, entity}
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []taskmodel.Edge
	for rows.Next() {
		var e taskmodel.Edge
		var relation string
		if err := rows.Scan(&e.From, &relation, &e.To); err != nil {
			return nil, err
		}
		e.Type = taskmodel.EdgeType(relation)
		edges = append(edges, e)
	}
	return edges, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error { return s.db.Close() }
