package graph

import (
	"database/sql"
	"fmt"
	"time"
)

// Node is a stored graph node, as read back from the sink.
type Node struct {
	ID         int64
	Label      string
	RefKey     string
	RefValue   string
	Properties map[string]any
}

// UpsertProject records the project row with its root path and index time.
func (s *SQLiteSink) UpsertProject(rootPath string) error {
	_, err := s.db.Exec(`
		INSERT INTO projects (name, indexed_at, root_path) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET indexed_at=excluded.indexed_at, root_path=excluded.root_path`,
		s.project, time.Now().UTC().Format(time.RFC3339), rootPath)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// FileHashes returns the stored content hash per relative path.
func (s *SQLiteSink) FileHashes() (map[string]string, error) {
	rows, err := s.db.Query("SELECT rel_path, hash FROM file_hashes WHERE project=?", s.project)
	if err != nil {
		return nil, fmt.Errorf("file hashes: %w", err)
	}
	defer rows.Close()

	hashes := map[string]string{}
	for rows.Next() {
		var relPath, hash string
		if err := rows.Scan(&relPath, &hash); err != nil {
			return nil, err
		}
		hashes[relPath] = hash
	}
	return hashes, rows.Err()
}

// SetFileHash records the content hash for a relative path.
func (s *SQLiteSink) SetFileHash(relPath, hash string) error {
	_, err := s.db.Exec(`
		INSERT INTO file_hashes (project, rel_path, hash) VALUES (?, ?, ?)
		ON CONFLICT(project, rel_path) DO UPDATE SET hash=excluded.hash`,
		s.project, relPath, hash)
	if err != nil {
		return fmt.Errorf("set file hash: %w", err)
	}
	return nil
}

// FindNode reads a node back by reference. Returns nil if absent.
func (s *SQLiteSink) FindNode(ref NodeRef) (*Node, error) {
	row := s.db.QueryRow(
		"SELECT id, label, ref_key, ref_value, properties FROM nodes WHERE project=? AND ref_key=? AND ref_value=?",
		s.project, ref.Key, ref.Value)

	var n Node
	var props string
	if err := row.Scan(&n.ID, &n.Label, &n.RefKey, &n.RefValue, &props); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	n.Properties = unmarshalProps(props)
	return &n, nil
}

// NodesByLabel returns every node with the given label. Used by the
// global passes that re-read persisted symbols after a flush.
func (s *SQLiteSink) NodesByLabel(label string) ([]Node, error) {
	rows, err := s.db.Query(
		"SELECT id, label, ref_key, ref_value, properties FROM nodes WHERE project=? AND label=?",
		s.project, label)
	if err != nil {
		return nil, fmt.Errorf("nodes by label: %w", err)
	}
	defer rows.Close()

	var out []Node
	for rows.Next() {
		var n Node
		var props string
		if err := rows.Scan(&n.ID, &n.Label, &n.RefKey, &n.RefValue, &props); err != nil {
			return nil, err
		}
		n.Properties = unmarshalProps(props)
		out = append(out, n)
	}
	return out, rows.Err()
}

// HasRelationship reports whether an edge exists between two refs.
func (s *SQLiteSink) HasRelationship(from NodeRef, relType string, to NodeRef) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM edges e
		JOIN nodes src ON e.source_id = src.id
		JOIN nodes tgt ON e.target_id = tgt.id
		WHERE e.project=? AND e.type=?
		  AND src.ref_key=? AND src.ref_value=?
		  AND tgt.ref_key=? AND tgt.ref_value=?`,
		s.project, relType, from.Key, from.Value, to.Key, to.Value).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("has relationship: %w", err)
	}
	return count > 0, nil
}

// CountNodes returns the number of nodes for the project.
func (s *SQLiteSink) CountNodes() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM nodes WHERE project=?", s.project).Scan(&count)
	return count, err
}

// CountEdges returns the number of edges for the project.
func (s *SQLiteSink) CountEdges() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM edges WHERE project=?", s.project).Scan(&count)
	return count, err
}

// NodeCountsByLabel returns node counts grouped by label.
func (s *SQLiteSink) NodeCountsByLabel() (map[string]int, error) {
	rows, err := s.db.Query("SELECT label, COUNT(*) FROM nodes WHERE project=? GROUP BY label", s.project)
	if err != nil {
		return nil, fmt.Errorf("node counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}
	return counts, rows.Err()
}

// EdgeCountsByType returns edge counts grouped by relationship type.
func (s *SQLiteSink) EdgeCountsByType() (map[string]int, error) {
	rows, err := s.db.Query("SELECT type, COUNT(*) FROM edges WHERE project=? GROUP BY type", s.project)
	if err != nil {
		return nil, fmt.Errorf("edge counts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var relType string
		var count int
		if err := rows.Scan(&relType, &count); err != nil {
			return nil, err
		}
		counts[relType] = count
	}
	return counts, rows.Err()
}
