package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"
)

// Bind variable budget: SQLite allows 999 per statement.
const (
	nodeCols       = 5
	edgeCols       = 5
	nodesBatchSize = 999 / nodeCols
	edgesBatchSize = 999 / edgeCols
)

// flushThreshold is the buffered-write count past which the sink flushes
// on its own instead of waiting for FlushAll.
const flushThreshold = 5000

// SQLiteSink is the Ingestor backed by a SQLite database. Writes buffer in
// memory and land in batched multi-row upserts inside one transaction per
// flush. Buffers are not safe for concurrent use; the pipeline funnels all
// writes through a single goroutine.
type SQLiteSink struct {
	db      *sql.DB
	project string
	dbPath  string

	nodes    []bufferedNode
	nodeIdx  map[string]int
	rels     []bufferedRel
	deferred error
}

type bufferedNode struct {
	label string
	key   string
	value string
	props map[string]any
}

type bufferedRel struct {
	from    NodeRef
	to      NodeRef
	relType string
	props   map[string]any
}

// Open opens or creates the sink database at path for the given project.
func Open(dbPath, project string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &SQLiteSink{db: db, project: project, dbPath: dbPath, nodeIdx: map[string]int{}}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenMemory opens an in-memory sink (for testing).
func OpenMemory(project string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	s := &SQLiteSink{db: db, project: project, dbPath: ":memory:", nodeIdx: map[string]int{}}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close flushes remaining writes and closes the database.
func (s *SQLiteSink) Close() error {
	flushErr := s.FlushAll()
	if err := s.db.Close(); err != nil {
		return err
	}
	return flushErr
}

// DB exposes the underlying database for read-side queries.
func (s *SQLiteSink) DB() *sql.DB {
	return s.db
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		indexed_at TEXT NOT NULL,
		root_path TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS file_hashes (
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		rel_path TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (project, rel_path)
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		label TEXT NOT NULL,
		ref_key TEXT NOT NULL,
		ref_value TEXT NOT NULL,
		properties TEXT DEFAULT '{}',
		UNIQUE(project, ref_key, ref_value)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(project, label);

	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL,
		source_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		target_id INTEGER NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		properties TEXT DEFAULT '{}',
		UNIQUE(source_id, target_id, type)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id, type);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id, type);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(project, type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// EnsureNodeBatch buffers a node upsert. The label's unique key must be
// present in props; submissions without it are dropped with a warning.
// Re-submitting a node merges its properties, later values winning.
func (s *SQLiteSink) EnsureNodeBatch(label string, props map[string]any) {
	key := KeyForLabel(label)
	value, ok := props[key].(string)
	if !ok || value == "" {
		slog.Warn("sink.node.missing_key", "label", label, "key", key)
		return
	}

	idxKey := label + "\x00" + value
	if i, ok := s.nodeIdx[idxKey]; ok {
		merged := s.nodes[i].props
		for k, v := range props {
			merged[k] = v
		}
		return
	}

	copied := make(map[string]any, len(props))
	for k, v := range props {
		copied[k] = v
	}
	s.nodeIdx[idxKey] = len(s.nodes)
	s.nodes = append(s.nodes, bufferedNode{label: label, key: key, value: value, props: copied})
	s.maybeFlush()
}

// EnsureRelationshipBatch buffers a relationship upsert. Endpoints that do
// not exist by flush time are created as placeholder nodes, so submission
// order never matters.
func (s *SQLiteSink) EnsureRelationshipBatch(from NodeRef, relType string, to NodeRef, props map[string]any) {
	s.rels = append(s.rels, bufferedRel{from: from, to: to, relType: relType, props: props})
	s.maybeFlush()
}

func (s *SQLiteSink) maybeFlush() {
	if len(s.nodes)+len(s.rels) < flushThreshold {
		return
	}
	if err := s.flush(); err != nil && s.deferred == nil {
		s.deferred = err
	}
}

// FlushAll writes every buffered node and relationship to the database.
// It is the pipeline's durability barrier.
func (s *SQLiteSink) FlushAll() error {
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.deferred; err != nil {
		s.deferred = nil
		return err
	}
	return nil
}

func (s *SQLiteSink) flush() error {
	if len(s.nodes) == 0 && len(s.rels) == 0 {
		return nil
	}
	nodes, rels := s.nodes, s.rels
	s.nodes, s.rels = nil, nil
	s.nodeIdx = map[string]int{}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := s.flushInTx(tx, nodes, rels); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush: %w", err)
	}
	slog.Debug("sink.flush", "nodes", len(nodes), "rels", len(rels))
	return nil
}

func (s *SQLiteSink) flushInTx(tx *sql.Tx, nodes []bufferedNode, rels []bufferedRel) error {
	for i := 0; i < len(nodes); i += nodesBatchSize {
		end := min(i+nodesBatchSize, len(nodes))
		if err := s.upsertNodeChunk(tx, nodes[i:end]); err != nil {
			return err
		}
	}

	if len(rels) == 0 {
		return nil
	}

	// Endpoints referenced by edges but never submitted as nodes become
	// placeholders carrying only their key property.
	refs := map[NodeRef]struct{}{}
	for _, r := range rels {
		refs[r.from] = struct{}{}
		refs[r.to] = struct{}{}
	}
	if err := s.ensurePlaceholders(tx, refs); err != nil {
		return err
	}

	ids, err := s.resolveRefIDs(tx, refs)
	if err != nil {
		return err
	}

	for i := 0; i < len(rels); i += edgesBatchSize {
		end := min(i+edgesBatchSize, len(rels))
		if err := s.insertEdgeChunk(tx, rels[i:end], ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteSink) upsertNodeChunk(tx *sql.Tx, batch []bufferedNode) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO nodes (project, label, ref_key, ref_value, properties) VALUES `)

	args := make([]any, 0, len(batch)*nodeCols)
	for i, n := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?)")
		args = append(args, s.project, n.label, n.key, n.value, marshalProps(n.props))
	}
	sb.WriteString(` ON CONFLICT(project, ref_key, ref_value) DO UPDATE SET
		label=excluded.label,
		properties=json_patch(nodes.properties, excluded.properties)`)

	if _, err := tx.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("upsert node batch: %w", err)
	}
	return nil
}

func (s *SQLiteSink) ensurePlaceholders(tx *sql.Tx, refs map[NodeRef]struct{}) error {
	var sb strings.Builder
	var args []any
	count := 0
	flushChunk := func() error {
		if count == 0 {
			return nil
		}
		if _, err := tx.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("placeholder nodes: %w", err)
		}
		sb.Reset()
		args = args[:0]
		count = 0
		return nil
	}

	for ref := range refs {
		if count == 0 {
			sb.WriteString(`INSERT OR IGNORE INTO nodes (project, label, ref_key, ref_value, properties) VALUES `)
		} else {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?)")
		props := marshalProps(map[string]any{ref.Key: ref.Value})
		args = append(args, s.project, ref.Label, ref.Key, ref.Value, props)
		count++
		if count >= nodesBatchSize {
			if err := flushChunk(); err != nil {
				return err
			}
		}
	}
	return flushChunk()
}

// resolveRefIDs maps every ref to its node row id, grouping by ref_key so
// each lookup is a single IN query.
func (s *SQLiteSink) resolveRefIDs(tx *sql.Tx, refs map[NodeRef]struct{}) (map[NodeRef]int64, error) {
	byKey := map[string][]NodeRef{}
	for ref := range refs {
		byKey[ref.Key] = append(byKey[ref.Key], ref)
	}

	ids := make(map[NodeRef]int64, len(refs))
	const maxPerQuery = 997 // project + ref_key + N values

	for key, keyRefs := range byKey {
		for i := 0; i < len(keyRefs); i += maxPerQuery {
			end := min(i+maxPerQuery, len(keyRefs))
			chunk := keyRefs[i:end]

			placeholders := make([]string, len(chunk))
			args := make([]any, 0, len(chunk)+2)
			args = append(args, s.project, key)
			for j, ref := range chunk {
				placeholders[j] = "?"
				args = append(args, ref.Value)
			}

			query := fmt.Sprintf(
				"SELECT id, label, ref_value FROM nodes WHERE project=? AND ref_key=? AND ref_value IN (%s)",
				strings.Join(placeholders, ","))

			byValue := map[string]int64{}
			if err := func() error {
				rows, err := tx.Query(query, args...)
				if err != nil {
					return fmt.Errorf("resolve ref ids: %w", err)
				}
				defer rows.Close()
				for rows.Next() {
					var id int64
					var label, value string
					if err := rows.Scan(&id, &label, &value); err != nil {
						return err
					}
					byValue[value] = id
				}
				return rows.Err()
			}(); err != nil {
				return nil, err
			}
			for _, ref := range chunk {
				if id, ok := byValue[ref.Value]; ok {
					ids[ref] = id
				}
			}
		}
	}
	return ids, nil
}

func (s *SQLiteSink) insertEdgeChunk(tx *sql.Tx, batch []bufferedRel, ids map[NodeRef]int64) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO edges (project, source_id, target_id, type, properties) VALUES `)

	args := make([]any, 0, len(batch)*edgeCols)
	written := 0
	for _, r := range batch {
		srcID, srcOK := ids[r.from]
		tgtID, tgtOK := ids[r.to]
		if !srcOK || !tgtOK {
			slog.Warn("sink.edge.unresolved", "type", r.relType, "from", r.from.Value, "to", r.to.Value)
			continue
		}
		if written > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?)")
		args = append(args, s.project, srcID, tgtID, r.relType, marshalProps(r.props))
		written++
	}
	if written == 0 {
		return nil
	}
	sb.WriteString(` ON CONFLICT(source_id, target_id, type) DO UPDATE SET properties=excluded.properties`)

	if _, err := tx.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("insert edge batch: %w", err)
	}
	return nil
}

func marshalProps(props map[string]any) string {
	if props == nil {
		return "{}"
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func unmarshalProps(data string) map[string]any {
	if data == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return map[string]any{}
	}
	return m
}
