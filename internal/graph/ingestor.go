package graph

// NodeRef identifies a node by label and unique key without requiring the
// node to exist yet. Relationship endpoints are resolved (or created as
// placeholders) at flush time, so callers never order writes by hand.
type NodeRef struct {
	Label string
	Key   string
	Value string
}

// Ref builds a NodeRef using the label's canonical key.
func Ref(label, value string) NodeRef {
	return NodeRef{Label: label, Key: KeyForLabel(label), Value: value}
}

// Ingestor receives graph writes from the pipeline. Implementations buffer
// and deduplicate; re-submitting the same node or relationship is always
// safe. FlushAll is the durability barrier: when it returns nil, every
// buffered write is persisted.
type Ingestor interface {
	EnsureNodeBatch(label string, props map[string]any)
	EnsureRelationshipBatch(from NodeRef, relType string, to NodeRef, props map[string]any)
	FlushAll() error
}
