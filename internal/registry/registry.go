// Package registry holds every qualified name discovered during a run,
// with the entity kind it maps to. Names are stored in a trie keyed on
// dot-separated segments so prefix scans touch only the relevant subtree.
package registry

import (
	"strings"
	"sync"
)

// Entry is a qualified name and the kind of entity it names.
type Entry struct {
	QualifiedName string
	Kind          string
}

type trieNode struct {
	children map[string]*trieNode
	kind     string
	terminal bool
}

func newTrieNode() *trieNode {
	return &trieNode{children: map[string]*trieNode{}}
}

// Registry is a concurrency-safe map from qualified names to entity kinds.
// Writes during the definitions pass come from a single merging goroutine;
// the lock makes reads safe from anywhere.
type Registry struct {
	mu   sync.RWMutex
	root *trieNode
	size int
}

func New() *Registry {
	return &Registry{root: newTrieNode()}
}

// Set records a qualified name with its kind. Re-setting an existing name
// overwrites the kind; last write wins.
func (r *Registry) Set(qn, kind string) {
	segments := strings.Split(qn, ".")
	r.mu.Lock()
	defer r.mu.Unlock()

	node := r.root
	for _, seg := range segments {
		child, ok := node.children[seg]
		if !ok {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}
	if !node.terminal {
		r.size++
	}
	node.terminal = true
	node.kind = kind
}

// Get returns the kind stored for a qualified name.
func (r *Registry) Get(qn string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node := r.lookup(qn)
	if node == nil || !node.terminal {
		return "", false
	}
	return node.kind, true
}

// Contains reports whether a qualified name is registered.
func (r *Registry) Contains(qn string) bool {
	_, ok := r.Get(qn)
	return ok
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Registry) lookup(qn string) *trieNode {
	node := r.root
	for _, seg := range strings.Split(qn, ".") {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// FindWithPrefix returns every entry whose qualified name equals the prefix
// or extends it at a segment boundary. Boundaries are "." between segments
// and ":" within a final segment, so "m.Widget" matches "m.Widget.draw" and
// "m.Widget:init" but never "m.WidgetFactory".
func (r *Registry) FindWithPrefix(prefix string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := strings.Split(prefix, ".")
	last := segments[len(segments)-1]

	node := r.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		node = child
	}

	var out []Entry
	for seg, child := range node.children {
		if seg == last || strings.HasPrefix(seg, last+":") {
			collect(child, joinQN(segments[:len(segments)-1], seg), &out)
		}
	}
	return out
}

// FindEndingWith returns every entry whose final segment equals suffix.
func (r *Registry) FindEndingWith(suffix string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	var walk func(node *trieNode, path []string)
	walk = func(node *trieNode, path []string) {
		for seg, child := range node.children {
			next := append(path, seg)
			if child.terminal && seg == suffix {
				out = append(out, Entry{QualifiedName: strings.Join(next, "."), Kind: child.kind})
			}
			walk(child, next)
		}
	}
	walk(r.root, nil)
	return out
}

// Entries returns every registered entry. Order is unspecified.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	collect(r.root, "", &out)
	return out
}

func collect(node *trieNode, qn string, out *[]Entry) {
	if node.terminal {
		*out = append(*out, Entry{QualifiedName: qn, Kind: node.kind})
	}
	for seg, child := range node.children {
		next := seg
		if qn != "" {
			next = qn + "." + seg
		}
		collect(child, next, out)
	}
}

func joinQN(head []string, tail string) string {
	if len(head) == 0 {
		return tail
	}
	return strings.Join(head, ".") + "." + tail
}
