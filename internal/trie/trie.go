// Package trie implements the prefix tree backing command-name resolution.
// Registered names can be queried by prefix in lexicographic order, and an
// abbreviated name resolves to the best full name under a fixed tie-break:
// the shortest match wins, and equal lengths fall back to lexicographic
// order. That tie-break is part of the shell's observable behavior.
package trie

import "sort"

// Trie is a byte-wise prefix tree over a fixed set of names.
// Build it once with Insert; it is not safe for concurrent mutation.
type Trie struct {
	root *node
	size int
}

type node struct {
	children map[byte]*node
	terminal bool
}

func newNode() *node {
	return &node{children: make(map[byte]*node)}
}

// New creates an empty trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// FromKeys creates a trie holding every key in the slice.
func FromKeys(keys []string) *Trie {
	t := New()
	for _, k := range keys {
		t.Insert(k)
	}
	return t
}

// Insert adds a name to the trie. Inserting an existing name is a no-op.
func (t *Trie) Insert(key string) {
	n := t.root
	for i := 0; i < len(key); i++ {
		c := key[i]
		child, ok := n.children[c]
		if !ok {
			child = newNode()
			n.children[c] = child
		}
		n = child
	}
	if !n.terminal {
		n.terminal = true
		t.size++
	}
}

// Contains reports whether the exact name is registered.
func (t *Trie) Contains(key string) bool {
	n := t.walk(key)
	return n != nil && n.terminal
}

// Len returns the number of registered names.
func (t *Trie) Len() int {
	return t.size
}

// Keys returns every registered name having the given prefix, in
// lexicographic order. An empty prefix returns all names.
func (t *Trie) Keys(prefix string) []string {
	n := t.walk(prefix)
	if n == nil {
		return nil
	}
	var keys []string
	collect(n, prefix, &keys)
	return keys
}

// Resolve selects the registered name an abbreviated first token stands
// for. Of all names with the token as a prefix, the shortest wins; names
// of equal length are ordered lexicographically. The second return value
// is false when nothing matches.
func (t *Trie) Resolve(token string) (string, bool) {
	matches := t.Keys(token)
	if len(matches) == 0 {
		return "", false
	}
	return SelectBest(matches), true
}

// SelectBest applies the (length, then lexicographic) tie-break to a
// non-empty candidate list.
func SelectBest(matches []string) string {
	best := matches[0]
	for _, m := range matches[1:] {
		if len(m) < len(best) || (len(m) == len(best) && m < best) {
			best = m
		}
	}
	return best
}

func (t *Trie) walk(key string) *node {
	n := t.root
	for i := 0; i < len(key); i++ {
		child, ok := n.children[key[i]]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func collect(n *node, prefix string, keys *[]string) {
	if n.terminal {
		*keys = append(*keys, prefix)
	}
	if len(n.children) == 0 {
		return
	}
	bytes := make([]int, 0, len(n.children))
	for c := range n.children {
		bytes = append(bytes, int(c))
	}
	sort.Ints(bytes)
	for _, c := range bytes {
		collect(n.children[byte(c)], prefix+string(byte(c)), keys)
	}
}
