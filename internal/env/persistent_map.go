package env

import (
	"hash/maphash"
	"math/bits"
)

// Persistent hash array mapped trie. Every Put returns a new map sharing
// structure with the old one, so snapshots handed to readers never change.

const (
	hamtBits = 5
	hamtSize = 1 << hamtBits
	hamtMask = hamtSize - 1
)

// PersistentMap is an immutable map from K to V.
type PersistentMap[K comparable, V any] struct {
	root  *hamtNode[K, V]
	count int
	hash  func(K) uint32
}

type hamtNode[K comparable, V any] struct {
	bitmap uint32
	nodes  []any // hamtEntry or *hamtNode
}

type hamtEntry[K comparable, V any] struct {
	hash  uint32
	key   K
	value V
}

// EmptyMap returns an empty map hashing keys with hash.
func EmptyMap[K comparable, V any](hash func(K) uint32) *PersistentMap[K, V] {
	return &PersistentMap[K, V]{hash: hash}
}

var seed = maphash.MakeSeed()

// StringHash hashes a string key; used for symbol-keyed maps.
func StringHash(s string) uint32 {
	return uint32(maphash.String(seed, s))
}

func (m *PersistentMap[K, V]) Len() int {
	return m.count
}

// Get returns the value for key and whether it was present.
func (m *PersistentMap[K, V]) Get(key K) (V, bool) {
	if m.root == nil {
		var zero V
		return zero, false
	}
	return m.root.get(m.hash(key), key, 0)
}

// Put returns a new map with key bound to value.
func (m *PersistentMap[K, V]) Put(key K, value V) *PersistentMap[K, V] {
	h := m.hash(key)

	root := m.root
	if root == nil {
		root = &hamtNode[K, V]{}
	}
	newRoot, added := root.put(h, key, value, 0)

	count := m.count
	if added {
		count++
	}
	return &PersistentMap[K, V]{root: newRoot, count: count, hash: m.hash}
}

// Each calls fn for every entry, in trie order.
func (m *PersistentMap[K, V]) Each(fn func(K, V)) {
	if m.root != nil {
		m.root.each(fn)
	}
}

func (m *PersistentMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.count)
	m.Each(func(k K, _ V) { keys = append(keys, k) })
	return keys
}

func (n *hamtNode[K, V]) get(hash uint32, key K, shift uint) (V, bool) {
	var zero V
	if shift >= 32 {
		// collision bucket
		for _, node := range n.nodes {
			if e, ok := node.(hamtEntry[K, V]); ok && e.key == key {
				return e.value, true
			}
		}
		return zero, false
	}

	bit := uint32(1) << ((hash >> shift) & hamtMask)
	if n.bitmap&bit == 0 {
		return zero, false
	}

	switch v := n.nodes[bits.OnesCount32(n.bitmap&(bit-1))].(type) {
	case hamtEntry[K, V]:
		if v.hash == hash && v.key == key {
			return v.value, true
		}
	case *hamtNode[K, V]:
		return v.get(hash, key, shift+hamtBits)
	}
	return zero, false
}

func (n *hamtNode[K, V]) clone() *hamtNode[K, V] {
	c := &hamtNode[K, V]{bitmap: n.bitmap, nodes: make([]any, len(n.nodes))}
	copy(c.nodes, n.nodes)
	return c
}

func (n *hamtNode[K, V]) put(hash uint32, key K, value V, shift uint) (*hamtNode[K, V], bool) {
	entry := hamtEntry[K, V]{hash: hash, key: key, value: value}

	if shift >= 32 {
		bucket := n.clone()
		for i, node := range bucket.nodes {
			if e, ok := node.(hamtEntry[K, V]); ok && e.key == key {
				bucket.nodes[i] = entry
				return bucket, false
			}
		}
		bucket.nodes = append(bucket.nodes, entry)
		return bucket, true
	}

	bit := uint32(1) << ((hash >> shift) & hamtMask)
	pos := bits.OnesCount32(n.bitmap & (bit - 1))
	newNode := n.clone()

	if n.bitmap&bit == 0 {
		newNode.bitmap |= bit
		newNode.nodes = append(newNode.nodes, nil)
		copy(newNode.nodes[pos+1:], newNode.nodes[pos:])
		newNode.nodes[pos] = entry
		return newNode, true
	}

	switch v := newNode.nodes[pos].(type) {
	case hamtEntry[K, V]:
		if v.hash == hash && v.key == key {
			newNode.nodes[pos] = entry
			return newNode, false
		}
		// push both entries one level down
		child := &hamtNode[K, V]{}
		child, _ = child.put(v.hash, v.key, v.value, shift+hamtBits)
		child, _ = child.put(hash, key, value, shift+hamtBits)
		newNode.nodes[pos] = child
		return newNode, true

	case *hamtNode[K, V]:
		child, added := v.put(hash, key, value, shift+hamtBits)
		newNode.nodes[pos] = child
		return newNode, added
	}
	return newNode, false
}

func (n *hamtNode[K, V]) each(fn func(K, V)) {
	for _, node := range n.nodes {
		switch v := node.(type) {
		case hamtEntry[K, V]:
			fn(v.key, v.value)
		case *hamtNode[K, V]:
			v.each(fn)
		}
	}
}
