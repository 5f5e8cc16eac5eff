package mapping

import (
	"fmt"
	"slices"
	"strings"

	"workbench-mapper/internal/common"
)

// LeafKind tells where the value of a mapped column comes from.
type LeafKind int

const (
	// ExistingHeader maps a column of the dataset.
	ExistingHeader LeafKind = iota
	// NewColumn maps a column that will be added to the dataset.
	NewColumn
	// NewStaticColumn maps a literal value used for every row.
	NewStaticColumn
)

func (k LeafKind) String() string {
	switch k {
	case ExistingHeader:
		return "existingHeader"
	case NewColumn:
		return "newColumn"
	case NewStaticColumn:
		return "newStaticColumn"
	default:
		return common.UnknownStr
	}
}

// Leaf is the terminal value of a mapping tree.
type Leaf struct {
	Kind LeafKind
	// Value is the header name, or the literal for NewStaticColumn.
	Value string
}

func (l Leaf) String() string {
	return fmt.Sprintf("%s(%q)", l.Kind, l.Value)
}

// Node is either a subtree or a leaf, never both.
type Node struct {
	Subtree *Tree
	Leaf    *Leaf
}

// IsLeaf returns true if the node holds a leaf.
func (n Node) IsLeaf() bool {
	return n.Leaf != nil
}

// Tree is an ordered mapping from step tokens to nodes. Keys keep the
// order in which they were first added.
type Tree struct {
	keys  []string
	nodes map[string]Node
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]Node)}
}

// Len returns the number of direct children.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}

	return len(t.keys)
}

// Keys returns the keys of the direct children in order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}

	return slices.Clone(t.keys)
}

// Get returns the child stored under key.
func (t *Tree) Get(key string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}

	n, ok := t.nodes[key]

	return n, ok
}

// GetFold is like Get but matches key case-insensitively when there is
// no exact match.
func (t *Tree) GetFold(key string) (Node, bool) {
	if n, ok := t.Get(key); ok {
		return n, true
	}

	for _, k := range t.Keys() {
		if strings.EqualFold(k, key) {
			return t.nodes[k], true
		}
	}

	return Node{}, false
}

// Lookup returns the node at path.
func (t *Tree) Lookup(path Path) (Node, bool) {
	node := Node{Subtree: t}

	for _, s := range path {
		if node.IsLeaf() {
			return Node{}, false
		}

		next, ok := node.Subtree.Get(s.Token())
		if !ok {
			return Node{}, false
		}

		node = next
	}

	return node, node.Subtree != nil || node.Leaf != nil
}

// MappedKeys returns the keys directly under prefix, or nil when prefix is
// not a branch of the tree.
func (t *Tree) MappedKeys(prefix Path) []string {
	node, ok := t.Lookup(prefix)
	if !ok || node.IsLeaf() {
		return nil
	}

	return node.Subtree.Keys()
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	out := NewTree()
	if t == nil {
		return out
	}

	for _, k := range t.keys {
		n := t.nodes[k]
		if n.IsLeaf() {
			leaf := *n.Leaf
			out.set(k, Node{Leaf: &leaf})
		} else {
			out.set(k, Node{Subtree: n.Subtree.Clone()})
		}
	}

	return out
}

// Equal reports whether both trees have the same branches and leaves.
// Key order is not compared.
func (t *Tree) Equal(other *Tree) bool {
	if t.Len() != other.Len() {
		return false
	}

	for _, k := range t.Keys() {
		a, _ := t.Get(k)

		b, ok := other.Get(k)
		if !ok || a.IsLeaf() != b.IsLeaf() {
			return false
		}

		if a.IsLeaf() {
			if *a.Leaf != *b.Leaf {
				return false
			}

			continue
		}

		if !a.Subtree.Equal(b.Subtree) {
			return false
		}
	}

	return true
}

func (t *Tree) set(key string, n Node) {
	if _, ok := t.nodes[key]; !ok {
		t.keys = append(t.keys, key)
	}

	t.nodes[key] = n
}

// insert adds leaf at path, creating intermediate branches.
func (t *Tree) insert(path Path, leaf Leaf) error {
	node := t

	for i, s := range path {
		key := s.Token()
		existing, ok := node.nodes[key]

		if i == len(path)-1 {
			if ok {
				return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
			}

			l := leaf
			node.set(key, Node{Leaf: &l})

			return nil
		}

		if !ok {
			existing = Node{Subtree: NewTree()}
			node.set(key, existing)
		}

		if existing.IsLeaf() {
			return fmt.Errorf("%w: %s is already mapped to %s", ErrDuplicatePath, path[:i+1], existing.Leaf)
		}

		node = existing.Subtree
	}

	return nil
}

// Entry is one mapped path of a flattened tree.
type Entry struct {
	Path Path
	Leaf Leaf
}

// ArrayToTree builds a tree from entries. Construction is all-or-nothing:
// on error no tree is returned.
func ArrayToTree(entries []Entry) (*Tree, error) {
	tree := NewTree()

	for _, e := range entries {
		if err := ValidatePath(e.Path); err != nil {
			return nil, err
		}

		if err := tree.insert(e.Path, e.Leaf); err != nil {
			return nil, err
		}
	}

	return tree, nil
}

// TreeToArray flattens a tree depth-first in key order.
func TreeToArray(t *Tree) []Entry {
	var entries []Entry

	collectEntries(t, nil, &entries)

	return entries
}

func collectEntries(t *Tree, prefix Path, entries *[]Entry) {
	for _, k := range t.Keys() {
		n, _ := t.Get(k)

		step, err := stepFromToken(k)
		if err != nil {
			// Keys are only created from valid steps.
			continue
		}

		path := prefix.Append(step)

		if n.IsLeaf() {
			*entries = append(*entries, Entry{Path: path, Leaf: *n.Leaf})
			continue
		}

		collectEntries(n.Subtree, path, entries)
	}
}

// Merge returns a new tree holding the branches of a and b. Neither input
// is modified. A path mapped in both trees is an error.
func Merge(a, b *Tree) (*Tree, error) {
	out := a.Clone()
	if err := mergeInto(out, b, nil); err != nil {
		return nil, err
	}

	return out, nil
}

func mergeInto(dst, src *Tree, prefix Path) error {
	for _, k := range src.Keys() {
		n, _ := src.Get(k)

		step, err := stepFromToken(k)
		if err != nil {
			return err
		}

		path := prefix.Append(step)

		existing, ok := dst.Get(k)
		if !ok {
			if n.IsLeaf() {
				leaf := *n.Leaf
				dst.set(k, Node{Leaf: &leaf})
			} else {
				dst.set(k, Node{Subtree: n.Subtree.Clone()})
			}

			continue
		}

		if existing.IsLeaf() || n.IsLeaf() {
			return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
		}

		if err := mergeInto(existing.Subtree, n.Subtree, path); err != nil {
			return err
		}
	}

	return nil
}

// PathTree returns a single-branch tree along path, for use as a Traverse
// filter. The final step holds an empty subtree.
func PathTree(path Path) *Tree {
	root := NewTree()
	node := root

	for _, s := range path {
		child := NewTree()
		node.set(s.Token(), Node{Subtree: child})
		node = child
	}

	return root
}

// Traverse follows the single branch of filter through tree and returns
// the node at the filter's deepest key. It returns false when the branch
// does not exist in tree.
func Traverse(tree, filter *Tree) (Node, bool) {
	node := Node{Subtree: tree}
	f := filter

	for f.Len() > 0 {
		if node.IsLeaf() || node.Subtree == nil {
			return Node{}, false
		}

		key := f.keys[0]

		next, ok := node.Subtree.Get(key)
		if !ok {
			return Node{}, false
		}

		node = next

		fn := f.nodes[key]
		if fn.IsLeaf() {
			break
		}

		f = fn.Subtree
	}

	return node, true
}
