package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/mptrie/pkg/core/storage"
	"github.com/nspcc-dev/mptrie/pkg/crypto/hash"
	"github.com/nspcc-dev/mptrie/pkg/util"
	"github.com/nspcc-dev/mptrie/pkg/util/slice"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when requested trie item is missing.
	ErrNotFound = errors.New("item not found")
	// ErrKeyTooBig is returned for keys longer than MaxKeyLength.
	ErrKeyTooBig = errors.New("key is too big")
	// ErrValueTooBig is returned for values longer than MaxValueLength.
	ErrValueTooBig = errors.New("value is too big")
	// ErrValueTooSmall is returned when an empty value is to be stored
	// where deletion makes no sense.
	ErrValueTooSmall = errors.New("value is empty")
)

// Config contains trie parameters.
type Config struct {
	// Store is the backing store for trie nodes. It may be nil for tries
	// living in memory only, resolving a hash node fails then.
	Store storage.Store
	// Hash is the node digest function, hash.Keccak256 if not set.
	Hash hash.Func
	// CacheSize is the number of decoded nodes to keep in memory, 0
	// disables the cache.
	CacheSize int
	// Log is the logger, nop logger is used if not set.
	Log *zap.Logger
}

// Trie is an MPT trie storing all key-value pairs. It's a value holding the
// current root, every mutation replaces the root leaving previous versions
// (and copies of the Trie) intact. Trie is not safe for concurrent mutation,
// but its nodes may be shared between goroutines freely.
type Trie struct {
	root   Node
	hasher hash.Func
	store  *nodeStore
	log    *zap.Logger
}

// NewTrie returns a new MPT trie with the specified root. Nil root means an
// empty trie.
func NewTrie(root Node, cfg Config) *Trie {
	if root == nil {
		root = EmptyNode{}
	}
	if cfg.Hash == nil {
		cfg.Hash = hash.Keccak256
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return &Trie{
		root:   root,
		hasher: cfg.Hash,
		store:  newNodeStore(cfg.Store, cfg.Hash, cfg.CacheSize, cfg.Log),
		log:    cfg.Log,
	}
}

// NewTrieFromRoot returns a trie with the root referenced by digest, zero
// digest is an empty trie.
func NewTrieFromRoot(h util.Uint256, cfg Config) *Trie {
	if h.IsZero() {
		return NewTrie(nil, cfg)
	}
	return NewTrie(NewHashNode(h), cfg)
}

// Root returns the current root node.
func (t *Trie) Root() Node {
	return t.root
}

// Hasher returns the node digest function used by t.
func (t *Trie) Hasher() hash.Func {
	return t.hasher
}

// Copy returns a trie sharing all nodes (and the store) with t, further
// mutations of any of them are not visible to the other one.
func (t *Trie) Copy() *Trie {
	res := *t
	return &res
}

// Get returns value for the provided key in t.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if len(key) > MaxKeyLength {
		return nil, ErrKeyTooBig
	}
	path := ToNibbles(key)
	bs, err := t.getWithPath(t.root, path)
	if err != nil {
		return nil, err
	}
	return slice.Copy(bs), nil
}

// getWithPath returns value for the provided path in a subtrie rooting in curr.
func (t *Trie) getWithPath(curr Node, path []byte) ([]byte, error) {
	switch n := curr.(type) {
	case EmptyNode:
	case *LeafNode:
		if bytes.Equal(path, n.path) {
			return n.value, nil
		}
	case *BranchNode:
		if len(path) == 0 {
			if n.value != nil {
				return n.value, nil
			}
			break
		}
		i, path := splitPath(path)
		return t.getWithPath(n.children[i], path)
	case *ExtensionNode:
		if bytes.HasPrefix(path, n.path) {
			return t.getWithPath(n.next, path[len(n.path):])
		}
	case *HashNode:
		r, err := t.store.get(n.hash)
		if err != nil {
			return nil, err
		}
		return t.getWithPath(r, path)
	default:
		panic(fmt.Sprintf("invalid MPT node type: %T", curr))
	}
	return nil, ErrNotFound
}

// Put puts key-value pair in t. Empty value is the same as Delete since it
// can't be distinguished from a missing one.
func (t *Trie) Put(key, value []byte) error {
	if len(key) > MaxKeyLength {
		return ErrKeyTooBig
	} else if len(value) > MaxValueLength {
		return ErrValueTooBig
	}
	if len(value) == 0 {
		return t.Delete(key)
	}
	path := ToNibbles(key)
	r, err := t.putIntoNode(t.root, path, value)
	if err != nil {
		return err
	}
	t.root = r
	return nil
}

// putIntoNode puts value with the provided path inside curr and returns
// updated node. Unchanged nodes are returned as is.
func (t *Trie) putIntoNode(curr Node, path []byte, value []byte) (Node, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return NewLeafNode(t.hasher, path, value), nil
	case *LeafNode:
		return t.putIntoLeaf(n, path, value), nil
	case *BranchNode:
		return t.putIntoBranch(n, path, value)
	case *ExtensionNode:
		return t.putIntoExtension(n, path, value)
	case *HashNode:
		return t.putIntoHash(n, path, value)
	default:
		panic(fmt.Sprintf("invalid MPT node type: %T", curr))
	}
}

// putIntoLeaf puts value to trie if current node is a Leaf.
func (t *Trie) putIntoLeaf(curr *LeafNode, path []byte, value []byte) Node {
	if bytes.Equal(path, curr.path) {
		if bytes.Equal(value, curr.value) {
			return curr
		}
		return NewLeafNode(t.hasher, path, value)
	}

	var (
		children [ChildrenCount]Node
		bValue   []byte
		lp       = lcp(path, curr.path)
		leafTail = curr.path[lp:]
		pathTail = path[lp:]
	)
	if len(leafTail) == 0 {
		bValue = curr.value
	} else {
		children[leafTail[0]] = NewLeafNode(t.hasher, leafTail[1:], curr.value)
	}
	if len(pathTail) == 0 {
		bValue = value
	} else {
		children[pathTail[0]] = NewLeafNode(t.hasher, pathTail[1:], value)
	}
	return t.wrapBranch(path[:lp], NewBranchNode(t.hasher, children, bValue))
}

// putIntoBranch puts value to trie if current node is a Branch.
func (t *Trie) putIntoBranch(curr *BranchNode, path []byte, value []byte) (Node, error) {
	if len(path) == 0 {
		if bytes.Equal(value, curr.value) {
			return curr, nil
		}
		return NewBranchNode(t.hasher, curr.children, value), nil
	}
	i, path := splitPath(path)
	r, err := t.putIntoNode(curr.children[i], path, value)
	if err != nil {
		return nil, err
	}
	if r == curr.children[i] {
		return curr, nil
	}
	children := curr.children
	children[i] = r
	return NewBranchNode(t.hasher, children, curr.value), nil
}

// putIntoExtension puts value to trie if current node is an Extension.
func (t *Trie) putIntoExtension(curr *ExtensionNode, path []byte, value []byte) (Node, error) {
	if bytes.HasPrefix(path, curr.path) {
		r, err := t.putIntoNode(curr.next, path[len(curr.path):], value)
		if err != nil {
			return nil, err
		}
		if r == curr.next {
			return curr, nil
		}
		return NewExtensionNode(t.hasher, curr.path, r), nil
	}

	var (
		children [ChildrenCount]Node
		bValue   []byte
		lp       = lcp(curr.path, path)
		keyTail  = curr.path[lp:]
		pathTail = path[lp:]
	)
	children[keyTail[0]] = t.newSubTrie(keyTail[1:], curr.next)
	if len(pathTail) == 0 {
		bValue = value
	} else {
		children[pathTail[0]] = NewLeafNode(t.hasher, pathTail[1:], value)
	}
	return t.wrapBranch(path[:lp], NewBranchNode(t.hasher, children, bValue)), nil
}

// putIntoHash puts value to trie if current node is a HashNode.
func (t *Trie) putIntoHash(curr *HashNode, path []byte, value []byte) (Node, error) {
	result, err := t.store.get(curr.hash)
	if err != nil {
		return nil, err
	}
	r, err := t.putIntoNode(result, path, value)
	if err != nil {
		return nil, err
	}
	if r == result {
		return curr, nil
	}
	return r, nil
}

// newSubTrie returns next prefixed with the path, next must be a branch.
func (t *Trie) newSubTrie(path []byte, next Node) Node {
	if len(path) == 0 {
		return next
	}
	return NewExtensionNode(t.hasher, path, next)
}

// wrapBranch puts b under an extension if the prefix is not empty.
func (t *Trie) wrapBranch(prefix []byte, b *BranchNode) Node {
	if len(prefix) == 0 {
		return b
	}
	return NewExtensionNode(t.hasher, prefix, b)
}

// Delete removes key from trie.
// It returns no error on missing key.
func (t *Trie) Delete(key []byte) error {
	if len(key) > MaxKeyLength {
		return ErrKeyTooBig
	}
	path := ToNibbles(key)
	r, err := t.deleteFromNode(t.root, path)
	if err != nil {
		return err
	}
	t.root = r
	return nil
}

// deleteFromNode removes the value at the path from a subtrie rooting in
// curr and returns updated node. curr is returned as is if there is nothing
// to delete.
func (t *Trie) deleteFromNode(curr Node, path []byte) (Node, error) {
	switch n := curr.(type) {
	case EmptyNode:
		return n, nil
	case *LeafNode:
		if bytes.Equal(path, n.path) {
			return EmptyNode{}, nil
		}
		return n, nil
	case *BranchNode:
		return t.deleteFromBranch(n, path)
	case *ExtensionNode:
		return t.deleteFromExtension(n, path)
	case *HashNode:
		newNode, err := t.store.get(n.hash)
		if err != nil {
			return nil, err
		}
		r, err := t.deleteFromNode(newNode, path)
		if err != nil {
			return nil, err
		}
		if r == newNode {
			return n, nil
		}
		return r, nil
	default:
		panic(fmt.Sprintf("invalid MPT node type: %T", curr))
	}
}

func (t *Trie) deleteFromBranch(b *BranchNode, path []byte) (Node, error) {
	var (
		children = b.children
		value    = b.value
	)
	if len(path) == 0 {
		if b.value == nil {
			return b, nil
		}
		value = nil
	} else {
		i, path := splitPath(path)
		r, err := t.deleteFromNode(b.children[i], path)
		if err != nil {
			return nil, err
		}
		if r == b.children[i] {
			return b, nil
		}
		children[i] = r
	}

	count, index := countChildren(&children)
	switch {
	case count > 1 || (count == 1 && value != nil):
		return NewBranchNode(t.hasher, children, value), nil
	case count == 0:
		// Only the value is left, it's a leaf ending right here.
		return NewLeafNode(t.hasher, nil, value), nil
	}

	// The only child is left, merge it with the slot nibble.
	c := children[index]
	if h, ok := c.(*HashNode); ok {
		var err error
		c, err = t.store.get(h.hash)
		if err != nil {
			return nil, err
		}
	}
	return t.prependPath([]byte{index}, c), nil
}

func (t *Trie) deleteFromExtension(n *ExtensionNode, path []byte) (Node, error) {
	if !bytes.HasPrefix(path, n.path) {
		return n, nil
	}
	r, err := t.deleteFromNode(n.next, path[len(n.path):])
	if err != nil {
		return nil, err
	}
	if r == n.next {
		return n, nil
	}
	if isEmpty(r) {
		return r, nil
	}
	return t.prependPath(n.path, r), nil
}

// prependPath returns a node equivalent to c located prefix nibbles deeper,
// merging paths of leaves and extensions.
func (t *Trie) prependPath(prefix []byte, c Node) Node {
	switch c := c.(type) {
	case *LeafNode:
		return NewLeafNode(t.hasher, slice.Concat(prefix, c.path), c.value)
	case *ExtensionNode:
		return NewExtensionNode(t.hasher, slice.Concat(prefix, c.path), c.next)
	case *BranchNode, *HashNode:
		return NewExtensionNode(t.hasher, prefix, c)
	default:
		panic(fmt.Sprintf("can't prepend path to %T", c))
	}
}

// StateRoot returns root hash of t.
func (t *Trie) StateRoot() util.Uint256 {
	return t.root.Hash()
}

// Commit puts every new node reachable from the root into the store in a
// single change set and replaces the root with a HashNode. The root node is
// always stored, other nodes are stored only if they're referenced by
// digest. Committed trie can be restored with NewTrieFromRoot.
func (t *Trie) Commit() (util.Uint256, error) {
	switch n := t.root.(type) {
	case EmptyNode, *HashNode:
		return n.Hash(), nil
	}
	var (
		root  = t.root.Hash()
		batch = make(map[string][]byte)
	)
	clean := collectDirty(t.root, batch)
	batch[string(makeStorageKey(root))] = t.root.Bytes()
	if err := t.store.putChangeSet(batch); err != nil {
		return util.Uint256{}, err
	}
	t.store.add(clean)
	t.root = NewHashNode(root)
	t.log.Debug("trie committed", zap.Stringer("root", root), zap.Int("nodes", len(batch)))
	return root, nil
}

// collectDirty adds all new digest-referenced nodes of a subtrie rooting in
// n to the batch. It returns a copy of the subtrie with all these nodes
// marked as persisted, original nodes are left intact.
func collectDirty(n Node, batch map[string][]byte) Node {
	if !isDirty(n) {
		return n
	}
	var res Node
	switch n := n.(type) {
	case *LeafNode:
		c := *n
		c.dirty = false
		res = &c
	case *BranchNode:
		c := *n
		for i := range c.children {
			c.children[i] = collectDirty(c.children[i], batch)
		}
		c.dirty = false
		res = &c
	case *ExtensionNode:
		c := *n
		c.next = collectDirty(c.next, batch)
		c.dirty = false
		res = &c
	default:
		return n
	}
	if !isInline(res) {
		batch[string(makeStorageKey(res.Hash()))] = res.Bytes()
	}
	return res
}

// Collapse replaces all persisted digest-referenced nodes deeper than depth
// with HashNodes to free memory, depth 0 collapses the root itself. New
// (not committed) nodes are never collapsed.
func (t *Trie) Collapse(depth int) {
	if depth < 0 {
		panic("negative depth")
	}
	t.root = collapse(depth, t.root, true)
}

func collapse(depth int, node Node, byDigest bool) Node {
	switch node.(type) {
	case EmptyNode, *HashNode:
		return node
	}
	if isDirty(node) {
		// Children of a new node can't be collapsed without changing its
		// identity, so only clean parts are processed below.
		return collapseChildren(depth, node)
	}
	if depth == 0 {
		if byDigest || !isInline(node) {
			return NewHashNode(node.Hash())
		}
		return node
	}
	return collapseChildren(depth, node)
}

func collapseChildren(depth int, node Node) Node {
	switch n := node.(type) {
	case *BranchNode:
		var (
			c       = *n
			changed bool
		)
		for i := range c.children {
			c.children[i] = collapse(max(depth-1, 0), n.children[i], false)
			changed = changed || c.children[i] != n.children[i]
		}
		if changed {
			return &c
		}
	case *ExtensionNode:
		if next := collapse(max(depth-1, 0), n.next, false); next != n.next {
			c := *n
			c.next = next
			return &c
		}
	}
	return node
}
