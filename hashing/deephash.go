package hashing

import (
	"crypto/sha256"
	"crypto/sha512"
	"strconv"

	"github.com/weavevalidator/validator/types"
)

// Item is a node of the tree fed to DeepHash: either a Blob leaf or a List
// of child Items. It mirrors the "blob"/"list" shapes of the canonical
// preimage described in the block hash design.
type Item struct {
	isList   bool
	blob     []byte
	children []Item
}

// Blob wraps a byte string as a deep_hash leaf.
func Blob(b []byte) Item { return Item{blob: b} }

// List wraps a sequence of Items as a deep_hash branch.
func List(children ...Item) Item { return Item{isList: true, children: children} }

// tag renders the ASCII tag prefix "<name><decimal length>" used ahead of
// every blob and list before hashing, e.g. tag("blob", 3) == "blob3".
func tag(name string, n int) []byte {
	return []byte(name + strconv.Itoa(n))
}

// deepHashFrame tracks one in-progress List node: which child is next, and
// the SHA-384 digests of children already folded.
type deepHashFrame struct {
	item  *Item
	idx   int
	parts [][]byte
}

// DeepHash computes the canonical nested hash of root: a leaf hashes to
// SHA-384(tag("blob", len(B)) || B); a list folds its children's DeepHash
// results into SHA-384(tag("list", n) || DeepHash(c_1) || ... || DeepHash(c_n)).
//
// The walk is iterative, not recursive: an explicit stack of frames stands
// in for the call stack so a maliciously deep or wide header cannot exhaust
// it via unbounded recursion.
func DeepHash(root Item) types.Hash48 {
	stack := []*deepHashFrame{{item: &root}}
	var last []byte

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if !top.item.isList {
			digest := sha512.Sum384(append(tag("blob", len(top.item.blob)), top.item.blob...))
			last = digest[:]
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.parts = append(parent.parts, last)
			}
			continue
		}

		if top.idx < len(top.item.children) {
			child := &top.item.children[top.idx]
			top.idx++
			stack = append(stack, &deepHashFrame{item: child})
			continue
		}

		buf := tag("list", len(top.item.children))
		for _, p := range top.parts {
			buf = append(buf, p...)
		}
		digest := sha512.Sum384(buf)
		last = digest[:]
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.parts = append(parent.parts, last)
		}
	}

	return types.BytesToHash48(last)
}

// SHA256 is the plain SHA-256 digest used throughout the merkle verifier,
// chunk hashing, and mining-hash assembly.
func SHA256(b ...[]byte) types.Hash32 {
	h := sha256.New()
	for _, part := range b {
		h.Write(part)
	}
	var out types.Hash32
	h.Sum(out[:0])
	return out
}

// SHA384 is the plain SHA-384 digest used for indep_hash/block_hash.
func SHA384(b ...[]byte) types.Hash48 {
	h := sha512.New384()
	for _, part := range b {
		h.Write(part)
	}
	var out types.Hash48
	h.Sum(out[:0])
	return out
}
