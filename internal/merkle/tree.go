// Package merkle builds and verifies the distribution commitment trees that
// stand in for iterating all claimants. Verification is a pure function so it
// can be exercised against known good and bad proofs without any storage.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"cosmossdk.io/math"
)

// Domain-separation prefixes. Leaves and interior nodes hash under different
// prefixes so an interior node can never be replayed as a leaf.
const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// ErrNoLeaves is returned when building a tree from an empty leaf set.
var ErrNoLeaves = errors.New("merkle: no leaves")

// LeafHash computes the commitment leaf for one claim entitlement.
// Formula: SHA256(0x00 || beneficiary|period|token|amount).
func LeafHash(beneficiary string, period int, token string, amount math.Int) [32]byte {
	data := fmt.Sprintf("%s|%d|%s|%s", beneficiary, period, token, amount.String())
	return sha256.Sum256(append([]byte{leafPrefix}, data...))
}

// hashPair hashes an ordered-insensitive pair: the smaller node first, so a
// verifier needs no left/right flags in the proof.
func hashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	buf := make([]byte, 0, 1+64)
	buf = append(buf, nodePrefix)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return sha256.Sum256(buf)
}

// Tree is an immutable Merkle tree over a fixed leaf set.
type Tree struct {
	// layers[0] is the leaf layer; the last layer holds the single root.
	layers [][][32]byte
}

// NewTree builds a tree from the given leaves. Odd nodes are promoted to the
// next layer unchanged.
func NewTree(leaves [][32]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	layer := make([][32]byte, len(leaves))
	copy(layer, leaves)

	layers := [][][32]byte{layer}
	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, hashPair(layer[i], layer[i+1]))
			} else {
				next = append(next, layer[i])
			}
		}
		layers = append(layers, next)
		layer = next
	}

	return &Tree{layers: layers}, nil
}

// Root returns the tree root.
func (t *Tree) Root() [32]byte {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.layers[0])
}

// Proof returns the sibling path for the leaf at index i.
func (t *Tree) Proof(i int) ([][32]byte, error) {
	if i < 0 || i >= t.Len() {
		return nil, fmt.Errorf("merkle: leaf index %d out of range", i)
	}

	var proof [][32]byte
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := i ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		i /= 2
	}
	return proof, nil
}

// Verify reports whether leaf hashes up to root through proof.
func Verify(root, leaf [32]byte, proof [][32]byte) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// EncodeHash returns the hex encoding of a hash.
func EncodeHash(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// DecodeHash parses a hex-encoded 32-byte hash.
func DecodeHash(s string) ([32]byte, error) {
	var h [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("decode hash: %w", err)
	}
	if len(raw) != 32 {
		return h, fmt.Errorf("hash must be 32 bytes, got %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}
