package rdt

import "math"

// Sentinel marks a tree slot as not yet trained; it is only ever present in
// a checkpoint file, never in a finished artifact.
const Sentinel uint32 = math.MaxUint32

// UV is a 4-tuple of pixel-space offsets (ux, uy, vx, vy) parameterizing one
// depth-offset feature candidate.
type UV [4]float32

// Node is one slot of the flat, breadth-first tree array. Children of node
// k sit at 2k+1 and 2k+2. LabelPrIdx == 0 means internal; LabelPrIdx in
// [1, Sentinel) is a 1-based index into the tree's probability table;
// LabelPrIdx == Sentinel means unfinished (checkpoint-only).
type Node struct {
	UV         UV
	T          float32
	LabelPrIdx uint32
}

// IsLeaf reports whether this node is a finished leaf.
func (n Node) IsLeaf() bool {
	return n.LabelPrIdx != 0 && n.LabelPrIdx != Sentinel
}

// IsUnfinished reports whether this node still carries the checkpoint
// sentinel.
func (n Node) IsUnfinished() bool {
	return n.LabelPrIdx == Sentinel
}

// IsInternal reports whether this node has committed a split.
func (n Node) IsInternal() bool {
	return n.LabelPrIdx == 0
}

// Tree is the complete trained (or partially-trained, when read back from a
// checkpoint) artifact: header metadata, the dense BFS node array, and the
// ordered probability table addressed by LabelPrIdx-1.
type Tree struct {
	Version    uint8
	Depth      uint8
	NLabels    uint8
	Background uint8
	FOV        float32
	Nodes      []Node
	ProbTable  [][]float32
}

// NodeCount returns 2^depth - 1, the number of slots a tree of this depth
// occupies.
func NodeCount(depth uint8) int {
	return (1 << depth) - 1
}

// newSentinelTree allocates a tree array of the right size for depth, with
// every slot marked unfinished, ready to be filled in by training or
// restored in part from a checkpoint.
func newSentinelTree(depth uint8, nLabels, background uint8, fov float32) *Tree {
	nodes := make([]Node, NodeCount(depth))
	for i := range nodes {
		nodes[i].LabelPrIdx = Sentinel
	}
	return &Tree{
		Version:    FormatVersion,
		Depth:      depth,
		NLabels:    nLabels,
		Background: background,
		FOV:        fov,
		Nodes:      nodes,
	}
}

// FormatVersion is carried over from the original tool's RDT_VERSION
// constant (original_source/training/utils.h) so header shape stays
// recognizable across the two implementations, even though the node
// payload layout is this module's own.
const FormatVersion uint8 = 3

// Complete reports whether every slot in the tree has been trained; a
// freshly restored checkpoint with remaining work will have at least one
// unfinished slot.
func (t *Tree) Complete() bool {
	for _, n := range t.Nodes {
		if n.IsUnfinished() {
			return false
		}
	}
	return true
}
