package rdt

// RestoreFrontier rebuilds the training frontier from a partially-trained
// tree by replaying the deterministic partitioner from the root sample:
// pixel lists are never serialized into a checkpoint, only the node array
// and probability table, so resuming means regenerating every node's
// pixel list by walking the tree from the root and re-applying each
// committed internal node's (uv, t) split.
//
// checkpointDepth is the tree's depth as it was read off disk, before any
// ExtendDepth call grew tree.Depth to the newly requested depth. The
// leaf-requeue decision below is gated on the checkpoint's own old
// terminal depth, not the (possibly already-extended) tree.Depth: a leaf
// is only a candidate for retraining if it was forced to stop exactly at
// the old depth limit, never because it happens to sit above the new one.
//
// For every node visited, in BFS order:
//   - unfinished internal slot (Sentinel): push it onto the frontier with
//     its replayed pixel list, so training resumes exactly where it left
//     off.
//   - finished leaf sitting at a depth strictly shallower than the
//     checkpoint's old terminal depth (a pure node, or one with zero
//     information gain, decided before the old depth limit was even
//     reached): already correctly decided regardless of any later
//     deepening, leave it alone.
//   - finished leaf sitting exactly at the checkpoint's old terminal
//     depth, and the tree is being deepened (tree.Depth > checkpointDepth):
//     keep the leaf's probability entry in place (it becomes an orphaned
//     table row if the node goes on to split) AND push the node back onto
//     the frontier for retraining, since a leaf frozen at the old depth
//     limit is exactly the node that needs to keep splitting under the
//     new, larger depth. This mirrors the original tool's checkpoint walk
//     faithfully, including the apparent redundancy.
//   - finished leaf at the old terminal depth, not being deepened: already
//     correctly finished, nothing to replay below it.
//   - finished internal node: don't enqueue it, but do recurse into both
//     children with their replayed pixel lists, since training continues
//     below it.
func RestoreFrontier(ctx *TrainContext, tree *Tree, checkpointDepth uint8) *Frontier {
	fr := newFrontier()
	rng := NewRNG(ctx.Seed)
	root := ctx.sampleRootPixels(rng)
	oldTerminalDepth := checkpointDepth - 1
	deepening := tree.Depth > checkpointDepth

	var walk func(nodeIdx int, depth uint8, pixels []pixel)
	walk = func(nodeIdx int, depth uint8, pixels []pixel) {
		if nodeIdx >= len(tree.Nodes) {
			return
		}
		node := tree.Nodes[nodeIdx]

		switch {
		case node.IsUnfinished():
			fr.push(frontierEntry{nodeIdx: nodeIdx, depth: depth, pixels: pixels})

		case node.IsLeaf():
			if deepening && depth == oldTerminalDepth {
				fr.push(frontierEntry{nodeIdx: nodeIdx, depth: depth, pixels: pixels})
			}
			// Otherwise already correctly decided: a leaf above the old
			// terminal depth was a pure/zero-gain stop, not a depth-limit
			// stop, and must not be disturbed by deepening.

		case node.IsInternal():
			left, right := ctx.partition(pixels, node.UV, node.T, 0, 0, nil)
			walk(2*nodeIdx+1, depth+1, left)
			walk(2*nodeIdx+2, depth+1, right)
		}
	}

	walk(0, 0, root)
	return fr
}

// ExtendDepth grows a completed tree's node array to a new, larger depth,
// preserving every existing node (leaves keep their LabelPrIdx, internal
// nodes keep their split) and filling the newly added slots with the
// checkpoint sentinel. Used when a user reruns training against an
// existing model with --max-depth raised.
func ExtendDepth(tree *Tree, newDepth uint8) {
	if newDepth <= tree.Depth {
		return
	}
	nodes := make([]Node, NodeCount(newDepth))
	for i := range nodes {
		nodes[i].LabelPrIdx = Sentinel
	}
	copy(nodes, tree.Nodes)
	tree.Nodes = nodes
	tree.Depth = newDepth
}
