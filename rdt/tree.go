package rdt

import (
	"context"
)

// Engine drives one training run: it owns the long-lived worker pool, the
// frontier of nodes still needing a split, and the tree array being filled
// in. cmd/train_rdt constructs one Engine and runs it once, for the single
// tree it trains.
type Engine struct {
	ctx      *TrainContext
	pool     *pool
	reporter *Reporter
	metrics  *Metrics
}

// NewEngine starts nWorkers long-lived goroutines behind the ready/finished
// barrier pair and returns an Engine ready to Run against a tree and
// frontier.
func NewEngine(ctx *TrainContext, nWorkers int, reporter *Reporter, metrics *Metrics) *Engine {
	return &Engine{
		ctx:      ctx,
		pool:     newPool(ctx, nWorkers),
		reporter: reporter,
		metrics:  metrics,
	}
}

// Close stops the worker pool. Call once after the last Run.
func (e *Engine) Close() {
	e.pool.close()
}

// Run drains fr, committing splits into tree until either the frontier runs
// dry (completed == true) or goCtx is cancelled (completed == false, with
// the remaining frontier entries simply abandoned: their tree slots still
// carry the checkpoint sentinel, and the checkpoint engine reconstructs
// equivalent entries on restore by replaying committed splits from the
// root sample rather than persisting pixel lists directly).
func (e *Engine) Run(goCtx context.Context, tree *Tree, fr *Frontier) (completed bool, err error) {
	terminalDepth := tree.Depth - 1
	started := false
	var curDepth uint8

	for !fr.Empty() {
		select {
		case <-goCtx.Done():
			return false, nil
		default:
		}

		entry, _ := fr.pop()
		if !started || entry.depth != curDepth {
			started = true
			curDepth = entry.depth
			// The node just popped plus every sibling still waiting is the
			// full set of nodes about to be processed at this depth.
			e.reporter.DepthTransition(curDepth, fr.Len()+1)
			e.metrics.TrainingDepth.Set(float64(curDepth))
		}

		atTerminal := entry.depth == terminalDepth
		e.pool.split(entry.pixels, atTerminal)

		var gain float64
		var uvIdx, tIdx int
		var lCount, rCount uint32
		found := false
		if !atTerminal {
			gain, uvIdx, tIdx, lCount, rCount, found = e.pool.reduce()
		}

		if !found || gain <= 0 {
			e.emitLeaf(tree, entry.nodeIdx, e.pool.rootHistogram())
			e.reporter.NodeLeaf(entry.nodeIdx, entry.depth, e.pool.rootHistogram())
		} else {
			uv := e.ctx.UVs[uvIdx]
			t := e.ctx.Ts[tIdx]
			tree.Nodes[entry.nodeIdx] = Node{UV: uv, T: t, LabelPrIdx: 0}
			e.reporter.NodeSplit(entry.nodeIdx, entry.depth, uv, t, gain)
			e.metrics.BestGain.Observe(gain)

			left, right := e.ctx.partition(entry.pixels, uv, t, lCount, rCount, e.reporter.Logger())
			leftIdx := 2*entry.nodeIdx + 1
			rightIdx := 2*entry.nodeIdx + 2
			fr.push(frontierEntry{nodeIdx: leftIdx, depth: entry.depth + 1, pixels: left})
			fr.push(frontierEntry{nodeIdx: rightIdx, depth: entry.depth + 1, pixels: right})
		}

		e.metrics.NodesTrained.Inc()
	}
	return true, nil
}

// emitLeaf normalizes a raw label histogram into a probability vector,
// appends it to the tree's probability table, and points the node at it.
func (e *Engine) emitLeaf(tree *Tree, nodeIdx int, counts []uint32) {
	probs := normalizeHistogram(counts)
	tree.ProbTable = append(tree.ProbTable, probs)
	tree.Nodes[nodeIdx].LabelPrIdx = uint32(len(tree.ProbTable))
}

func normalizeHistogram(counts []uint32) []float32 {
	var total uint64
	for _, c := range counts {
		total += uint64(c)
	}
	probs := make([]float32, len(counts))
	if total == 0 {
		return probs
	}
	for i, c := range counts {
		probs[i] = float32(c) / float32(total)
	}
	return probs
}

// NewRun sets up a fresh (non-restored) tree and frontier: an empty
// sentinel-filled node array and a frontier holding only the root, fed by
// the root pixel sample drawn from ctx.Seed. This is the second of the two
// ordered RNG draw streams (uv candidates already consumed by
// NewTrainContext).
func NewRun(ctx *TrainContext, background uint8) (*Tree, *Frontier) {
	tree := newSentinelTree(ctx.MaxDepth, ctx.NLabels, background, ctx.FOV)
	rng := NewRNG(ctx.Seed)
	root := ctx.sampleRootPixels(rng)
	fr := newFrontier()
	fr.push(frontierEntry{nodeIdx: 0, depth: 0, pixels: root})
	return tree, fr
}
