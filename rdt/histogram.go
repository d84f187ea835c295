package rdt

// workerSlot holds one worker's working state across the life of the pool:
// scratch buffers it owns exclusively, plus the best split it found for
// whichever node it last processed.
type workerSlot struct {
	id int

	// uv candidate range this worker owns, [uvStart, uvEnd).
	uvStart, uvEnd int

	// rootHistogram is this worker's own recomputation of the full label
	// histogram over the node's pixel list. Every worker computes this
	// independently rather than sharing one from worker 0, avoiding any
	// cross-worker write during the split: the redundancy costs a pass
	// over the pixel list that every worker makes anyway.
	rootHistogram []uint32

	// lrHistograms is laid out [uvIdx-cStart][tIdx][side][label], flattened,
	// sized (uvEnd-uvStart)*len(Ts)*2*NLabels.
	lrHistograms []uint32

	bestGain   float64
	bestUVIdx  int
	bestTIdx   int
	bestLCount uint32
	bestRCount uint32
}

func newWorkerSlot(id, uvStart, uvEnd int, nLabels uint8, nThresholds int) *workerSlot {
	return &workerSlot{
		id:            id,
		uvStart:       uvStart,
		uvEnd:         uvEnd,
		rootHistogram: make([]uint32, nLabels),
		lrHistograms:  make([]uint32, (uvEnd-uvStart)*nThresholds*2*int(nLabels)),
	}
}

func (w *workerSlot) lrIndex(uvIdx, tIdx, side int, label uint8, nThresholds int, nLabels uint8) int {
	localUV := uvIdx - w.uvStart
	return (((localUV*nThresholds+tIdx)*2 + side) * int(nLabels)) + int(label)
}

func (w *workerSlot) reset() {
	for i := range w.rootHistogram {
		w.rootHistogram[i] = 0
	}
	for i := range w.lrHistograms {
		w.lrHistograms[i] = 0
	}
	w.bestGain = -1
	w.bestUVIdx = -1
	w.bestTIdx = -1
	w.bestLCount = 0
	w.bestRCount = 0
}

// accumulate scans pixels once, building this worker's root histogram and,
// for every (uv, threshold) pair in its slice, the left/right split
// histograms. atTerminalDepth skips the left/right accumulation as a pure
// optimization: a node about to become a forced leaf never needs a split
// evaluated, matching the original tool's accumulate_histograms shortcut.
func (ctx *TrainContext) accumulate(w *workerSlot, pixels []pixel, atTerminalDepth bool) {
	nThresholds := len(ctx.Ts)
	for _, p := range pixels {
		label := ctx.labelAt(p.image, p.x, p.y)
		w.rootHistogram[label]++

		if atTerminalDepth {
			continue
		}

		for uvIdx := w.uvStart; uvIdx < w.uvEnd; uvIdx++ {
			f := ctx.feature(p, ctx.UVs[uvIdx])
			for tIdx := 0; tIdx < nThresholds; tIdx++ {
				side := 0
				if f >= ctx.Ts[tIdx] {
					side = 1
				}
				idx := w.lrIndex(uvIdx, tIdx, side, label, nThresholds, ctx.NLabels)
				w.lrHistograms[idx]++
			}
		}
	}
}

// counts returns the flattened label counts for (uvIdx, tIdx, side) as a
// slice view into the worker's scratch buffer, for gain evaluation.
func (w *workerSlot) counts(uvIdx, tIdx, side int, nThresholds int, nLabels uint8) []uint32 {
	start := w.lrIndex(uvIdx, tIdx, side, 0, nThresholds, nLabels)
	return w.lrHistograms[start : start+int(nLabels)]
}
