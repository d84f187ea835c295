package rdt

// frontierEntry is one pending node awaiting a split: its tree index, depth,
// and the pixel list that reached it.
type frontierEntry struct {
	nodeIdx int
	depth   uint8
	pixels  []pixel
}

// Frontier is the FIFO queue of nodes still needing training. Breadth-first
// order falls out of FIFO discipline alone: any queue with that discipline
// would do, an append-only slice with a moving head index is simplest here
// (popped entries are not reclaimed until the Frontier is dropped). Exported because
// cmd/train_rdt holds one across the fresh-run/resume branch and the call
// into Engine.Run.
type Frontier struct {
	entries []frontierEntry
	head    int
}

func newFrontier() *Frontier {
	return &Frontier{}
}

func (f *Frontier) push(e frontierEntry) {
	f.entries = append(f.entries, e)
}

func (f *Frontier) pop() (frontierEntry, bool) {
	if f.head >= len(f.entries) {
		return frontierEntry{}, false
	}
	e := f.entries[f.head]
	f.head++
	return e, true
}

// Empty reports whether every node has been popped off the frontier.
func (f *Frontier) Empty() bool {
	return f.head >= len(f.entries)
}

// Len reports how many entries remain queued, not counting anything
// already popped.
func (f *Frontier) Len() int {
	return len(f.entries) - f.head
}

// sampleRootPixels draws the root node's pixel list: for every image, for
// every requested pixel, one (x, y) location. This is the second of the
// two ordered RNG draw streams (uv candidates having already been drawn by
// NewTrainContext): per image, x is drawn before y, and images are visited
// in ascending order.
func (ctx *TrainContext) sampleRootPixels(rng *RNG) []pixel {
	pixels := make([]pixel, 0, int(ctx.NImages)*int(ctx.PixelsPerImage))
	for image := uint32(0); image < ctx.NImages; image++ {
		for i := uint32(0); i < ctx.PixelsPerImage; i++ {
			x := rng.IntN(ctx.Width)
			y := rng.IntN(ctx.Height)
			pixels = append(pixels, pixel{image: image, x: x, y: y})
		}
	}
	return pixels
}
