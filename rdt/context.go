package rdt

import "math"

// Corpus is the minimal shape the engine needs from a loaded dataset: the
// loader (package rdtio) is an external collaborator to the core engine,
// so TrainContext only depends on this small struct, not on any loader
// type.
type Corpus struct {
	Width, Height int
	FOV           float32 // vertical field of view, radians
	NLabels       uint8
	NImages       uint32
	LabelImages   []uint8   // row-major, NImages*Width*Height
	DepthImages   []float32 // row-major, NImages*Width*Height
}

// Params collects the knobs spec.md §6 exposes as CLI flags. The
// background label isn't part of the split search itself, only of the
// tree header, so it travels separately through NewRun (a resumed run keeps
// the background label from the checkpoint's own header) rather than
// living here.
type Params struct {
	NUV            uint32
	UVRange        float32 // meters, before ppm rescale
	NThresholds    uint32
	ThresholdRange float32
	MaxDepth       uint8
	PixelsPerImage uint32
	Seed           uint32
}

// TrainContext is the engine's immutable view of a training run: geometry,
// label alphabet, the raw image blocks, and the candidate uv/threshold
// sets drawn once at setup. Nothing in here is mutated once NewTrainContext
// returns; workers and the driver only ever read it concurrently.
type TrainContext struct {
	Width, Height int
	FOV           float32
	NLabels       uint8
	NImages       uint32
	LabelImages   []uint8
	DepthImages   []float32

	UVs []UV
	Ts  []float32

	PixelsPerImage uint32
	MaxDepth       uint8
	Seed           uint32
}

// NewTrainContext validates a corpus against the requested parameters,
// computes pixels-per-meter from the vertical FOV, rescales the uv range,
// and draws the uv candidates. Root pixel sampling is deferred to the
// frontier scheduler (rdt/frontier.go), since it is the second of the two
// RNG draws the determinism contract requires in order.
//
// Label validation happens here, once, over the whole corpus, rather than
// lazily inside the histogram kernel's hot loop: the spec's per-pixel
// MALFORMED_INPUT check (§4.2) is satisfied either way, but checking once
// up front means a malformed corpus is rejected before any worker is
// spawned, and a histogram kernel that only ever sees a random subsample
// of pixels can't accidentally miss a bad label elsewhere in the corpus.
func NewTrainContext(corpus Corpus, params Params) (*TrainContext, error) {
	if corpus.NLabels == 0 {
		return nil, newError(MalformedInput, "corpus has zero labels")
	}
	expected := int(corpus.NImages) * corpus.Width * corpus.Height
	if len(corpus.LabelImages) != expected {
		return nil, newError(MalformedInput, "label image block has %d entries, expected %d", len(corpus.LabelImages), expected)
	}
	if len(corpus.DepthImages) != expected {
		return nil, newError(MalformedInput, "depth image block has %d entries, expected %d", len(corpus.DepthImages), expected)
	}
	for _, label := range corpus.LabelImages {
		if label >= corpus.NLabels {
			return nil, newError(MalformedInput, "label %d is bigger than expected (max %d)", label, corpus.NLabels-1)
		}
	}

	ppm := float32(corpus.Height) / 2 / float32(math.Tan(float64(corpus.FOV)/2))
	uvRange := params.UVRange * ppm

	rng := NewRNG(params.Seed)
	uvs := make([]UV, params.NUV)
	for i := range uvs {
		uvs[i] = UV{
			rng.Float32Range(-uvRange/2, uvRange/2),
			rng.Float32Range(-uvRange/2, uvRange/2),
			rng.Float32Range(-uvRange/2, uvRange/2),
			rng.Float32Range(-uvRange/2, uvRange/2),
		}
	}

	ts := make([]float32, params.NThresholds)
	if params.NThresholds == 1 {
		ts[0] = -params.ThresholdRange / 2
	} else {
		for i := range ts {
			ts[i] = -params.ThresholdRange/2 + float32(i)*params.ThresholdRange/float32(params.NThresholds-1)
		}
	}

	return &TrainContext{
		Width:          corpus.Width,
		Height:         corpus.Height,
		FOV:            corpus.FOV,
		NLabels:        corpus.NLabels,
		NImages:        corpus.NImages,
		LabelImages:    corpus.LabelImages,
		DepthImages:    corpus.DepthImages,
		UVs:            uvs,
		Ts:             ts,
		PixelsPerImage: params.PixelsPerImage,
		MaxDepth:       params.MaxDepth,
		Seed:           params.Seed,
	}, nil
}

// imageOffset returns the flat-array offset of image i's pixel block.
func (ctx *TrainContext) imageOffset(image uint32) int {
	return int(image) * ctx.Width * ctx.Height
}
