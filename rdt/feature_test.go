package rdt

import "testing"

func smallCorpus() Corpus {
	// One 4x4 image, depth ramps from 1.0 at (0,0) to higher values toward
	// the bottom right, labels alternate so accumulation has something to
	// count.
	w, h := 4, 4
	depth := make([]float32, w*h)
	labels := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			depth[y*w+x] = 1.0 + float32(x+y)
			labels[y*w+x] = uint8((x + y) % 2)
		}
	}
	return Corpus{
		Width: w, Height: h, FOV: 1.0, NLabels: 2, NImages: 1,
		DepthImages: depth, LabelImages: labels,
	}
}

func TestFeatureOutOfBoundsConstant(t *testing.T) {
	corpus := smallCorpus()
	ctx, err := NewTrainContext(corpus, Params{NUV: 1, NThresholds: 1, ThresholdRange: 1, MaxDepth: 2, PixelsPerImage: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	// A uv pair that pushes both offsets far outside the 4x4 frame should
	// evaluate to outOfBoundsDepth - outOfBoundsDepth == 0.
	f := ctx.feature(pixel{image: 0, x: 0, y: 0}, UV{1000, 1000, 1000, 1000})
	if f != 0 {
		t.Fatalf("feature with both offsets out of bounds = %v, want 0 (both clamp to the same constant)", f)
	}
}

func TestFeatureZeroOffsetIsZero(t *testing.T) {
	corpus := smallCorpus()
	ctx, err := NewTrainContext(corpus, Params{NUV: 1, NThresholds: 1, ThresholdRange: 1, MaxDepth: 2, PixelsPerImage: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	f := ctx.feature(pixel{image: 0, x: 1, y: 1}, UV{0, 0, 0, 0})
	if f != 0 {
		t.Fatalf("feature with uv=(0,0,0,0) = %v, want 0 (same pixel on both sides)", f)
	}
}

func TestDepthAtOutOfBounds(t *testing.T) {
	corpus := smallCorpus()
	ctx, err := NewTrainContext(corpus, Params{NUV: 1, NThresholds: 1, ThresholdRange: 1, MaxDepth: 2, PixelsPerImage: 1, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if d := ctx.depthAt(0, -1, 0); d != outOfBoundsDepth {
		t.Fatalf("depthAt out of bounds = %v, want %v", d, outOfBoundsDepth)
	}
	if d := ctx.depthAt(0, 4, 0); d != outOfBoundsDepth {
		t.Fatalf("depthAt out of bounds = %v, want %v", d, outOfBoundsDepth)
	}
}
