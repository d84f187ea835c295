package rdt

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBarrierReleasesAllPartiesTogether(t *testing.T) {
	const n = 5
	b := newBarrier(n)
	var arrived int32
	var releasedAfterAllArrived int32
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt32(&arrived, 1)
			b.wait()
			// By the time wait() returns for any party, every party must
			// already have arrived.
			if atomic.LoadInt32(&arrived) != n {
				atomic.StoreInt32(&releasedAfterAllArrived, 1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not release within timeout")
	}
	if releasedAfterAllArrived != 0 {
		t.Fatal("a party was released from the barrier before every party had arrived")
	}
}

func TestBarrierIsReusable(t *testing.T) {
	const n = 3
	b := newBarrier(n)
	for round := 0; round < 5; round++ {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.wait()
			}()
		}
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("round %d: barrier did not release", round)
		}
	}
}

// stepDepthCorpus builds a corpus whose own-pixel depth is a clean step
// function of x, exactly matching the label boundary: depth 1.0 (and
// label 0) for x < w/2, depth 5.0 (and label 1) otherwise. Combined with
// a uv candidate that forces one operand out of bounds (see the test
// below), this makes the resulting feature an exact function of depth,
// and therefore of label, with no dependence on the random uv/threshold
// draw — the split is guaranteed separating rather than merely likely.
func stepDepthCorpus() Corpus {
	w, h := 8, 8
	n := 2
	depth := make([]float32, n*w*h)
	labels := make([]uint8, n*w*h)
	for img := 0; img < n; img++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := img*w*h + y*w + x
				if x < w/2 {
					depth[i] = 1.0
					labels[i] = 0
				} else {
					depth[i] = 5.0
					labels[i] = 1
				}
			}
		}
	}
	return Corpus{
		Width: w, Height: h, FOV: 1.0, NLabels: 2, NImages: uint32(n),
		DepthImages: depth, LabelImages: labels,
	}
}

func TestPoolSplitAndReduceFindsSeparatingUV(t *testing.T) {
	corpus := stepDepthCorpus()
	params := Params{NUV: 1, NThresholds: 1, ThresholdRange: 1, MaxDepth: 3, PixelsPerImage: 60, Seed: 5}
	ctx, err := NewTrainContext(corpus, params)
	if err != nil {
		t.Fatal(err)
	}
	// Override the single candidate with one that forces its first
	// operand out of bounds (a huge y offset) and reads the own pixel's
	// depth as its second operand: feature = 1000 - depth(x, y), which is
	// 999 for label 0 and 995 for label 1. A threshold of 997 sits
	// between them; the engine's own evenly spaced thresholds are bypassed
	// here entirely, since we set Ts directly too.
	ctx.UVs = []UV{{0, 1000, 0, 0}}
	ctx.Ts = []float32{997}

	p := newPool(ctx, 4)
	defer p.close()

	pixels := ctx.sampleRootPixels(NewRNG(ctx.Seed))
	p.split(pixels, false)

	gain, uvIdx, tIdx, lCount, rCount, found := p.reduce()
	if !found {
		t.Fatal("expected a candidate split to be reported")
	}
	if uvIdx != 0 || tIdx != 0 {
		t.Fatalf("uvIdx=%d tIdx=%d, want the only candidate (0,0)", uvIdx, tIdx)
	}
	if gain <= 0.8 {
		t.Fatalf("gain = %v, want a near-perfect split (root is roughly balanced between the two labels, and both children end up pure)", gain)
	}
	if lCount+rCount != uint32(len(pixels)) {
		t.Fatalf("lCount+rCount = %d, want %d (all pixels routed)", lCount+rCount, len(pixels))
	}
}
