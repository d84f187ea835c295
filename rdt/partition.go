package rdt

import "go.uber.org/zap"

// partition routes a node's pixel list into left/right children using the
// committed (uv, t) split, in one pass. expectedLeft and expectedRight are
// the counts the histogram scan already computed; a mismatch against the
// actual routed counts means a pixel's feature value landed differently
// between the accumulation pass and this pass, which should never happen
// for a pure function of immutable image data — if it ever does (e.g. a
// corrupted checkpoint replay reusing a different float rounding path), we
// warn and trust the actual partition rather than panic, matching the
// "trim, don't abort" restore philosophy the checkpoint engine already
// uses elsewhere.
func (ctx *TrainContext) partition(pixels []pixel, uv UV, t float32, expectedLeft, expectedRight uint32, log *zap.Logger) (left, right []pixel) {
	left = make([]pixel, 0, expectedLeft)
	right = make([]pixel, 0, expectedRight)
	for _, p := range pixels {
		f := ctx.feature(p, uv)
		if f >= t {
			right = append(right, p)
		} else {
			left = append(left, p)
		}
	}
	if uint32(len(left)) != expectedLeft || uint32(len(right)) != expectedRight {
		if log != nil {
			log.Warn("partition count mismatch, trusting actual routing",
				zap.Uint32("expected_left", expectedLeft), zap.Int("actual_left", len(left)),
				zap.Uint32("expected_right", expectedRight), zap.Int("actual_right", len(right)))
		}
	}
	return left, right
}
