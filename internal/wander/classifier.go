package wander

import (
	"github.com/elmbrook/wanderguard/internal/config"
	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/zones"
)

// epsilon guards the displacement/path ratio against division by zero
// when all window points coincide.
const epsilon = 1e-9

// Classification is the pattern and confidence produced by one analysis
// pass. Duration and last-known location are filled in by the StateStore.
type Classification struct {
	Pattern    Pattern
	Confidence float64
}

// Classifier evaluates the trajectory window against three heuristics in
// strict precedence order: circling, then pacing, then lost. The local
// patterns come first so a large excursion cannot mask an
// earlier-forming circling or pacing signal.
type Classifier struct {
	minPoints       int
	window          int
	circlingRatio   float64
	minCirclingDist float64
	pacingReversals int
	pacingDegrees   float64
	lostDistance    float64
}

// NewClassifier builds a Classifier from validated tuning.
func NewClassifier(cfg *config.Tuning) *Classifier {
	return &Classifier{
		minPoints:       cfg.GetMinPointsForAnalysis(),
		window:          cfg.GetAnalysisWindow(),
		circlingRatio:   cfg.GetCirclingRatioThreshold(),
		minCirclingDist: cfg.GetMinCirclingDistanceMeters(),
		pacingReversals: cfg.GetPacingReversalThreshold(),
		pacingDegrees:   cfg.GetPacingReversalDegrees(),
		lostDistance:    cfg.GetLostDistanceThresholdMeters(),
	}
}

// Classify analyses the buffered trajectory together with the safe-zone
// evaluation of its most recent point. The second return value is false
// when the buffer holds fewer than the minimum points; the caller must
// then leave the prior state untouched.
//
// Classify is a pure function of its inputs: identical buffer and
// evaluation yield an identical result.
func (c *Classifier) Classify(buffer []geo.Point, ev zones.Evaluation) (Classification, bool) {
	if len(buffer) < c.minPoints {
		return Classification{}, false
	}

	window := buffer
	if len(window) > c.window {
		window = window[len(window)-c.window:]
	}

	if cl, ok := c.circling(window); ok {
		return cl, true
	}
	if cl, ok := c.pacing(window); ok {
		return cl, true
	}
	if cl, ok := c.lost(ev); ok {
		return cl, true
	}
	return Classification{Pattern: PatternNone, Confidence: 0}, true
}

// circling detects movement with high path length relative to net
// displacement: walking in circles near one spot.
func (c *Classifier) circling(window []geo.Point) (Classification, bool) {
	totalPath := geo.PathLength(window)
	displacement := geo.Haversine(window[0], window[len(window)-1])
	ratio := displacement / (totalPath + epsilon)
	if ratio < c.circlingRatio && totalPath > c.minCirclingDist {
		return Classification{Pattern: PatternCircling, Confidence: 1 - ratio}, true
	}
	return Classification{}, false
}

// pacing counts near-reversals of heading between consecutive segments:
// repetitive back-and-forth walking.
func (c *Classifier) pacing(window []geo.Point) (Classification, bool) {
	reversals := 0
	var prevBearing float64
	havePrev := false
	for i := 1; i < len(window); i++ {
		b := geo.Bearing(window[i-1], window[i])
		if havePrev && geo.BearingDelta(prevBearing, b) > c.pacingDegrees {
			reversals++
		}
		prevBearing = b
		havePrev = true
	}
	if reversals >= c.pacingReversals {
		return Classification{Pattern: PatternPacing, Confidence: 0.8}, true
	}
	return Classification{}, false
}

// lost requires geographic displacement: outside every safe zone and
// beyond the distance threshold from home.
func (c *Classifier) lost(ev zones.Evaluation) (Classification, bool) {
	if ev.OutsideSafeZone && ev.DistanceFromHomeMeters > c.lostDistance {
		return Classification{Pattern: PatternLost, Confidence: 0.9}, true
	}
	return Classification{}, false
}
