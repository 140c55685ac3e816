package model

import (
	"github.com/Faultbox/midgard-vat/pkg/formats"
	"github.com/Faultbox/midgard-vat/pkg/math"
)

// keyframe is any RSM key: a frame time in ms and a value of type V.
type keyframe[V any] interface {
	frame() int32
	value() V
}

type rotKey formats.RSMRotKeyframe

func (k rotKey) frame() int32     { return k.Frame }
func (k rotKey) value() math.Quat { return math.Quat(k.Quaternion) }

type vecKey struct {
	at int32
	v  [3]float32
}

func (k vecKey) frame() int32      { return k.at }
func (k vecKey) value() [3]float32 { return k.v }

// sample evaluates keys at timeMs. Times before the first key hold the
// first value and times after the last key hold the last one.
func sample[K keyframe[V], V any](keys []K, timeMs float32, mix func(a, b V, t float32) V) V {
	next := 0
	for next < len(keys) && float32(keys[next].frame()) <= timeMs {
		next++
	}
	switch {
	case next == 0:
		return keys[0].value()
	case next == len(keys):
		return keys[len(keys)-1].value()
	}

	prev := keys[next-1]
	f0, f1 := prev.frame(), keys[next].frame()
	t := (timeMs - float32(f0)) / float32(f1-f0)
	return mix(prev.value(), keys[next].value(), t)
}

func slerp(a, b math.Quat, t float32) math.Quat { return a.Slerp(b, t) }

// InterpolateRotKeys returns the rotation at timeMs, or identity with no keys.
func InterpolateRotKeys(keys []formats.RSMRotKeyframe, timeMs float32) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity
	}
	rk := make([]rotKey, len(keys))
	for i, k := range keys {
		rk[i] = rotKey(k)
	}
	return sample(rk, timeMs, slerp)
}

// InterpolateScaleKeys returns the scale at timeMs, or (1, 1, 1) with no keys.
func InterpolateScaleKeys(keys []formats.RSMScaleKeyframe, timeMs float32) [3]float32 {
	if len(keys) == 0 {
		return [3]float32{1, 1, 1}
	}
	vk := make([]vecKey, len(keys))
	for i, k := range keys {
		vk[i] = vecKey{k.Frame, k.Scale}
	}
	return sample(vk, timeMs, math.Lerp3)
}

// InterpolatePosKeys returns the translation at timeMs from pre-1.5 position
// keys, or the origin with no keys.
func InterpolatePosKeys(keys []formats.RSMPosKeyframe, timeMs float32) [3]float32 {
	if len(keys) == 0 {
		return [3]float32{}
	}
	vk := make([]vecKey, len(keys))
	for i, k := range keys {
		vk[i] = vecKey{k.Frame, k.Position}
	}
	return sample(vk, timeMs, math.Lerp3)
}

// HasAnimation reports whether any node has more than one key of a kind.
// A single key is a static pose.
func HasAnimation(rsm *formats.RSM) bool {
	if rsm.AnimLength <= 0 {
		return false
	}
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if len(n.RotKeys) > 1 || len(n.PosKeys) > 1 || len(n.ScaleKeys) > 1 {
			return true
		}
	}
	return false
}
