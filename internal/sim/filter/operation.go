package filter

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"voxelsniper.dev/internal/sim/material"
	"voxelsniper.dev/internal/sim/mathx"
)

// Operation accumulates neighbour votes for one target voxel at a time.
type Operation interface {
	Name() string
	CheckPosition(pos, offset mathx.Vec3i, m material.Material)
	// Result returns false when the operation has no winner.
	Result() (material.Material, bool)
	Reset()
}

// LinearBlend scores each material as count*maxDistance - weight, where
// weight is the summed offset length of that material's votes. The strictly
// highest score wins; a tie yields no result.
//
// Votes are kept as counts per squared integer distance and summed in
// ascending distance order, so materials with the same set of distances get
// bit-identical weights regardless of sweep order.
type LinearBlend struct {
	count int
	maxSq int
	votes map[material.Material]map[int]int
	order []material.Material
}

// blendTolerance is the relative gap under which two scores count as tied.
const blendTolerance = 1e-9

func NewLinearBlend() *LinearBlend {
	return &LinearBlend{votes: map[material.Material]map[int]int{}}
}

func (b *LinearBlend) Name() string { return "linear" }

func (b *LinearBlend) CheckPosition(_, offset mathx.Vec3i, m material.Material) {
	if offset.IsZero() {
		return
	}
	v := mgl64.Vec3{float64(offset.X), float64(offset.Y), float64(offset.Z)}
	sq := int(v.Dot(v))
	if b.votes == nil {
		b.votes = map[material.Material]map[int]int{}
	}
	byDist, seen := b.votes[m]
	if !seen {
		byDist = map[int]int{}
		b.votes[m] = byDist
		b.order = append(b.order, m)
	}
	byDist[sq]++
	b.count++
	if sq > b.maxSq {
		b.maxSq = sq
	}
}

func (b *LinearBlend) weight(m material.Material) float64 {
	byDist := b.votes[m]
	dists := make([]int, 0, len(byDist))
	for sq := range byDist {
		dists = append(dists, sq)
	}
	sort.Ints(dists)
	w := 0.0
	for _, sq := range dists {
		w += float64(byDist[sq]) * math.Sqrt(float64(sq))
	}
	return w
}

func (b *LinearBlend) Result() (material.Material, bool) {
	if len(b.order) == 0 {
		return "", false
	}
	maxDist := math.Sqrt(float64(b.maxSq))
	var (
		best    material.Material
		bestVal float64
		tied    bool
	)
	for i, m := range b.order {
		score := float64(b.count)*maxDist - b.weight(m)
		if i == 0 {
			best, bestVal = m, score
			continue
		}
		tol := blendTolerance * math.Max(1, math.Max(math.Abs(score), math.Abs(bestVal)))
		switch {
		case score > bestVal+tol:
			best, bestVal, tied = m, score, false
		case math.Abs(score-bestVal) <= tol:
			tied = true
		}
	}
	if tied {
		return "", false
	}
	return best, true
}

func (b *LinearBlend) Reset() {
	b.count = 0
	b.maxSq = 0
	for m := range b.votes {
		delete(b.votes, m)
	}
	b.order = b.order[:0]
}

// NewOperation returns the operation registered under name.
func NewOperation(name string) (Operation, bool) {
	switch name {
	case "", "linear", "linear_blend":
		return NewLinearBlend(), true
	}
	return nil, false
}
