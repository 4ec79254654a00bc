package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvgFillPrice(t *testing.T) {
	rep := ExecutionReport{Fills: []Fill{
		{MakerID: 1, Qty: 5, Price: 100},
		{MakerID: 2, Qty: 5, Price: 102},
	}}
	avg, ok := rep.AvgFillPrice()
	require.True(t, ok)
	assert.Equal(t, "101", avg.String())

	empty := ExecutionReport{}
	_, ok = empty.AvgFillPrice()
	assert.False(t, ok)
}

func TestSyntheticIDNamespaces(t *testing.T) {
	own := uint64(12345)

	ids := []uint64{SnapRowID(0), SnapRowID(99), AheadFillerID(own), BehindFillerID(own)}
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		assert.True(t, IsSynthetic(id))
		_, dup := seen[id]
		assert.False(t, dup, "synthetic namespaces must not collide")
		seen[id] = struct{}{}
	}

	assert.NotEqual(t, AheadFillerID(own), BehindFillerID(own))
	assert.False(t, IsSynthetic(own))
	assert.False(t, IsSynthetic(SynthIDBase-1))
}
