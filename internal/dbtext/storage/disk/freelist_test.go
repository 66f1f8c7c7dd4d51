package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeAdjacentCoalescesContiguousChunks(t *testing.T) {
	inventory := []freeSpaceRecord{
		{Offset: 100, Length: 20},
		{Offset: 0, Length: 50},
		{Offset: 50, Length: 50}, // contiguous with the one above
		{Offset: 200, Length: 10},
	}
	merged, changed := mergeAdjacent(inventory)
	assert.True(t, changed)

	var total uint16
	for _, r := range merged {
		total += r.Length
	}
	assert.Equal(t, uint16(130), total, "merging must not lose or fabricate bytes")

	foundCoalesced := false
	for _, r := range merged {
		if r.Offset == 0 && r.Length == 120 {
			foundCoalesced = true
		}
	}
	assert.True(t, foundCoalesced, "the contiguous chunks at 0, 50 and 100 should merge into one 120-byte chunk")
}

func TestMergeAdjacentNoopWhenNothingContiguous(t *testing.T) {
	inventory := []freeSpaceRecord{
		{Offset: 0, Length: 10},
		{Offset: 100, Length: 10},
	}
	merged, changed := mergeAdjacent(inventory)
	assert.False(t, changed)
	assert.Equal(t, inventory, merged)
}
