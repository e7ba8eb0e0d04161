package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistinctIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, DistinctIDs([]int64{3, 1, 3, 2, 1}))
	assert.Empty(t, DistinctIDs(nil))
}

func TestFilterEligible_KeepsInputOrder(t *testing.T) {
	mem := newMemDB()
	for _, id := range []int64{10, 11, 12} {
		mem.seedParticipant(id, true, boolPtr(true))
	}

	got, err := FilterEligible(context.Background(), memParticipants{mem}, auctionID, []int64{12, 10, 11, 12})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(12), got[0].Participant.ID)
	assert.Equal(t, int64(10), got[1].Participant.ID)
	assert.Equal(t, int64(11), got[2].Participant.ID)
	for _, e := range got {
		assert.True(t, e.Request.IsActive)
		assert.Equal(t, e.Participant.ID, e.Request.ParticipantID)
	}
}
