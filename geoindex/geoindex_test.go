package geoindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearby_FiltersByDistance(t *testing.T) {
	ix := New()
	ix.Upsert(TargetPoint{TargetID: "close", Latitude: 40.0005, Longitude: -3}) // ~56 m north
	ix.Upsert(TargetPoint{TargetID: "medium", Latitude: 40.008, Longitude: -3}) // ~890 m north
	ix.Upsert(TargetPoint{TargetID: "far", Latitude: 40.05, Longitude: -3})     // ~5.6 km north
	ix.Upsert(TargetPoint{TargetID: "elsewhere", Latitude: 50, Longitude: 10})

	got := ix.Nearby(40, -3, 1000)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.TargetID)
	}
	assert.ElementsMatch(t, []string{"close", "medium"}, ids)
}

func TestNearby_LongitudeAtHighLatitude(t *testing.T) {
	ix := New()
	// ~580 m east of (60, 10): a degree of longitude spans only ~55.7 km there.
	ix.Upsert(TargetPoint{TargetID: "east", Latitude: 60, Longitude: 10.0104})

	got := ix.Nearby(60, 10, 1000)
	require.Len(t, got, 1)
	assert.Equal(t, "east", got[0].TargetID)

	assert.Empty(t, ix.Nearby(60, 10, 100), "target is well beyond 100 m")
}

func TestUpsert_MovesExistingTarget(t *testing.T) {
	ix := New()
	ix.Upsert(TargetPoint{TargetID: "tgt-1", Latitude: 40, Longitude: -3})
	ix.Upsert(TargetPoint{TargetID: "tgt-1", Latitude: 41, Longitude: -4})

	assert.Equal(t, 1, ix.Len())
	assert.Empty(t, ix.Nearby(40, -3, 1000), "old position must be gone")

	got := ix.Nearby(41, -4, 1000)
	require.Len(t, got, 1)
	assert.Equal(t, 41.0, got[0].Latitude)
}

func TestRemove(t *testing.T) {
	ix := New()
	ix.Upsert(TargetPoint{TargetID: "tgt-1", Latitude: 40, Longitude: -3})

	assert.True(t, ix.Remove("tgt-1"))
	assert.False(t, ix.Remove("tgt-1"), "second remove must report absence")
	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.Nearby(40, -3, 1000))
}

func TestNearby_EmptyIndex(t *testing.T) {
	ix := New()
	assert.Empty(t, ix.Nearby(40, -3, 1000))
}
