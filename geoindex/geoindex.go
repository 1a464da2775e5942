// Package geoindex keeps an R-tree of estimated target positions so the
// service layer can answer "which targets are near this point" queries
// without scanning every target.
package geoindex

import (
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/signalsfoundry/drone-geolocator/core"
)

const (
	dimensions  = 2
	minChildren = 8
	maxChildren = 16
	// pointTolerance pads point rectangles so degenerate zero-area rects
	// are avoided; small enough to not affect query results.
	pointTolerance = 1e-6
)

// TargetPoint is an indexed target estimate.
type TargetPoint struct {
	TargetID  string  `json:"target_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type item struct {
	point TargetPoint
	rect  *rtreego.Rect
}

func (it *item) Bounds() *rtreego.Rect { return it.rect }

// Index is a thread-safe spatial index of target estimates, keyed by target
// ID. Re-indexing a target replaces its previous position.
type Index struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	byID map[string]*item
}

// New constructs an empty index.
func New() *Index {
	return &Index{
		tree: rtreego.NewTree(dimensions, minChildren, maxChildren),
		byID: make(map[string]*item),
	}
}

// Upsert records (or moves) a target estimate.
func (ix *Index) Upsert(p TargetPoint) {
	rect := rtreego.Point{p.Latitude, p.Longitude}.ToRect(pointTolerance)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if prev, ok := ix.byID[p.TargetID]; ok {
		ix.tree.Delete(prev)
	}
	it := &item{point: p, rect: rect}
	ix.byID[p.TargetID] = it
	ix.tree.Insert(it)
}

// Remove drops a target from the index, reporting whether it was present.
func (ix *Index) Remove(targetID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	it, ok := ix.byID[targetID]
	if !ok {
		return false
	}
	ix.tree.Delete(it)
	delete(ix.byID, targetID)
	return true
}

// Nearby returns all indexed targets within radiusM metres of (lat, lon).
// The R-tree narrows candidates with a bounding box; the final cut uses the
// haversine distance.
func (ix *Index) Nearby(lat, lon, radiusM float64) []TargetPoint {
	latDeg := radiusM / core.MetersPerDegreeLat
	// Longitude degrees shrink with latitude, so the box must widen to keep
	// covering radiusM metres east-west. The exact distance check below trims
	// the over-coverage.
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDeg := latDeg / cosLat

	rect, err := rtreego.NewRect(
		rtreego.Point{lat - latDeg, lon - lonDeg},
		[]float64{2 * latDeg, 2 * lonDeg},
	)
	if err != nil {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	candidates := ix.tree.SearchIntersect(rect)
	points := make([]TargetPoint, 0, len(candidates))
	for _, c := range candidates {
		it, ok := c.(*item)
		if !ok {
			continue
		}
		if core.Haversine(lat, lon, it.point.Latitude, it.point.Longitude) <= radiusM {
			points = append(points, it.point)
		}
	}
	return points
}

// Len reports the number of indexed targets.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.byID)
}
