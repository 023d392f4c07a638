package models

// BoundingBox is an inclusive lon/lat rectangle.
type BoundingBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// ContainsLat and ContainsLon test one axis, bounds included.
func (b BoundingBox) ContainsLat(lat float64) bool { return lat >= b.MinLat && lat <= b.MaxLat }
func (b BoundingBox) ContainsLon(lon float64) bool { return lon >= b.MinLon && lon <= b.MaxLon }

// GeofenceTable maps a two-digit district code to its bounding box.
// Read-only after construction.
type GeofenceTable map[string]BoundingBox
