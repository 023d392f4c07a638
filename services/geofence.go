package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"

	"matchain-gc/models"
	"matchain-gc/utils"
)

// regionKeyRegexp extracts the region code from keys such as
// "final_desa_202413301.geojson".
var regionKeyRegexp = regexp.MustCompile(`2024(\d+)\.geojson`)

// LoadGeofence reads the bounding-box source file. A missing file yields an
// empty table, which disables the geofence rule.
func LoadGeofence(path string, logger *utils.Logger) (models.GeofenceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("[geofence] File %q not found, location validation disabled", path)
			return models.GeofenceTable{}, nil
		}
		return models.GeofenceTable{}, fmt.Errorf("geofence: read %q: %w", path, err)
	}

	var raw map[string][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.GeofenceTable{}, fmt.Errorf("geofence: decode %q: %w", path, err)
	}

	table := BuildGeofence(raw, logger)
	logger.Info("[geofence] Loaded %d district bounding boxes (2 digit)", len(table))
	return table, nil
}

// BuildGeofence keys each box by the last two digits of its region code.
// Two regions sharing a suffix collide; the later key (in sorted order) wins
// and a warning is logged.
func BuildGeofence(raw map[string][]float64, logger *utils.Logger) models.GeofenceTable {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := make(models.GeofenceTable, len(raw))
	source := make(map[string]string, len(raw))
	for _, key := range keys {
		m := regionKeyRegexp.FindStringSubmatch(key)
		if m == nil {
			logger.Warn("[geofence] Cannot extract region code from %q, skipped", key)
			continue
		}
		full := m[1]
		if len(full) < 2 {
			logger.Warn("[geofence] Region code %q from %q too short, skipped", full, key)
			continue
		}
		bbox := raw[key]
		if len(bbox) != 4 {
			logger.Warn("[geofence] Bounding box for %q has %d values, want 4; skipped", key, len(bbox))
			continue
		}
		code := full[len(full)-2:]
		if prev, dup := source[code]; dup {
			logger.Warn("[geofence] District %s from %q overrides %q", code, key, prev)
		}
		source[code] = key
		table[code] = models.BoundingBox{MinLon: bbox[0], MinLat: bbox[1], MaxLon: bbox[2], MaxLat: bbox[3]}
	}
	return table
}
