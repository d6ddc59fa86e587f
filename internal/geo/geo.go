// Package geo loads the static geographic reference tables: the DIVIPOLA
// municipality coordinate table and the department boundary GeoJSON. Both are
// cached for process lifetime; a failed load degrades the corresponding map
// view instead of failing the dashboard.
package geo

import (
	"encoding/json"
	"net/http"
	"time"

	"regalias/internal/cache"
)

// Municipality is one DIVIPOLA row: a DANE municipality code with its
// centroid coordinates.
type Municipality struct {
	RawCode    string  `csv:"COD_MPIO"`
	Name       string  `csv:"NOM_MPIO"`
	Department string  `csv:"NOM_DPTO"`
	Latitude   float64 `csv:"LATITUD"`
	Longitude  float64 `csv:"LONGITUD"`

	Code int64 `csv:"-"` // RawCode cleaned of thousands separators
}

// Feature is one GeoJSON department polygon. Geometry passes through opaque;
// only properties are inspected and annotated.
type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// DeptName returns the department name property of a boundary feature.
func (f Feature) DeptName() string {
	if v, ok := f.Properties["NOMBRE_DPT"].(string); ok {
		return v
	}
	return ""
}

// Source loads and caches both reference tables.
type Source struct {
	divipolaPath string
	geojsonPath  string
	geojsonURL   string
	httpClient   *http.Client

	munis      *cache.TTLStore[map[int64]Municipality]
	boundaries *cache.TTLStore[*FeatureCollection]
}

func NewSource(divipolaPath, geojsonPath, geojsonURL string) *Source {
	return &Source{
		divipolaPath: divipolaPath,
		geojsonPath:  geojsonPath,
		geojsonURL:   geojsonURL,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		// Static data: zero TTL, entries live for the process lifetime.
		munis:      cache.NewTTLStore[map[int64]Municipality](1, 0),
		boundaries: cache.NewTTLStore[*FeatureCollection](1, 0),
	}
}
