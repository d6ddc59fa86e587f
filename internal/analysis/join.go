package analysis

import (
	"regalias/internal/core"
	"regalias/internal/geo"
)

// DeptUnit is one department aggregate joined to its boundary polygon key,
// carrying the color intensity for the choropleth.
type DeptUnit struct {
	core.Aggregate
	GeoKey    string `json:"geo_key"`
	Intensity int    `json:"intensity"` // 0-255 within the current filtered set
}

// MuniPoint is one municipality aggregate joined to its coordinates.
type MuniPoint struct {
	core.Aggregate
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Intensity int     `json:"intensity"`
}

// AliasResolver maps an SGR department name to the spelling used by the
// boundary file. Both sides are compared through core.DeptKey.
type AliasResolver func(name string) string

// NewAliasResolver builds a resolver from the raw alias table. Names without
// an alias resolve to their own normalized key.
func NewAliasResolver(aliases map[string]string) AliasResolver {
	normalized := make(map[string]string, len(aliases))
	for from, to := range aliases {
		normalized[core.DeptKey(from)] = core.DeptKey(to)
	}
	return func(name string) string {
		key := core.DeptKey(name)
		if mapped, ok := normalized[key]; ok {
			return mapped
		}
		return key
	}
}

// DepartmentUnits joins department aggregates to boundary polygons via the
// alias-normalized name. Departments without a polygon are dropped (the map
// simply shows fewer shapes); intensity is normalized over the full
// aggregate set so color encodes relative weight within the current filters.
func DepartmentUnits(aggs []core.Aggregate, fc *geo.FeatureCollection, resolve AliasResolver) []DeptUnit {
	if fc == nil || len(aggs) == 0 {
		return nil
	}

	shapes := make(map[string]struct{}, len(fc.Features))
	for _, f := range fc.Features {
		shapes[core.DeptKey(f.DeptName())] = struct{}{}
	}

	budgets := make([]int64, len(aggs))
	for i, a := range aggs {
		budgets[i] = a.Budget
	}
	intensity := NormalizeIntensity(budgets)

	var out []DeptUnit
	for i, a := range aggs {
		key := resolve(a.Department)
		if _, ok := shapes[key]; !ok {
			continue
		}
		out = append(out, DeptUnit{Aggregate: a, GeoKey: key, Intensity: intensity[i]})
	}
	return out
}

// MunicipalityPoints joins entity aggregates to DIVIPOLA coordinates via the
// normalized DANE code. The second return value counts aggregates that had
// no coordinate row and were therefore omitted from the map. Intensity is
// normalized over the matched points only, so entities without coordinates
// cannot skew the color scale of the points actually drawn.
func MunicipalityPoints(aggs []core.Aggregate, munis map[int64]geo.Municipality) ([]MuniPoint, int) {
	if len(munis) == 0 || len(aggs) == 0 {
		return nil, len(aggs)
	}

	var out []MuniPoint
	unmatched := 0
	for _, a := range aggs {
		m, ok := munis[a.EntityCode]
		if !ok {
			unmatched++
			continue
		}
		out = append(out, MuniPoint{
			Aggregate: a,
			Name:      m.Name,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
		})
	}

	budgets := make([]int64, len(out))
	for i, p := range out {
		budgets[i] = p.Budget
	}
	intensity := NormalizeIntensity(budgets)
	for i := range out {
		out[i].Intensity = intensity[i]
	}
	return out, unmatched
}

// NormalizeIntensity scales values to 0-255. A flat series maps to 128.
func NormalizeIntensity(values []int64) []int {
	out := make([]int, len(values))
	if len(values) == 0 {
		return out
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if max == min {
		for i := range out {
			out[i] = 128
		}
		return out
	}

	span := float64(max - min)
	for i, v := range values {
		out[i] = int(float64(v-min) / span * 255)
	}
	return out
}
