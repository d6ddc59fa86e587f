package charts

import (
	"fmt"
	"strconv"
	"strings"

	"regalias/internal/analysis"
)

// RGBA is a deck.gl style color quadruplet.
type RGBA [4]int

var (
	noDataFill = RGBA{200, 200, 200, 100}
	borderLine = RGBA{80, 80, 80, 200}
)

type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
}

// ChoroplethUnit styles one department polygon. GeoKey matches the boundary
// file's normalized department name.
type ChoroplethUnit struct {
	GeoKey    string `json:"geo_key"`
	FillColor RGBA   `json:"fill_color"`
	Tooltip   string `json:"tooltip"`
}

type ChoroplethLayer struct {
	View        ViewState        `json:"view"`
	Units       []ChoroplethUnit `json:"units"`
	NoDataColor RGBA             `json:"no_data_color"`
	LineColor   RGBA             `json:"line_color"`
}

type ScatterPoint struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Color     RGBA    `json:"color"`
	Tooltip   string  `json:"tooltip"`
}

type ScatterLayer struct {
	View         ViewState      `json:"view"`
	Points       []ScatterPoint `json:"points"`
	RadiusMeters int            `json:"radius_meters"`
}

// DepartmentChoropleth styles the joined department aggregates. Higher budget
// shifts the fill from blue toward red; polygons without data keep the gray
// no-data color on the client side.
func DepartmentChoropleth(units []analysis.DeptUnit, view ViewState) *ChoroplethLayer {
	if len(units) == 0 {
		return nil
	}

	layer := &ChoroplethLayer{
		View:        view,
		NoDataColor: noDataFill,
		LineColor:   borderLine,
	}
	for _, u := range units {
		layer.Units = append(layer.Units, ChoroplethUnit{
			GeoKey:    u.GeoKey,
			FillColor: RGBA{u.Intensity, 50, 255 - u.Intensity, 200},
			Tooltip:   deptTooltip(u),
		})
	}
	return layer
}

// MunicipalityScatter styles the joined municipality points, centering the
// view on their mean coordinate.
func MunicipalityScatter(points []analysis.MuniPoint) *ScatterLayer {
	if len(points) == 0 {
		return nil
	}

	var sumLat, sumLon float64
	layer := &ScatterLayer{RadiusMeters: 8000}
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
		layer.Points = append(layer.Points, ScatterPoint{
			Name:      p.Name,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Color:     RGBA{p.Intensity, 100, 255 - p.Intensity, 200},
			Tooltip:   muniTooltip(p),
		})
	}
	n := float64(len(points))
	layer.View = ViewState{Latitude: sumLat / n, Longitude: sumLon / n, Zoom: 5.5}
	return layer
}

func deptTooltip(u analysis.DeptUnit) string {
	return fmt.Sprintf(
		"DEPARTAMENTO: %s\nPresupuesto: %s\nFondos: %s\nProyectos: %d\nRecursos Aprobados: %s",
		u.Department,
		formatCOP(u.Budget),
		strings.Join(shortFunds(u.Funds), ", "),
		u.NumProjects,
		formatCOP(u.Approved),
	)
}

func muniTooltip(p analysis.MuniPoint) string {
	return fmt.Sprintf(
		"%s\nPresupuesto: %s\nProyectos: %d\nRecursos Aprobados: %s",
		p.Name,
		formatCOP(p.Budget),
		p.NumProjects,
		formatCOP(p.Approved),
	)
}

func shortFunds(funds []string) []string {
	out := make([]string, len(funds))
	for i, f := range funds {
		out[i] = shortFund(f)
	}
	return out
}

// formatCOP renders whole pesos with thousands separators, e.g. "$1,234,567".
func formatCOP(cents int64) string {
	whole := cents / 100
	neg := whole < 0
	if neg {
		whole = -whole
	}
	digits := strconv.FormatInt(whole, 10)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
