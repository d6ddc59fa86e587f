package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regalias/internal/analysis"
	"regalias/internal/core"
)

func TestDepartmentChoropleth(t *testing.T) {
	units := []analysis.DeptUnit{
		{
			Aggregate: core.Aggregate{Department: "ANTIOQUIA", Budget: 10000, Approved: 4000, NumProjects: 3, Funds: []string{"ASIGNACION PARA LA INVERSION LOCAL"}},
			GeoKey:    "ANTIOQUIA",
			Intensity: 255,
		},
		{
			Aggregate: core.Aggregate{Department: "CHOCO", Budget: 5000},
			GeoKey:    "CHOCO",
			Intensity: 0,
		},
	}

	layer := DepartmentChoropleth(units, ViewState{Latitude: 4.57, Longitude: -74.29, Zoom: 5})
	require.NotNil(t, layer)
	require.Len(t, layer.Units, 2)

	assert.Equal(t, RGBA{255, 50, 0, 200}, layer.Units[0].FillColor)
	assert.Equal(t, RGBA{0, 50, 255, 200}, layer.Units[1].FillColor)
	assert.Equal(t, RGBA{200, 200, 200, 100}, layer.NoDataColor)
	assert.Contains(t, layer.Units[0].Tooltip, "DEPARTAMENTO: ANTIOQUIA")
	assert.Contains(t, layer.Units[0].Tooltip, "Presupuesto: $100")
	assert.Contains(t, layer.Units[0].Tooltip, "INVERSION LOCAL")
}

func TestDepartmentChoropleth_Empty(t *testing.T) {
	assert.Nil(t, DepartmentChoropleth(nil, ViewState{}))
}

func TestMunicipalityScatter_CentersOnMean(t *testing.T) {
	points := []analysis.MuniPoint{
		{Aggregate: core.Aggregate{Budget: 10000}, Name: "Medellín", Latitude: 6, Longitude: -75, Intensity: 255},
		{Aggregate: core.Aggregate{Budget: 5000}, Name: "Quibdó", Latitude: 4, Longitude: -77, Intensity: 0},
	}

	layer := MunicipalityScatter(points)
	require.NotNil(t, layer)
	assert.InDelta(t, 5.0, layer.View.Latitude, 0.001)
	assert.InDelta(t, -76.0, layer.View.Longitude, 0.001)
	assert.Equal(t, 8000, layer.RadiusMeters)
	assert.Equal(t, RGBA{255, 100, 0, 200}, layer.Points[0].Color)
}

func TestFormatCOP(t *testing.T) {
	assert.Equal(t, "$0", formatCOP(0))
	assert.Equal(t, "$999", formatCOP(99900))
	assert.Equal(t, "$1,000", formatCOP(100000))
	assert.Equal(t, "$1,234,567", formatCOP(123456700))
	assert.Equal(t, "-$5,000", formatCOP(-500000))
}
