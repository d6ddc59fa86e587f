package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regalias/internal/analysis"
	"regalias/internal/core"
)

func money(pesos int64) core.Money {
	return core.Money{Cents: pesos * 100, Valid: true}
}

var allowlist = []string{
	"ASIGNACIONES DIRECTAS",
	"ASIGNACION PARA LA INVERSION LOCAL",
	"ASIGNACION PARA LA INVERSION LOCAL -  AMBIENTE Y DESARROLLO SOSTENIBLE",
}

func chartProjects() []core.Project {
	return []core.Project{
		{Fund: "ASIGNACIONES DIRECTAS", Department: "ANTIOQUIA", Entity: "MEDELLIN", Vigencia: "2023-2024", Budget: money(100), Approved: money(40), Pending: money(60), NumProjects: 2},
		{Fund: "ASIGNACION PARA LA INVERSION LOCAL", Department: "CHOCO", Entity: "QUIBDO", Vigencia: "2025-2026", Budget: money(50), Approved: money(50), NumProjects: 1},
	}
}

func TestFundComparison(t *testing.T) {
	chart := FundComparison(chartProjects(), allowlist)
	require.NotNil(t, chart)

	assert.Equal(t, []string{"ASIGNACIONES DIRECTAS", "INVERSION LOCAL"}, chart.Categories,
		"fund without rows omitted, long name shortened")
	require.Len(t, chart.Series, 3)
	assert.Equal(t, "Presupuesto", chart.Series[0].Name)
	assert.Equal(t, []float64{100, 50}, chart.Series[0].Values)
	assert.Equal(t, []float64{60, 0}, chart.Series[2].Values)
}

func TestFundComparison_Empty(t *testing.T) {
	assert.Nil(t, FundComparison(nil, allowlist))
}

func TestTopDepartments(t *testing.T) {
	chart := TopDepartments(chartProjects(), 1)
	require.NotNil(t, chart)
	assert.True(t, chart.Horizontal)
	assert.Equal(t, []string{"ANTIOQUIA"}, chart.Categories)
	assert.Equal(t, []float64{100}, chart.Series[0].Values)
}

func TestFundPie(t *testing.T) {
	pie := FundPie(chartProjects(), allowlist)
	require.NotNil(t, pie)
	assert.Equal(t, []string{"ASIGNACIONES DIRECTAS", "INVERSION LOCAL"}, pie.Labels)
	assert.Equal(t, []float64{100, 50}, pie.Values)
}

func TestApprovalGauge(t *testing.T) {
	g := ApprovalGauge(analysis.Totals{Budget: 20000, Approved: 15000})
	assert.InDelta(t, 75.0, g.Value, 0.001)
	assert.Equal(t, float64(80), g.DeltaRef)
	assert.Equal(t, float64(90), g.Threshold)
	require.Len(t, g.Steps, 3)

	zero := ApprovalGauge(analysis.Totals{})
	assert.Zero(t, zero.Value, "zero budget reads as 0%, not a division error")
}

func TestBudgetTreemap(t *testing.T) {
	tm := BudgetTreemap(chartProjects())
	require.NotNil(t, tm)
	require.Len(t, tm.Roots, 2)

	directas := tm.Roots[0]
	assert.Equal(t, "ASIGNACIONES DIRECTAS", directas.Label)
	assert.Equal(t, float64(100), directas.Value)
	require.Len(t, directas.Children, 1)
	assert.Equal(t, "ANTIOQUIA", directas.Children[0].Label)
	assert.Equal(t, "MEDELLIN", directas.Children[0].Children[0].Label)
}

func TestVigenciaComparison_NeedsTwoPeriods(t *testing.T) {
	single := chartProjects()[:1]
	assert.Nil(t, VigenciaComparison(single))

	chart := VigenciaComparison(chartProjects())
	require.NotNil(t, chart)
	assert.Equal(t, []string{"2023-2024", "2025-2026"}, chart.Categories)
}

func TestBuild(t *testing.T) {
	b := Build(chartProjects(), allowlist, 10)
	assert.NotNil(t, b.FundComparison)
	assert.NotNil(t, b.ApprovalGauge)
	assert.NotNil(t, b.Treemap)
}
