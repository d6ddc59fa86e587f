package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"regalias/internal/config"
	"regalias/internal/core"
)

func money(pesos int64) core.Money {
	return core.Money{Cents: pesos * 100, Valid: true}
}

func sampleProjects() []core.Project {
	return []core.Project{
		{Fund: "ASIGNACIONES DIRECTAS", Department: "ANTIOQUIA", Entity: "MEDELLIN", EntityCode: 5001, Vigencia: "2023-2024", Budget: money(100), Approved: money(40), Pending: money(60), NumProjects: 2},
		{Fund: "ASIGNACION PARA LA INVERSION LOCAL", Department: "ANTIOQUIA", Entity: "ENVIGADO", EntityCode: 5266, Vigencia: "2023-2024", Budget: money(50), Approved: money(50), Pending: money(0), NumProjects: 1},
		{Fund: "ASIGNACION PARA LA INVERSION LOCAL -  AMBIENTE Y DESARROLLO SOSTENIBLE", Department: "CHOCO", Entity: "QUIBDO", EntityCode: 27001, Vigencia: "2025-2026", Budget: money(200), Approved: money(20), Pending: money(180), NumProjects: 4},
		{Fund: "FONDO NO LISTADO", Department: "CHOCO", Entity: "ISTMINA", EntityCode: 27361, Vigencia: "2025-2026", Budget: money(999), Approved: money(999)},
	}
}

func TestApplyFilters_AllowlistFirst(t *testing.T) {
	out := ApplyFilters(sampleProjects(), config.FondosInteres, core.Filter{})

	assert.Len(t, out, 3, "non-allow-listed fund must be excluded")
	for _, p := range out {
		assert.NotEqual(t, "FONDO NO LISTADO", p.Fund)
	}
}

func TestApplyFilters_DoubleSpaceFundSurvivesNormalization(t *testing.T) {
	// Simulate upstream normalizing the double space away: the row must
	// still pass the allow-list.
	rows := []core.Project{{
		Fund:   "ASIGNACION PARA LA INVERSION LOCAL - AMBIENTE Y DESARROLLO SOSTENIBLE",
		Entity: "QUIBDO",
	}}
	out := ApplyFilters(rows, config.FondosInteres, core.Filter{})
	assert.Len(t, out, 1)
}

func TestApplyFilters_UserFiltersAreConjunctive(t *testing.T) {
	out := ApplyFilters(sampleProjects(), config.FondosInteres, core.Filter{
		Departments: []string{"ANTIOQUIA"},
		Search:      "envi",
	})
	assert.Len(t, out, 1)
	assert.Equal(t, "ENVIGADO", out[0].Entity)
}

func TestApplyFilters_VigenciaFilter(t *testing.T) {
	out := ApplyFilters(sampleProjects(), config.FondosInteres, core.Filter{Vigencia: "2025-2026"})
	assert.Len(t, out, 1)
	assert.Equal(t, "QUIBDO", out[0].Entity)
}

func TestAllowedEntities_CascadesFromDepartments(t *testing.T) {
	projects := sampleProjects()

	all := AllowedEntities(projects, nil)
	assert.Equal(t, []string{"ENVIGADO", "ISTMINA", "MEDELLIN", "QUIBDO"}, all)

	antioquia := AllowedEntities(projects, []string{"ANTIOQUIA"})
	assert.Equal(t, []string{"ENVIGADO", "MEDELLIN"}, antioquia)

	// Cascading invariant: the restricted set is a subset of the full set.
	full := make(map[string]struct{})
	for _, e := range all {
		full[e] = struct{}{}
	}
	for _, e := range antioquia {
		_, ok := full[e]
		assert.True(t, ok, "entity %q not in the unrestricted set", e)
	}
}

func TestOptions(t *testing.T) {
	filtered := ApplyFilters(sampleProjects(), config.FondosInteres, core.Filter{})
	opts := Options(filtered, []string{"CHOCO"})

	assert.Len(t, opts.Funds, 3)
	assert.Equal(t, []string{"2023-2024", "2025-2026"}, opts.Vigencias)
	assert.Equal(t, []string{"ANTIOQUIA", "CHOCO"}, opts.Departments)
	assert.Equal(t, []string{"QUIBDO"}, opts.Entities)
}
