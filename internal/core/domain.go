package core

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAmount   = errors.New("invalid monetary amount")
	ErrInvalidDaneCode = errors.New("invalid DANE code")
	ErrNoData          = errors.New("no data available")
)

type (
	// Project is one funded SGR project row after normalization.
	Project struct {
		Fund         string // nombrefondo, literal upstream spelling
		FundCode     string // codigofondo
		Department   string // nombredepartamento
		DeptCode     int    // codigodanedepartamento, normalized (divided by 1000)
		Entity       string // nombreentidad
		EntityCode   int64  // codigodaneentidad, normalized
		Vigencia     string // budget year/period
		RegionalPool string // nombrebolsaregional
		Budget       Money  // presupuestosgrinversion
		Approved     Money  // recursosaprobadosasignadosspgr
		Pending      Money  // derived: max(Budget-Approved, 0)
		NumProjects  int64  // numeroproyectosaprobados, 0 when missing
	}

	// Aggregate is a recomputed per-group summary. Sums skip invalid Money.
	Aggregate struct {
		Department string
		Entity     string
		EntityCode int64

		Budget      int64 // cents
		Approved    int64 // cents
		Pending     int64 // cents
		NumProjects int64
		Rows        int
		Entities    int      // distinct entities in the group
		Funds       []string // distinct fund names, first-seen order
	}

	// Filter is the user-selected filter set. All criteria are conjunctive;
	// zero values mean "no restriction".
	Filter struct {
		Fund        string
		Vigencia    string
		Departments []string
		Entities    []string
		Search      string // case-insensitive substring over entity name
	}
)

// FundKey collapses runs of whitespace so that the allow-list entry carrying
// the upstream double-space irregularity still matches if the source ever
// normalizes its spacing.
func FundKey(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Matches reports whether the project passes every set criterion.
// The fund allow-list is not part of Filter; it is applied separately and
// unconditionally before user filters.
func (f Filter) Matches(p Project) bool {
	if f.Fund != "" && FundKey(p.Fund) != FundKey(f.Fund) {
		return false
	}
	if f.Vigencia != "" && p.Vigencia != f.Vigencia {
		return false
	}
	if len(f.Departments) > 0 && !containsString(f.Departments, p.Department) {
		return false
	}
	if len(f.Entities) > 0 && !containsString(f.Entities, p.Entity) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Entity), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Key returns a stable cache key for the filter set.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString("f=")
	b.WriteString(FundKey(f.Fund))
	b.WriteString("|v=")
	b.WriteString(f.Vigencia)
	b.WriteString("|d=")
	b.WriteString(strings.Join(f.Departments, ","))
	b.WriteString("|e=")
	b.WriteString(strings.Join(f.Entities, ","))
	b.WriteString("|s=")
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Search)))
	return b.String()
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
