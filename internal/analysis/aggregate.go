package analysis

import (
	"sort"
	"strconv"

	"regalias/internal/core"
)

// Totals are the headline numbers for the current filtered set.
type Totals struct {
	Rows        int   `json:"rows"`
	Budget      int64 `json:"budget_cents"`
	Approved    int64 `json:"approved_cents"`
	Pending     int64 `json:"pending_cents"`
	NumProjects int64 `json:"num_projects"`
}

// Sum computes the filtered-set totals. Invalid monetary values do not
// contribute.
func Sum(projects []core.Project) Totals {
	t := Totals{Rows: len(projects)}
	for _, p := range projects {
		if p.Budget.Valid {
			t.Budget += p.Budget.Cents
		}
		if p.Approved.Valid {
			t.Approved += p.Approved.Cents
		}
		if p.Pending.Valid {
			t.Pending += p.Pending.Cents
		}
		t.NumProjects += p.NumProjects
	}
	return t
}

// aggregate groups rows by key, summing monetary fields over valid values
// only and collecting distinct funds and entities per group. Group order is
// first-seen, which keeps results deterministic for a given input order.
func aggregate(projects []core.Project, keyOf func(core.Project) string) []core.Aggregate {
	index := make(map[string]int)
	var order []string
	groups := make(map[string]*core.Aggregate)
	entities := make(map[string]map[string]struct{})
	funds := make(map[string]map[string]struct{})

	for _, p := range projects {
		key := keyOf(p)
		agg, ok := groups[key]
		if !ok {
			agg = &core.Aggregate{
				Department: p.Department,
				Entity:     p.Entity,
				EntityCode: p.EntityCode,
			}
			groups[key] = agg
			entities[key] = make(map[string]struct{})
			funds[key] = make(map[string]struct{})
			index[key] = len(order)
			order = append(order, key)
		}

		if p.Budget.Valid {
			agg.Budget += p.Budget.Cents
		}
		if p.Approved.Valid {
			agg.Approved += p.Approved.Cents
		}
		if p.Pending.Valid {
			agg.Pending += p.Pending.Cents
		}
		agg.NumProjects += p.NumProjects
		agg.Rows++

		if _, dup := funds[key][p.Fund]; !dup {
			funds[key][p.Fund] = struct{}{}
			agg.Funds = append(agg.Funds, p.Fund)
		}
		entities[key][p.Entity] = struct{}{}
	}

	out := make([]core.Aggregate, len(order))
	for _, key := range order {
		agg := groups[key]
		agg.Entities = len(entities[key])
		out[index[key]] = *agg
	}
	return out
}

// ByDepartment aggregates the filtered table per department.
func ByDepartment(projects []core.Project) []core.Aggregate {
	aggs := aggregate(projects, func(p core.Project) string { return p.Department })
	for i := range aggs {
		aggs[i].Entity = ""
		aggs[i].EntityCode = 0
	}
	return aggs
}

// ByEntity aggregates per municipality/entity DANE code.
func ByEntity(projects []core.Project) []core.Aggregate {
	return aggregate(projects, func(p core.Project) string {
		return p.Entity + "\x1f" + strconv.FormatInt(p.EntityCode, 10)
	})
}

// ByFund aggregates per fund name; the group label lands in Entity-free
// Aggregate.Funds (single element).
func ByFund(projects []core.Project) []core.Aggregate {
	aggs := aggregate(projects, func(p core.Project) string { return core.FundKey(p.Fund) })
	for i := range aggs {
		aggs[i].Department = ""
		aggs[i].Entity = ""
		aggs[i].EntityCode = 0
	}
	return aggs
}

// ByVigencia aggregates per budget period, sorted by period label.
type VigenciaAggregate struct {
	Vigencia string
	Budget   int64
	Approved int64
}

func ByVigencia(projects []core.Project) []VigenciaAggregate {
	groups := make(map[string]*VigenciaAggregate)
	for _, p := range projects {
		if p.Vigencia == "" {
			continue
		}
		agg, ok := groups[p.Vigencia]
		if !ok {
			agg = &VigenciaAggregate{Vigencia: p.Vigencia}
			groups[p.Vigencia] = agg
		}
		if p.Budget.Valid {
			agg.Budget += p.Budget.Cents
		}
		if p.Approved.Valid {
			agg.Approved += p.Approved.Cents
		}
	}

	out := make([]VigenciaAggregate, 0, len(groups))
	for _, agg := range groups {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vigencia < out[j].Vigencia })
	return out
}

// TopDepartments returns the n largest department aggregates by budget.
func TopDepartments(projects []core.Project, n int) []core.Aggregate {
	aggs := ByDepartment(projects)
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Budget > aggs[j].Budget })
	if len(aggs) > n {
		aggs = aggs[:n]
	}
	return aggs
}
