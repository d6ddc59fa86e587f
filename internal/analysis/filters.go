// Package analysis implements the filtering, aggregation and geographic
// join layer. Everything here is a pure function over the project table;
// the HTTP layer owns caching and the presentation layer owns rendering.
package analysis

import (
	"sort"

	"regalias/internal/core"
)

// ApplyFilters produces the row-level filtered table. The fund allow-list is
// applied first and unconditionally; user filters afterwards, all conjunctive.
func ApplyFilters(projects []core.Project, allowlist []string, f core.Filter) []core.Project {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, fund := range allowlist {
		allowed[core.FundKey(fund)] = struct{}{}
	}

	var out []core.Project
	for _, p := range projects {
		if _, ok := allowed[core.FundKey(p.Fund)]; !ok {
			continue
		}
		if !f.Matches(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AllowedEntities derives the selectable entity set for the department
// filter currently in effect: entities whose department is selected, or all
// entities when no department is selected. Stateless so the cascading
// behavior is testable without a UI harness.
func AllowedEntities(projects []core.Project, selectedDepts []string) []string {
	selected := make(map[string]struct{}, len(selectedDepts))
	for _, d := range selectedDepts {
		selected[d] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, p := range projects {
		if len(selected) > 0 {
			if _, ok := selected[p.Department]; !ok {
				continue
			}
		}
		if _, dup := seen[p.Entity]; dup || p.Entity == "" {
			continue
		}
		seen[p.Entity] = struct{}{}
		out = append(out, p.Entity)
	}
	sort.Strings(out)
	return out
}

// FilterOptions are the distinct values offered by the filter widgets,
// computed from the allow-listed table.
type FilterOptions struct {
	Funds       []string `json:"funds"`
	Vigencias   []string `json:"vigencias"`
	Departments []string `json:"departments"`
	Entities    []string `json:"entities"`
}

// Options lists the selectable values. Entities cascade from the selected
// departments.
func Options(projects []core.Project, selectedDepts []string) FilterOptions {
	funds := make(map[string]struct{})
	vigencias := make(map[string]struct{})
	depts := make(map[string]struct{})

	for _, p := range projects {
		if p.Fund != "" {
			funds[p.Fund] = struct{}{}
		}
		if p.Vigencia != "" {
			vigencias[p.Vigencia] = struct{}{}
		}
		if p.Department != "" {
			depts[p.Department] = struct{}{}
		}
	}

	return FilterOptions{
		Funds:       sortedKeys(funds),
		Vigencias:   sortedKeys(vigencias),
		Departments: sortedKeys(depts),
		Entities:    AllowedEntities(projects, selectedDepts),
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
