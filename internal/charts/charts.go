// Package charts builds chart and map layer specifications from aggregate
// tables. The structs marshal to JSON for the frontend renderer; no state is
// held here.
package charts

import (
	"strconv"
	"strings"

	"regalias/internal/analysis"
	"regalias/internal/core"
)

// Series is one named series of a bar chart. Values are pesos.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Labels []string  `json:"labels,omitempty"`
	Color  string    `json:"color,omitempty"`
}

type BarChart struct {
	Title      string   `json:"title"`
	XTitle     string   `json:"x_title,omitempty"`
	YTitle     string   `json:"y_title,omitempty"`
	Categories []string `json:"categories"`
	Series     []Series `json:"series"`
	Horizontal bool     `json:"horizontal,omitempty"`
}

type PieChart struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type GaugeStep struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Color string  `json:"color"`
}

// Gauge is the approval-percentage KPI indicator.
type Gauge struct {
	Title     string      `json:"title"`
	Value     float64     `json:"value"`
	Max       float64     `json:"max"`
	DeltaRef  float64     `json:"delta_reference"`
	BarColor  string      `json:"bar_color"`
	Steps     []GaugeStep `json:"steps"`
	Threshold float64     `json:"threshold"`
}

type TreemapNode struct {
	Label    string        `json:"label"`
	Value    float64       `json:"value"`
	Children []TreemapNode `json:"children,omitempty"`
}

type Treemap struct {
	Title string        `json:"title"`
	Roots []TreemapNode `json:"roots"`
}

// Bundle collects every chart for the active filter set. Nil members mean the
// filtered table had nothing to draw.
type Bundle struct {
	FundComparison *BarChart `json:"fund_comparison"`
	TopDepartments *BarChart `json:"top_departments"`
	FundPie        *PieChart `json:"fund_pie"`
	ApprovalGauge  *Gauge    `json:"approval_gauge"`
	Treemap        *Treemap  `json:"treemap"`
	Vigencias      *BarChart `json:"vigencias"`
}

// Build assembles the full bundle from the filtered row-level table.
func Build(projects []core.Project, allowlist []string, topN int) Bundle {
	return Bundle{
		FundComparison: FundComparison(projects, allowlist),
		TopDepartments: TopDepartments(projects, topN),
		FundPie:        FundPie(projects, allowlist),
		ApprovalGauge:  ApprovalGauge(analysis.Sum(projects)),
		Treemap:        BudgetTreemap(projects),
		Vigencias:      VigenciaComparison(projects),
	}
}

// shortFund abbreviates the long local-investment fund names so axis labels
// stay readable.
func shortFund(name string) string {
	return strings.ReplaceAll(name, "ASIGNACION PARA LA INVERSION LOCAL", "INVERSION LOCAL")
}

// FundComparison builds the grouped bar chart comparing budget, approved and
// pending per fund, in allow-list order. Returns nil when no fund has rows.
func FundComparison(projects []core.Project, allowlist []string) *BarChart {
	byFund := make(map[string]*core.Aggregate)
	for _, a := range analysis.ByFund(projects) {
		agg := a
		if len(agg.Funds) > 0 {
			byFund[core.FundKey(agg.Funds[0])] = &agg
		}
	}

	chart := &BarChart{
		Title:  "Comparacion de Fondos SGR",
		XTitle: "Tipo de Fondo",
		YTitle: "Valor (COP)",
	}
	budget := Series{Name: "Presupuesto", Color: "lightblue"}
	approved := Series{Name: "Recursos Aprobados", Color: "darkgreen"}
	pending := Series{Name: "Saldo Pendiente", Color: "coral"}

	for _, fund := range allowlist {
		agg, ok := byFund[core.FundKey(fund)]
		if !ok {
			continue
		}
		chart.Categories = append(chart.Categories, shortFund(fund))
		budget.Values = append(budget.Values, pesos(agg.Budget))
		approved.Values = append(approved.Values, pesos(agg.Approved))
		pending.Values = append(pending.Values, pesos(agg.Pending))
	}
	if len(chart.Categories) == 0 {
		return nil
	}
	chart.Series = []Series{budget, approved, pending}
	return chart
}

// TopDepartments builds the horizontal bar of the n largest departments by
// budget.
func TopDepartments(projects []core.Project, n int) *BarChart {
	top := analysis.TopDepartments(projects, n)
	if len(top) == 0 {
		return nil
	}

	chart := &BarChart{
		Title:      "Top " + strconv.Itoa(n) + " Departamentos por Presupuesto SGR",
		XTitle:     "Presupuesto (COP)",
		YTitle:     "Departamento",
		Horizontal: true,
	}
	s := Series{Name: "Presupuesto"}
	for _, a := range top {
		chart.Categories = append(chart.Categories, a.Department)
		s.Values = append(s.Values, pesos(a.Budget))
	}
	chart.Series = []Series{s}
	return chart
}

// FundPie builds the budget distribution pie, in allow-list order.
func FundPie(projects []core.Project, allowlist []string) *PieChart {
	byFund := make(map[string]int64)
	for _, a := range analysis.ByFund(projects) {
		if len(a.Funds) > 0 {
			byFund[core.FundKey(a.Funds[0])] = a.Budget
		}
	}

	pie := &PieChart{Title: "Distribucion del Presupuesto por Tipo de Fondo"}
	for _, fund := range allowlist {
		cents, ok := byFund[core.FundKey(fund)]
		if !ok {
			continue
		}
		pie.Labels = append(pie.Labels, shortFund(fund))
		pie.Values = append(pie.Values, pesos(cents))
	}
	if len(pie.Labels) == 0 {
		return nil
	}
	return pie
}

// ApprovalGauge builds the KPI gauge: approved as a percentage of budget.
// A zero budget reads as 0%.
func ApprovalGauge(t analysis.Totals) *Gauge {
	var pct float64
	if t.Budget > 0 {
		pct = float64(t.Approved) / float64(t.Budget) * 100
	}
	return &Gauge{
		Title:    "% de Recursos Aprobados vs Presupuesto",
		Value:    pct,
		Max:      100,
		DeltaRef: 80,
		BarColor: "darkgreen",
		Steps: []GaugeStep{
			{From: 0, To: 50, Color: "lightgray"},
			{From: 50, To: 80, Color: "yellow"},
			{From: 80, To: 100, Color: "lightgreen"},
		},
		Threshold: 90,
	}
}

// BudgetTreemap builds the fund > department > entity hierarchy weighted by
// budget.
func BudgetTreemap(projects []core.Project) *Treemap {
	type key struct{ fund, dept, entity string }
	sums := make(map[key]int64)
	var order []key
	for _, p := range projects {
		if !p.Budget.Valid {
			continue
		}
		k := key{shortFund(p.Fund), p.Department, p.Entity}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += p.Budget.Cents
	}
	if len(order) == 0 {
		return nil
	}

	tm := &Treemap{Title: "Distribucion Jerarquica del Presupuesto SGR"}
	fundIdx := make(map[string]int)
	deptIdx := make(map[[2]string]int)
	for _, k := range order {
		v := pesos(sums[k])

		fi, ok := fundIdx[k.fund]
		if !ok {
			fi = len(tm.Roots)
			fundIdx[k.fund] = fi
			tm.Roots = append(tm.Roots, TreemapNode{Label: k.fund})
		}
		tm.Roots[fi].Value += v

		dk := [2]string{k.fund, k.dept}
		di, ok := deptIdx[dk]
		if !ok {
			di = len(tm.Roots[fi].Children)
			deptIdx[dk] = di
			tm.Roots[fi].Children = append(tm.Roots[fi].Children, TreemapNode{Label: k.dept})
		}
		dept := &tm.Roots[fi].Children[di]
		dept.Value += v
		dept.Children = append(dept.Children, TreemapNode{Label: k.entity, Value: v})
	}
	return tm
}

// VigenciaComparison builds the per-period bar chart. A single period is not
// a comparison, so it returns nil for fewer than two vigencias.
func VigenciaComparison(projects []core.Project) *BarChart {
	aggs := analysis.ByVigencia(projects)
	if len(aggs) < 2 {
		return nil
	}

	chart := &BarChart{
		Title:  "Presupuesto por Vigencia",
		XTitle: "Vigencia",
		YTitle: "Valor (COP)",
	}
	budget := Series{Name: "Presupuesto", Color: "lightblue"}
	approved := Series{Name: "Recursos Aprobados", Color: "darkgreen"}
	for _, a := range aggs {
		chart.Categories = append(chart.Categories, a.Vigencia)
		budget.Values = append(budget.Values, pesos(a.Budget))
		approved.Values = append(approved.Values, pesos(a.Approved))
	}
	chart.Series = []Series{budget, approved}
	return chart
}

func pesos(cents int64) float64 {
	return float64(cents) / 100
}
