// Package export renders the filtered row-level table to downloadable
// spreadsheet formats.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"regalias/internal/config"
	"regalias/internal/core"
)

// SheetName is the single worksheet of the Excel export.
const SheetName = "Datos_SGR"

// upstreamColumns is the dataset's column order up to the last monetary
// column. The derived pending balance and the project count follow it.
var upstreamColumns = []string{
	"nombrefondo",
	"codigofondo",
	"nombredepartamento",
	"codigodanedepartamento",
	"nombreentidad",
	"codigodaneentidad",
	"nombrebolsaregional",
	"vigencia",
	"presupuestosgrinversion",
	"recursosaprobadosasignadosspgr",
}

// headers are the exported columns: the upstream order minus
// config.ColumnsToExclude, then the derived pending balance (which keeps its
// historical uppercase label) and the project count.
var headers = buildHeaders()

func buildHeaders() []string {
	excluded := make(map[string]struct{}, len(config.ColumnsToExclude))
	for _, c := range config.ColumnsToExclude {
		excluded[c] = struct{}{}
	}
	var out []string
	for _, c := range upstreamColumns {
		if _, ok := excluded[c]; ok {
			continue
		}
		out = append(out, c)
	}
	return append(out, "SALDO_PENDIENTE", "numeroproyectosaprobados")
}

// monetaryColumn reports whether a header is listed in config.MonetaryColumns.
// The derived column is configured lowercase but exported uppercase.
func monetaryColumn(name string) bool {
	for _, m := range config.MonetaryColumns {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}

type row struct {
	Fund        string `csv:"nombrefondo"`
	Department  string `csv:"nombredepartamento"`
	Entity      string `csv:"nombreentidad"`
	Vigencia    string `csv:"vigencia"`
	Budget      string `csv:"presupuestosgrinversion"`
	Approved    string `csv:"recursosaprobadosasignadosspgr"`
	Pending     string `csv:"SALDO_PENDIENTE"`
	NumProjects int64  `csv:"numeroproyectosaprobados"`
}

// moneyCell renders pesos with two decimals; missing values export empty.
func moneyCell(m core.Money) string {
	if !m.Valid {
		return ""
	}
	return strconv.FormatFloat(m.Pesos(), 'f', 2, 64)
}

func toRows(projects []core.Project) []row {
	out := make([]row, len(projects))
	for i, p := range projects {
		out[i] = row{
			Fund:        p.Fund,
			Department:  p.Department,
			Entity:      p.Entity,
			Vigencia:    p.Vigencia,
			Budget:      moneyCell(p.Budget),
			Approved:    moneyCell(p.Approved),
			Pending:     moneyCell(p.Pending),
			NumProjects: p.NumProjects,
		}
	}
	return out
}

// CSV writes the table as CSV with a header row.
func CSV(w io.Writer, projects []core.Project) error {
	if err := gocsv.Marshal(toRows(projects), w); err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	return nil
}

// XLSX renders the table as an Excel workbook with a single sheet. Monetary
// cells carry a two-decimal number format.
func XLSX(projects []core.Project) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}

	twoDecimals := 2 // built-in "0.00" format
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: twoDecimals})
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}

	for i, p := range projects {
		rowNum := i + 2
		values := []any{p.Fund, p.Department, p.Entity, p.Vigencia}
		for _, m := range []core.Money{p.Budget, p.Approved, p.Pending} {
			if m.Valid {
				values = append(values, m.Pesos())
			} else {
				values = append(values, nil)
			}
		}
		values = append(values, p.NumProjects)

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, err
			}
			if monetaryColumn(headers[col]) {
				if err := f.SetCellStyle(SheetName, cell, cell, moneyStyle); err != nil {
					return nil, err
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename builds the timestamped download name, e.g.
// "SGR_datos_filtrados_20260823_154500.xlsx".
func Filename(ext string, now time.Time) string {
	return "SGR_datos_filtrados_" + now.Format("20060102_150405") + "." + ext
}
