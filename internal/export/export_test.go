package export

import (
	"bytes"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regalias/internal/config"
	"regalias/internal/core"
)

func TestHeaders_DerivedFromConfig(t *testing.T) {
	for _, hidden := range config.ColumnsToExclude {
		assert.NotContains(t, headers, hidden)
	}
	// The csv tags of the row struct must track the derived header order.
	assert.Equal(t, []string{
		"nombrefondo",
		"nombredepartamento",
		"nombreentidad",
		"vigencia",
		"presupuestosgrinversion",
		"recursosaprobadosasignadosspgr",
		"SALDO_PENDIENTE",
		"numeroproyectosaprobados",
	}, headers)
}

func TestMonetaryColumn(t *testing.T) {
	for _, m := range config.MonetaryColumns {
		assert.True(t, monetaryColumn(m), m)
	}
	assert.True(t, monetaryColumn("SALDO_PENDIENTE"), "derived column matches case-insensitively")
	assert.False(t, monetaryColumn("vigencia"))
	assert.False(t, monetaryColumn("numeroproyectosaprobados"))
}

func exportProjects() []core.Project {
	return []core.Project{
		{
			Fund:        "ASIGNACIONES DIRECTAS",
			Department:  "ANTIOQUIA",
			Entity:      "MEDELLIN",
			Vigencia:    "2023-2024",
			Budget:      core.Money{Cents: 100050, Valid: true},
			Approved:    core.Money{Cents: 40000, Valid: true},
			Pending:     core.Money{Cents: 60050, Valid: true},
			NumProjects: 3,
		},
		{
			Fund:       "ASIGNACION PARA LA INVERSION LOCAL",
			Department: "CHOCO",
			Entity:     "QUIBDO",
			Approved:   core.Money{Cents: 25000, Valid: true},
		},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, exportProjects()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t,
		"nombrefondo,nombredepartamento,nombreentidad,vigencia,presupuestosgrinversion,recursosaprobadosasignadosspgr,SALDO_PENDIENTE,numeroproyectosaprobados",
		strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "1000.50")
	assert.Contains(t, lines[1], "600.50")

	// Missing monetary values export as empty cells, never as zero.
	fields := strings.Split(strings.TrimSpace(lines[2]), ",")
	assert.Equal(t, "", fields[4])
	assert.Equal(t, "250.00", fields[5])
}

func TestXLSX_RoundTrip(t *testing.T) {
	projects := exportProjects()
	data, err := XLSX(projects)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, len(projects)+1, "header plus one row per project")
	assert.Equal(t, "nombrefondo", rows[0][0])

	// Aggregate preservation: budget sum of the workbook matches the input.
	var sum float64
	for _, r := range rows[1:] {
		if len(r) > 4 && r[4] != "" {
			v, err := strconv.ParseFloat(r[4], 64)
			require.NoError(t, err)
			sum += v
		}
	}
	assert.InDelta(t, 1000.50, sum, 0.001)

	assert.Equal(t, "MEDELLIN", rows[1][2])
	assert.Equal(t, "3", rows[1][7])
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 23, 15, 45, 0, 0, time.UTC)
	assert.Equal(t, "SGR_datos_filtrados_20260823_154500.xlsx", Filename("xlsx", now))
}
