package config

// Socrata open-data source for SGR project records.
const (
	SocrataDomain = "www.datos.gov.co"
	DatasetID     = "g4qj-2p2e"
)

// FondosInteres is the fund allow-list the dashboard restricts analysis to.
// The double space before "AMBIENTE" is a literal artifact of the upstream
// data, not a typo. Matching is done whitespace-collapsed (see core.FundKey)
// so a future upstream cleanup does not silently drop a third of the rows.
var FondosInteres = []string{
	"ASIGNACIONES DIRECTAS",
	"ASIGNACION PARA LA INVERSION LOCAL",
	"ASIGNACION PARA LA INVERSION LOCAL -  AMBIENTE Y DESARROLLO SOSTENIBLE",
}

// DeptNameMapping maps SGR department spellings to the spellings used by the
// boundary GeoJSON. Keys are compared after accent-stripped upper-casing.
var DeptNameMapping = map[string]string{
	"ARCHIPIÉLAGO DE SAN ANDRÉS": "ARCHIPIELAGO DE SAN ANDRES PROVIDENCIA Y SANTA CATALINA",
	"ATLÁNTICO":                  "ATLANTICO",
	"BOGOTÁ D.C.":                "SANTAFE DE BOGOTA D.C",
	"BOLÍVAR":                    "BOLIVAR",
	"BOYACÁ":                     "BOYACA",
	"CAQUETÁ":                    "CAQUETA",
	"CHOCÓ":                      "CHOCO",
	"CÓRDOBA":                    "CORDOBA",
	"GUAINÍA":                    "GUAINIA",
	"QUINDÍO":                    "QUINDIO",
	"VAUPÉS":                     "VAUPES",
}

// ColumnsToExclude are source columns hidden from the table view and exports.
var ColumnsToExclude = []string{
	"codigofondo",
	"codigodanedepartamento",
	"codigodaneentidad",
	"nombrebolsaregional",
}

// MonetaryColumns are the columns rendered and exported as currency.
var MonetaryColumns = []string{
	"presupuestosgrinversion",
	"recursosaprobadosasignadosspgr",
	"saldo_pendiente",
}

// Department boundary GeoJSON: local copy first, remote fallback.
const (
	GeoJSONLocalPath = "data/colombia.geo.json"
	GeoJSONURL       = "https://gist.githubusercontent.com/john-guerra/" +
		"43c7656821069d00dcbc/raw/be6a6e239cd5b5b803c6e7c2ec405b793a9064dd/" +
		"Colombia.geo.json"
)

// DivipolaPath is the DIVIPOLA municipality coordinate table.
const DivipolaPath = "data/divipola.csv"

// Map defaults (centered on Colombia).
const (
	MapCenterLat = 4.5709
	MapCenterLon = -74.2973
	MapZoom      = 5.0
)
