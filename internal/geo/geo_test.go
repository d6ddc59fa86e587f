package geo

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const divipolaSample = `COD_MPIO,NOM_MPIO,NOM_DPTO,LATITUD,LONGITUD
5001,MEDELLIN,ANTIOQUIA,6.2442,-75.5812
"11,001",BOGOTA D.C.,SANTAFE DE BOGOTA D.C,4.6097,-74.0817
bogus,SIN CODIGO,NINGUNO,0,0
`

const geojsonSample = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"NOMBRE_DPT": "ANTIOQUIA"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}
    }
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMunicipalities(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "divipola.csv", divipolaSample)

	src := NewSource(path, "", "")
	m, err := src.Municipalities()
	if err != nil {
		t.Fatalf("Municipalities: %v", err)
	}

	if len(m) != 2 {
		t.Fatalf("got %d municipalities, want 2 (bogus row skipped)", len(m))
	}
	med, ok := m[5001]
	if !ok {
		t.Fatal("missing code 5001")
	}
	if med.Name != "MEDELLIN" || med.Latitude != 6.2442 {
		t.Fatalf("unexpected row: %+v", med)
	}
	if _, ok := m[11001]; !ok {
		t.Fatal("comma-separated code 11,001 was not cleaned to 11001")
	}
}

func TestMunicipalities_CachedAfterFirstLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "divipola.csv", divipolaSample)

	src := NewSource(path, "", "")
	if _, err := src.Municipalities(); err != nil {
		t.Fatal(err)
	}

	// Removing the file must not matter: the table is process-lifetime cached.
	os.Remove(path)
	m, err := src.Municipalities()
	if err != nil {
		t.Fatalf("cached Municipalities: %v", err)
	}
	if len(m) != 2 {
		t.Fatalf("cached table has %d rows, want 2", len(m))
	}
}

func TestMunicipalities_MissingFile(t *testing.T) {
	src := NewSource("does/not/exist.csv", "", "")
	if _, err := src.Municipalities(); err == nil {
		t.Fatal("expected error for missing reference file")
	}
}

func TestBoundaries_Local(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "colombia.geo.json", geojsonSample)

	src := NewSource("", path, "")
	fc, err := src.Boundaries()
	if err != nil {
		t.Fatalf("Boundaries: %v", err)
	}
	if len(fc.Features) != 1 || fc.Features[0].DeptName() != "ANTIOQUIA" {
		t.Fatalf("unexpected collection: %+v", fc)
	}
}

func TestBoundaries_RemoteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(geojsonSample))
	}))
	defer srv.Close()

	src := NewSource("", "does/not/exist.geo.json", srv.URL)
	fc, err := src.Boundaries()
	if err != nil {
		t.Fatalf("Boundaries with fallback: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
}

func TestBoundaries_BothSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewSource("", "does/not/exist.geo.json", srv.URL)
	if _, err := src.Boundaries(); err == nil {
		t.Fatal("expected error when both sources fail")
	}
}
