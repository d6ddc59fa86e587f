package geo

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// Municipalities returns the coordinate table keyed by cleaned DANE code.
// The table is read once and cached for the process lifetime.
func (s *Source) Municipalities() (map[int64]Municipality, error) {
	if m, ok := s.munis.Get("divipola"); ok {
		return m, nil
	}

	m, err := loadMunicipalities(s.divipolaPath)
	if err != nil {
		return nil, err
	}

	s.munis.Set("divipola", m)
	return m, nil
}

func loadMunicipalities(path string) (map[int64]Municipality, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open municipality table: %w", err)
	}
	defer f.Close()

	var rows []Municipality
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("decode municipality table: %w", err)
	}

	out := make(map[int64]Municipality, len(rows))
	for _, row := range rows {
		code, err := cleanCode(row.RawCode)
		if err != nil {
			// Malformed reference rows are skipped, not fatal.
			continue
		}
		row.Code = code
		out[code] = row
	}
	return out, nil
}

// cleanCode strips thousands separators from a DANE code ("5,001" -> 5001).
func cleanCode(raw string) (int64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, fmt.Errorf("empty DANE code")
	}
	return strconv.ParseInt(raw, 10, 64)
}
