package http

import (
	"net/http"
	"strings"

	"regalias/internal/core"
)

// parseFilter reads the filter set from query parameters. Multi-valued
// criteria accept both repeated parameters and comma-separated lists.
func parseFilter(r *http.Request) core.Filter {
	q := r.URL.Query()
	return core.Filter{
		Fund:        sanitizeInput(q.Get("fondo")),
		Vigencia:    sanitizeInput(q.Get("vigencia")),
		Departments: parseMulti(q["departamento"]),
		Entities:    parseMulti(q["entidad"]),
		Search:      sanitizeInput(q.Get("q")),
	}
}

func parseMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if clean := sanitizeInput(part); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
