package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"regalias/internal/analysis"
	"regalias/internal/charts"
	"regalias/internal/core"
	"regalias/internal/dataset"
	"regalias/internal/export"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "path", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Title   string
		Dataset string
	}{
		Title:   "Dashboard SGR - Sistema General de Regalías",
		Dataset: s.datasetID,
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// load fetches the dataset and applies the allow-list plus user filters.
func (s *Server) load(r *http.Request) (*dataset.Result, core.Filter, []core.Project, error) {
	filter := parseFilter(r)
	res, err := s.loader.Load(r.Context())
	if err != nil {
		return nil, filter, nil, err
	}
	filtered := analysis.ApplyFilters(res.Projects, s.allowlist, filter)
	return res, filter, filtered, nil
}

// respKey namespaces a cached response by endpoint, filter and dataset
// generation.
func respKey(endpoint string, f core.Filter, res *dataset.Result) string {
	return endpoint + "|" + f.Key() + "|" + res.FetchedAt.Format(time.RFC3339Nano)
}

type summaryData struct {
	Rows           int    `json:"rows"`
	Entities       int    `json:"entities"`
	Departments    int    `json:"departments"`
	NumProjects    int64  `json:"num_projects"`
	BudgetCents    int64  `json:"budget_cents"`
	ApprovedCents  int64  `json:"approved_cents"`
	PendingCents   int64  `json:"pending_cents"`
	BudgetAbbrev   string `json:"budget_abbrev"`
	ApprovedAbbrev string `json:"approved_abbrev"`
	PendingAbbrev  string `json:"pending_abbrev"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, filter, filtered, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	body, err := s.cachedResponse(respKey("summary", filter, res), func() ([]byte, error) {
		totals := analysis.Sum(filtered)
		depts := make(map[string]struct{})
		entities := make(map[string]struct{})
		for _, p := range filtered {
			depts[p.Department] = struct{}{}
			entities[p.Entity] = struct{}{}
		}
		data := summaryData{
			Rows:           totals.Rows,
			Entities:       len(entities),
			Departments:    len(depts),
			NumProjects:    totals.NumProjects,
			BudgetCents:    totals.Budget,
			ApprovedCents:  totals.Approved,
			PendingCents:   totals.Pending,
			BudgetAbbrev:   core.FormatAbbrev(totals.Budget),
			ApprovedAbbrev: core.FormatAbbrev(totals.Approved),
			PendingAbbrev:  core.FormatAbbrev(totals.Pending),
		}
		return marshalEnvelope(data, res.Warnings, res.Stale, res.FetchedAt)
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	res, filter, _, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	body, err := s.cachedResponse(respKey("filters", filter, res), func() ([]byte, error) {
		// Options come from the allow-listed table before user filters, so a
		// selection never erases its own alternatives.
		allowed := analysis.ApplyFilters(res.Projects, s.allowlist, core.Filter{})
		opts := analysis.Options(allowed, filter.Departments)
		return marshalEnvelope(opts, res.Warnings, res.Stale, res.FetchedAt)
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

type tableRow struct {
	Fund        string   `json:"fondo"`
	Department  string   `json:"departamento"`
	Entity      string   `json:"entidad"`
	Vigencia    string   `json:"vigencia"`
	Budget      *float64 `json:"presupuesto"`
	Approved    *float64 `json:"aprobado"`
	Pending     *float64 `json:"saldo_pendiente"`
	NumProjects int64    `json:"proyectos"`
}

func moneyPtr(m core.Money) *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Pesos()
	return &v
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	res, filter, filtered, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	body, err := s.cachedResponse(respKey("table", filter, res), func() ([]byte, error) {
		rows := make([]tableRow, len(filtered))
		for i, p := range filtered {
			rows[i] = tableRow{
				Fund:        p.Fund,
				Department:  p.Department,
				Entity:      p.Entity,
				Vigencia:    p.Vigencia,
				Budget:      moneyPtr(p.Budget),
				Approved:    moneyPtr(p.Approved),
				Pending:     moneyPtr(p.Pending),
				NumProjects: p.NumProjects,
			}
		}
		return marshalEnvelope(rows, res.Warnings, res.Stale, res.FetchedAt)
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	res, filter, filtered, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	body, err := s.cachedResponse(respKey("charts", filter, res), func() ([]byte, error) {
		bundle := charts.Build(filtered, s.allowlist, 10)
		return marshalEnvelope(bundle, res.Warnings, res.Stale, res.FetchedAt)
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMapDepartments(w http.ResponseWriter, r *http.Request) {
	res, filter, filtered, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	body, err := s.cachedResponse(respKey("map-depts", filter, res), func() ([]byte, error) {
		warnings := res.Warnings

		fc, geoErr := s.geo.Boundaries()
		if geoErr != nil {
			slog.ErrorContext(r.Context(), "Boundary load failed", "error", geoErr)
			warnings = append(warnings, "No se pudo cargar el mapa de departamentos.")
			return marshalEnvelope(nil, warnings, res.Stale, res.FetchedAt)
		}

		units := analysis.DepartmentUnits(analysis.ByDepartment(filtered), fc, s.resolve)
		layer := charts.DepartmentChoropleth(units, s.view)

		data := struct {
			Layer    *charts.ChoroplethLayer `json:"layer"`
			GeoJSON  json.RawMessage         `json:"geojson"`
			Rendered int                     `json:"rendered"`
		}{Layer: layer, Rendered: len(units)}
		if raw, err := json.Marshal(fc); err == nil {
			data.GeoJSON = raw
		}
		return marshalEnvelope(data, warnings, res.Stale, res.FetchedAt)
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMapMunicipalities(w http.ResponseWriter, r *http.Request) {
	res, filter, filtered, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	body, err := s.cachedResponse(respKey("map-munis", filter, res), func() ([]byte, error) {
		warnings := res.Warnings

		munis, geoErr := s.geo.Municipalities()
		if geoErr != nil {
			slog.ErrorContext(r.Context(), "Municipality table load failed", "error", geoErr)
			warnings = append(warnings, "No se pudo cargar el mapa de municipios.")
			return marshalEnvelope(nil, warnings, res.Stale, res.FetchedAt)
		}

		points, unmatched := analysis.MunicipalityPoints(analysis.ByEntity(filtered), munis)
		layer := charts.MunicipalityScatter(points)
		if unmatched > 0 {
			slog.DebugContext(r.Context(), "Entities without coordinates omitted", "count", unmatched)
		}

		data := struct {
			Layer    *charts.ScatterLayer `json:"layer"`
			Rendered int                  `json:"rendered"`
			Omitted  int                  `json:"omitted"`
		}{Layer: layer, Rendered: len(points), Omitted: unmatched}
		return marshalEnvelope(data, warnings, res.Stale, res.FetchedAt)
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	_, _, filtered, err := s.load(r)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}

	switch format {
	case "xlsx":
		data, err := export.XLSX(filtered)
		if err != nil {
			slog.ErrorContext(r.Context(), "Excel export failed", "error", err, "rows", len(filtered))
			writeError(w, r, http.StatusInternalServerError, "error generando archivo")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename("xlsx", time.Now())))
		_, _ = w.Write(data)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename("csv", time.Now())))
		if err := export.CSV(w, filtered); err != nil {
			slog.ErrorContext(r.Context(), "CSV export failed", "error", err, "rows", len(filtered))
		}
	default:
		writeError(w, r, http.StatusBadRequest, "formato no soportado: "+format)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.refresher == nil {
		writeError(w, r, http.StatusServiceUnavailable, "refresh no disponible")
		return
	}

	res, err := s.refresher.Refresh(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Refresh failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	atomic.AddInt64(&s.appMetrics.refreshes, 1)

	data := struct {
		Rows  int  `json:"rows"`
		Stale bool `json:"stale"`
	}{Rows: len(res.Projects), Stale: res.Stale}
	body, err := marshalEnvelope(data, res.Warnings, res.Stale, res.FetchedAt)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "error interno")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.geo.Municipalities(); err != nil {
		checks["divipola"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["divipola"] = "ok"
	}

	checks["response_cache"] = map[string]any{
		"entries": s.responses.Size(),
		"status":  "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application metrics in plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	cacheHits := atomic.LoadInt64(&s.appMetrics.cacheHits)
	cacheMisses := atomic.LoadInt64(&s.appMetrics.cacheMisses)
	refreshes := atomic.LoadInt64(&s.appMetrics.refreshes)
	rateLimitHits := atomic.LoadInt64(&s.secMetrics.rateLimitHits)
	suspicious := atomic.LoadInt64(&s.secMetrics.suspiciousRequests)
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP response_cache_hits_total Total response cache hits\n")
	fmt.Fprintf(w, "# TYPE response_cache_hits_total counter\n")
	fmt.Fprintf(w, "response_cache_hits_total %d\n\n", cacheHits)

	fmt.Fprintf(w, "# HELP response_cache_misses_total Total response cache misses\n")
	fmt.Fprintf(w, "# TYPE response_cache_misses_total counter\n")
	fmt.Fprintf(w, "response_cache_misses_total %d\n\n", cacheMisses)

	fmt.Fprintf(w, "# HELP response_cache_entries Current response cache entries\n")
	fmt.Fprintf(w, "# TYPE response_cache_entries gauge\n")
	fmt.Fprintf(w, "response_cache_entries %d\n\n", s.responses.Size())

	fmt.Fprintf(w, "# HELP dataset_refreshes_total Total forced dataset refreshes\n")
	fmt.Fprintf(w, "# TYPE dataset_refreshes_total counter\n")
	fmt.Fprintf(w, "dataset_refreshes_total %d\n\n", refreshes)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", suspicious)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}
