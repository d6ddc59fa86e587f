package geo

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

// Boundaries returns the department polygon collection: local file first,
// remote fallback when the local copy is missing or unreadable. Cached for
// process lifetime.
func (s *Source) Boundaries() (*FeatureCollection, error) {
	if fc, ok := s.boundaries.Get("colombia"); ok {
		return fc, nil
	}

	fc, err := s.loadLocal()
	if err != nil {
		slog.Warn("Local boundary file unavailable, trying remote fallback",
			"path", s.geojsonPath,
			"error", err)
		fc, err = s.loadRemote()
		if err != nil {
			return nil, fmt.Errorf("load department boundaries: %w", err)
		}
	}

	s.boundaries.Set("colombia", fc)
	return fc, nil
}

func (s *Source) loadLocal() (*FeatureCollection, error) {
	data, err := os.ReadFile(s.geojsonPath)
	if err != nil {
		return nil, err
	}
	return decodeFeatureCollection(data)
}

func (s *Source) loadRemote() (*FeatureCollection, error) {
	resp, err := s.httpClient.Get(s.geojsonURL)
	if err != nil {
		return nil, fmt.Errorf("fetch remote GeoJSON: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote GeoJSON returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read remote GeoJSON: %w", err)
	}
	return decodeFeatureCollection(data)
}

func decodeFeatureCollection(data []byte) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode GeoJSON: %w", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) == 0 {
		return nil, fmt.Errorf("not a feature collection or empty")
	}
	return &fc, nil
}
