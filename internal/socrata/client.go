// Package socrata is a minimal client for Socrata open-data resource
// endpoints (datos.gov.co). It pages through a dataset with offset/limit
// query parameters and retries transient failures with increasing backoff.
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Record is one raw SGR project row as delivered by the API. Every field is
// a string; coercion happens downstream in the dataset loader.
type Record struct {
	CodigoFondo           string `json:"codigofondo"`
	NombreFondo           string `json:"nombrefondo"`
	CodigoDaneDepto       string `json:"codigodanedepartamento"`
	NombreDepartamento    string `json:"nombredepartamento"`
	CodigoDaneEntidad     string `json:"codigodaneentidad"`
	NombreEntidad         string `json:"nombreentidad"`
	Vigencia              string `json:"vigencia"`
	NombreBolsaRegional   string `json:"nombrebolsaregional"`
	PresupuestoInversion  string `json:"presupuestosgrinversion"`
	RecursosAprobados     string `json:"recursosaprobadosasignadosspgr"`
	NumProyectosAprobados string `json:"numeroproyectosaprobados"`
}

type Client struct {
	baseURL    string
	datasetID  string
	rowLimit   int
	maxPages   int
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the resource base URL, primarily for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

func WithPaging(rowLimit, maxPages int) Option {
	return func(c *Client) {
		c.rowLimit = rowLimit
		c.maxPages = maxPages
	}
}

func NewClient(domain, datasetID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://" + domain + "/resource",
		datasetID:  datasetID,
		rowLimit:   5000,
		maxPages:   50,
		maxRetries: 3,
		backoff:    2 * time.Second,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAll retrieves the full dataset. Paging stops when a page returns
// fewer rows than the configured limit, or when the max page count is
// reached. The second return value is the number of rows fetched.
func (c *Client) FetchAll(ctx context.Context) ([]Record, int, error) {
	var all []Record

	for page := 0; page < c.maxPages; page++ {
		offset := page * c.rowLimit

		batch, err := c.fetchPage(ctx, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}

		all = append(all, batch...)
		if len(batch) < c.rowLimit {
			break
		}
	}

	return all, len(all), nil
}

// fetchPage fetches one page, retrying transient failures with linearly
// increasing backoff (attempt × base).
func (c *Client) fetchPage(ctx context.Context, offset int) ([]Record, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		batch, err := c.doFetch(ctx, offset)
		if err == nil {
			return batch, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < c.maxRetries {
			wait := time.Duration(attempt) * c.backoff
			slog.WarnContext(ctx, "Socrata page fetch failed, retrying",
				"offset", offset,
				"attempt", attempt,
				"backoff", wait,
				"error", err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doFetch(ctx context.Context, offset int) ([]Record, error) {
	q := url.Values{}
	q.Set("$limit", strconv.Itoa(c.rowLimit))
	q.Set("$offset", strconv.Itoa(offset))
	endpoint := fmt.Sprintf("%s/%s.json?%s", c.baseURL, c.datasetID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var batch []Record
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return batch, nil
}
