// Package fred fetches observation series from the FRED statistics API,
// or from a local mirror of FRED downloads when no API key is configured.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/macrochart/internal/adapters/source/csvsource"
	"github.com/okian/macrochart/internal/domain/align"
	"github.com/okian/macrochart/internal/domain/reshape"
	"github.com/okian/macrochart/internal/domain/series"
	"github.com/okian/macrochart/pkg/metrics"
)

const (
	defaultBaseURL   = "https://api.stlouisfed.org/fred"
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "macrochart/1.0"
	// maxErrorBody caps how much of an error response is quoted.
	maxErrorBody = 512
)

// Remote resolves a series identifier to its observations.
type Remote interface {
	Series(ctx context.Context, id string) (*series.Series, error)
}

// Client calls the series/observations endpoint.
type Client struct {
	apiKey    string
	baseURL   string
	timeout   time.Duration
	userAgent string
	http      *http.Client
}

// NewClient creates a client authenticated by apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    strings.TrimSpace(apiKey),
		baseURL:   defaultBaseURL,
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		http:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type observationsResponse struct {
	Frequency    string        `json:"frequency_short"`
	Observations []observation `json:"observations"`
}

type observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type apiError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

// Series fetches every observation of id at its native frequency. FRED
// marks missing observations with "."; they become Missing values.
func (c *Client) Series(ctx context.Context, id string) (*series.Series, error) {
	if c.apiKey == "" {
		return nil, ErrNoCredential
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("series_id", id)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	endpoint := strings.TrimRight(c.baseURL, "/") + "/series/observations?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordSourceError("fred")
		return nil, fmt.Errorf("%w: %s: %w", ErrRequest, id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		metrics.RecordSourceError("fred")
		return nil, fmt.Errorf("%w: %s: %s", ErrSeriesNotFound, id, errorMessage(resp.Body))
	case resp.StatusCode != http.StatusOK:
		metrics.RecordSourceError("fred")
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrRequest, id, resp.StatusCode, errorMessage(resp.Body))
	}

	var body observationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.RecordSourceError("fred")
		return nil, fmt.Errorf("%w: decode %s: %w", ErrRequest, id, err)
	}
	grain, sub := frequency(body.Frequency)
	s, err := series.NewSeries(id, grain, points(body.Observations, grain, sub))
	if err != nil {
		return nil, err
	}
	metrics.RecordRowsLoaded("fred", s.Len())
	return s, nil
}

// frequency maps FRED's short frequency code to a grain. Semiannual
// observations fit monthly periods as they are; daily, weekly and biweekly
// ones are reported as sub-monthly and must be averaged per month.
func frequency(code string) (grain series.Granularity, sub bool) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "Q":
		return series.Quarterly, false
	case "A":
		return series.Annual, false
	case "M", "SA":
		return series.Monthly, false
	default:
		return series.Monthly, true
	}
}

// points anchors observations at grain. With sub set, observations falling
// in the same period are replaced by their mean; otherwise a repeated
// period is kept so NewSeries reports it.
func points(obs []observation, grain series.Granularity, sub bool) []series.Point {
	out := make([]series.Point, 0, len(obs))
	var groups [][]series.Value
	at := make(map[series.Period]int)
	for _, o := range obs {
		d, err := time.Parse(series.DateLayout, o.Date)
		if err != nil {
			continue
		}
		v := series.NA()
		if f, ok := reshape.ParseNumber(o.Value); ok {
			v = series.Of(f)
		}
		p := series.At(d, grain)
		if i, ok := at[p]; ok && sub {
			groups[i] = append(groups[i], v)
			continue
		}
		at[p] = len(out)
		out = append(out, series.Point{Period: p})
		groups = append(groups, []series.Value{v})
	}
	for i := range out {
		out[i].Value = align.Mean(groups[i]...)
	}
	return out
}

func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var e apiError
	if json.Unmarshal(raw, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(raw))
}

// Mirror serves series from FRED CSV downloads named <id>.csv in a
// directory, for offline runs.
type Mirror struct {
	Dir   string
	Grain series.Granularity
}

// Series reads <Dir>/<id>.csv.
func (m Mirror) Series(ctx context.Context, id string) (*series.Series, error) {
	grain := m.Grain
	if grain == 0 {
		grain = series.Monthly
	}
	t, err := csvsource.LoadSeries(ctx, filepath.Join(m.Dir, id+".csv"), csvsource.SeriesOptions{
		ValueColumns: []string{id},
		Grain:        grain,
	})
	if err != nil {
		metrics.RecordSourceError("mirror")
		return nil, err
	}
	return series.Extract(t, id, "")
}
