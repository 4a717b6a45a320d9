package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Snapshot is the run state read back from another simrun's /metrics.
type Snapshot struct {
	Active   map[string]bool
	Started  map[string]float64
	Finished map[string]map[string]float64 // code -> outcome -> count
}

// Running returns the codes with a live process, sorted.
func (s *Snapshot) Running() []string {
	var codes []string
	for code, on := range s.Active {
		if on {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Scraper reads simrun metrics over HTTP.
type Scraper struct {
	httpClient *http.Client
}

// NewScraper creates a scraper with a short timeout.
func NewScraper() *Scraper {
	return &Scraper{httpClient: &http.Client{Timeout: 5 * time.Second}}
}

// Scrape fetches url (a /metrics endpoint) and extracts the run state.
func (s *Scraper) Scrape(ctx context.Context, url string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	families, err := decodeFamilies(resp.Body)
	if err != nil {
		return nil, err
	}
	return snapshotFrom(families), nil
}

func decodeFamilies(r io.Reader) (map[string]*dto.MetricFamily, error) {
	decoder := expfmt.NewDecoder(r, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)

	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("decode error: %w", err)
		}
		families[mf.GetName()] = &mf
	}
	return families, nil
}

func snapshotFrom(families map[string]*dto.MetricFamily) *Snapshot {
	snap := &Snapshot{
		Active:   make(map[string]bool),
		Started:  make(map[string]float64),
		Finished: make(map[string]map[string]float64),
	}

	if mf, ok := families[nameActive]; ok {
		for _, m := range mf.GetMetric() {
			snap.Active[label(m, "code")] = m.GetGauge().GetValue() > 0
		}
	}
	if mf, ok := families[nameStarted]; ok {
		for _, m := range mf.GetMetric() {
			snap.Started[label(m, "code")] = m.GetCounter().GetValue()
		}
	}
	if mf, ok := families[nameFinished]; ok {
		for _, m := range mf.GetMetric() {
			code := label(m, "code")
			if snap.Finished[code] == nil {
				snap.Finished[code] = make(map[string]float64)
			}
			snap.Finished[code][label(m, "outcome")] = m.GetCounter().GetValue()
		}
	}
	return snap
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
