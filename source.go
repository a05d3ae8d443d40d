package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/morikuni/failure/v2"
)

// DepartureSource obtains a normalized board for one station. Implementations
// make a single attempt and return no partial data on failure.
type DepartureSource interface {
	Fetch(ctx context.Context, st Station) (*StationData, error)
}

// newSource picks the departure source from configuration: one feed URL
// selects that feed, none selects the generative source.
func newSource(ctx context.Context, cfg *Config) (DepartureSource, error) {
	httpClient := cfg.httpClient()
	switch {
	case cfg.GtfsRtURL != "":
		return NewGtfsRtDepartureSource(cfg.GtfsRtURL, httpClient), nil
	case cfg.SiriXMLURL != "":
		return NewSiriXmlDepartureSource(cfg.SiriXMLURL, httpClient), nil
	case cfg.SiriJSONURL != "":
		return NewSiriJsonDepartureSource(cfg.SiriJSONURL, httpClient), nil
	}
	gen, err := newGenaiGenerator(ctx, cfg.APIKey, cfg.Model, httpClient)
	if err != nil {
		return nil, failure.Wrap(err)
	}
	return NewAIDepartureSource(gen), nil
}

// feedURL substitutes the station reference into a URL template.
func feedURL(template string, st Station) string {
	return strings.ReplaceAll(template, "{station}", url.QueryEscape(st.ref()))
}

// getFeed performs a GET and returns the body of a 200 response.
func getFeed(ctx context.Context, client *http.Client, target, kind string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s http status: %d", kind, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// fetchFailed translates any fetch-cycle error into the single user-facing kind.
func fetchFailed(err error, st Station) error {
	return failure.Translate(err, FetchFailed,
		failure.Message(fetchFailedMessage),
		failure.Context{"station": st.Name},
	)
}
