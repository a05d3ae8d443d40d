package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// TransportType is the closed set of modes a departure can have.
type TransportType string

const (
	TypeTrain TransportType = "TRAIN"
	TypeTube  TransportType = "TUBE"
	TypeTram  TransportType = "TRAM"
)

// parseTransportType coerces an upstream mode into the closed set. Anything
// unrecognized, including an empty value, is a train.
func parseTransportType(s string) TransportType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tube", "metro", "underground", "subway":
		return TypeTube
	case "tram", "lightrail", "light_rail", "tramlink":
		return TypeTram
	default:
		return TypeTrain
	}
}

// Station is an entry of the static registry. Identity is the name.
type Station struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// ref is what feed sources substitute into their URL templates.
func (s Station) ref() string {
	if s.Code != "" {
		return s.Code
	}
	return s.Name
}

// Departure is one service leaving a station, normalized from upstream data.
type Departure struct {
	ID          string        `json:"id"`
	Destination string        `json:"destination"`
	Time        string        `json:"time"`
	Platform    string        `json:"platform"`
	Status      string        `json:"status"`
	Operator    string        `json:"operator"`
	Type        TransportType `json:"type"`
	ETA         string        `json:"eta,omitempty"`
}

// Source is a grounding citation attached to a fetch result.
type Source struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// StationData is the result of one fetch cycle.
type StationData struct {
	StationName string      `json:"stationName,omitempty"`
	LastUpdated string      `json:"lastUpdated"`
	FetchedAt   time.Time   `json:"fetchedAt"`
	Departures  []Departure `json:"departures"`
	Sources     []Source    `json:"sources"`
}

// rawDeparture is the shape every source produces before normalization.
type rawDeparture struct {
	Destination looseString `json:"destination"`
	Time        looseString `json:"time"`
	Platform    looseString `json:"platform"`
	Status      looseString `json:"status"`
	Operator    looseString `json:"operator"`
	Type        looseString `json:"type"`
	ETA         looseString `json:"eta"`
}

// newStationData assembles a fetch result. Departure ids are derived from the
// response ordinal and the fetch time, so they are unique within one result only.
func newStationData(st Station, raw []rawDeparture, sources []Source, fetchedAt time.Time) *StationData {
	stamp := fetchedAt.UnixMilli()
	deps := make([]Departure, 0, len(raw))
	for i, r := range raw {
		deps = append(deps, Departure{
			ID:          fmt.Sprintf("dep-%d-%d", i, stamp),
			Destination: strings.TrimSpace(string(r.Destination)),
			Time:        strings.TrimSpace(string(r.Time)),
			Platform:    strings.TrimSpace(string(r.Platform)),
			Status:      strings.TrimSpace(string(r.Status)),
			Operator:    strings.TrimSpace(string(r.Operator)),
			Type:        parseTransportType(string(r.Type)),
			ETA:         strings.TrimSpace(string(r.ETA)),
		})
	}
	return &StationData{
		StationName: st.Name,
		LastUpdated: fetchedAt.Format("15:04:05"),
		FetchedAt:   fetchedAt,
		Departures:  deps,
		Sources:     dedupeSources(sources),
	}
}

func dedupeSources(in []Source) []Source {
	valid := lo.Filter(in, func(s Source, _ int) bool { return s.URI != "" })
	return lo.UniqBy(valid, func(s Source) string { return s.URI })
}

// departureStatus picks the display status for feeds that report aimed and
// expected times rather than a status string.
func departureStatus(explicit string, aimed, expected time.Time) (status, eta string) {
	if !expected.IsZero() && !aimed.IsZero() && expected.After(aimed.Add(59*time.Second)) {
		eta = expected.Local().Format("15:04")
		if explicit == "" {
			explicit = "Delayed"
		}
	}
	if explicit == "" {
		explicit = "On time"
	}
	return explicit, eta
}

// looseString accepts JSON strings, numbers and booleans as text and treats
// null as empty. Extraction responses are not strict about platform numbers.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = looseString(t)
	case float64:
		*s = looseString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = looseString(strconv.FormatBool(t))
	default:
		return fmt.Errorf("unsupported JSON value %s", string(b))
	}
	return nil
}
