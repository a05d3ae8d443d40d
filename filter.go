package main

import (
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// Filter selects which departures a board shows.
type Filter string

const FilterAll Filter = "ALL"

// parseFilter accepts ALL or one of the transport types, ignoring case.
func parseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToUpper(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case Filter(TypeTrain), Filter(TypeTube), Filter(TypeTram):
		return f, nil
	default:
		return "", failure.New(InvalidFilter,
			failure.Message("Unknown transport filter"),
			failure.Context{"filter": s},
		)
	}
}

// Visible returns the departures the filter lets through, in original order.
func Visible(departures []Departure, f Filter) []Departure {
	if f == FilterAll {
		return departures
	}
	return lo.Filter(departures, func(d Departure, _ int) bool {
		return Filter(d.Type) == f
	})
}

// AvailableFilters is ALL followed by each type present, in first-appearance order.
func AvailableFilters(departures []Departure) []Filter {
	types := lo.Uniq(lo.Map(departures, func(d Departure, _ int) Filter { return Filter(d.Type) }))
	return append([]Filter{FilterAll}, types...)
}

// ShowFilterBar reports whether there is more than one mode to choose between.
func ShowFilterBar(departures []Departure) bool {
	return len(AvailableFilters(departures)) > 2
}

// PlatformLabel is the platform as displayed; unknown platforms are TBC.
func PlatformLabel(d Departure) string {
	if d.Platform == "" {
		return "TBC"
	}
	return d.Platform
}

type StatusTone int

const (
	ToneInfo StatusTone = iota
	ToneGood
	ToneWarn
	ToneBad
)

func statusTone(status string) StatusTone {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "on time"):
		return ToneGood
	case strings.Contains(s, "delayed"):
		return ToneWarn
	case strings.Contains(s, "cancel"):
		return ToneBad
	default:
		return ToneInfo
	}
}

// BoardRow is a visible departure with its display platform.
type BoardRow struct {
	Departure
	PlatformLabel string `json:"platformLabel"`
}

// Board is the view state a client renders.
type Board struct {
	Station     Station      `json:"station"`
	Loading     bool         `json:"loading"`
	Error       string       `json:"error,omitempty"`
	Data        *StationData `json:"data"`
	Filter      Filter       `json:"filter"`
	Filters     []Filter     `json:"filters"`
	ShowFilters bool         `json:"showFilters"`
	Departures  []BoardRow   `json:"departures"`
}

func buildBoard(st Station, loading bool, errMsg string, data *StationData, f Filter) Board {
	var deps []Departure
	if data != nil {
		deps = data.Departures
	}
	filters := AvailableFilters(deps)
	// A filter for a mode this board does not offer would hide every row
	// with no way back, so the board falls back to ALL.
	if !lo.Contains(filters, f) {
		f = FilterAll
	}
	return Board{
		Station:     st,
		Loading:     loading,
		Error:       errMsg,
		Data:        data,
		Filter:      f,
		Filters:     filters,
		ShowFilters: ShowFilterBar(deps),
		Departures: lo.Map(Visible(deps, f), func(d Departure, _ int) BoardRow {
			return BoardRow{Departure: d, PlatformLabel: PlatformLabel(d)}
		}),
	}
}
