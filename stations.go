package main

import (
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"golang.org/x/text/cases"
)

var surreyStations = []Station{
	{Name: "Wimbledon", Code: "WIM"},
	{Name: "Guildford", Code: "GLD"},
	{Name: "Woking", Code: "WOK"},
	{Name: "Epsom", Code: "EPS"},
	{Name: "Redhill", Code: "RDH"},
	{Name: "Staines", Code: "SNN"},
	{Name: "Dorking", Code: "DKG"},
	{Name: "Reigate", Code: "REI"},
	{Name: "Camberley", Code: "CAM"},
	{Name: "Leatherhead", Code: "LHD"},
	{Name: "Weybridge", Code: "WYB"},
	{Name: "Farnham", Code: "FNH"},
}

// Stations returns a copy of the registry in display order.
func Stations() []Station {
	return append([]Station(nil), surreyStations...)
}

// DefaultStation is the station a new board starts on.
func DefaultStation() Station {
	return surreyStations[0]
}

// LookupStation finds a registry entry by name or code, ignoring case.
func LookupStation(query string) (Station, error) {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	st, ok := lo.Find(surreyStations, func(s Station) bool {
		return fold.String(s.Name) == q || (s.Code != "" && fold.String(s.Code) == q)
	})
	if !ok {
		return Station{}, failure.New(UnknownStation,
			failure.Message("Unknown station"),
			failure.Context{"station": query},
		)
	}
	return st, nil
}

// stationFlag is a pflag.Value restricted to registry stations.
type stationFlag struct {
	Station Station
}

func (f *stationFlag) String() string {
	return f.Station.Name
}

func (f *stationFlag) Set(value string) error {
	st, err := LookupStation(value)
	if err != nil {
		return err
	}
	f.Station = st
	return nil
}

func (f *stationFlag) Type() string {
	return "station"
}

var _ pflag.Value = &stationFlag{}
