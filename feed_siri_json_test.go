package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/morikuni/failure/v2"
)

func localHHMM(t *testing.T, ts string) string {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t.Fatalf("bad fixture time %q: %v", ts, err)
	}
	return parsed.Local().Format("15:04")
}

// ignoreIDs leaves id uniqueness to the normalization tests.
var ignoreIDs = cmpopts.IgnoreFields(Departure{}, "ID")

func TestSiriJsonDepartureSource_Fetch(t *testing.T) {
	mockJSON := `{
		"Siri": {
			"ServiceDelivery": {
				"StopMonitoringDelivery": [{
					"MonitoredStopVisit": [
						{
							"MonitoredVehicleJourney": {
								"LineRef": "SWR-1",
								"OperatorRef": "SW",
								"VehicleMode": "rail",
								"DestinationName": [{"value": "London Waterloo"}],
								"MonitoredCall": {
									"AimedDepartureTime": "2026-10-17T14:05:00+01:00",
									"ExpectedDepartureTime": "2026-10-17T14:05:00+01:00",
									"DeparturePlatformName": "9",
									"DepartureStatus": "onTime"
								}
							}
						},
						{
							"MonitoredVehicleJourney": {
								"OperatorName": "London Underground",
								"VehicleMode": "metro",
								"DestinationName": "Edgware Road",
								"MonitoredCall": {
									"AimedDepartureTime": "2026-10-17T14:07:00+01:00",
									"ExpectedDepartureTime": "2026-10-17T14:11:00+01:00"
								}
							}
						},
						{
							"MonitoredVehicleJourney": {
								"DestinationName": "No times",
								"MonitoredCall": {}
							}
						}
					]
				}]
			}
		}
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("MonitoringRef"); got != "WIM" {
			t.Errorf("expected MonitoringRef WIM, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockJSON))
	}))
	defer server.Close()

	source := NewSiriJsonDepartureSource(server.URL+"/sm?MonitoringRef={station}", server.Client())
	data, err := source.Fetch(context.Background(), Station{Name: "Wimbledon", Code: "WIM"})
	if err != nil {
		t.Fatalf("unexpected error fetching mocked departures: %v", err)
	}

	want := []Departure{
		{
			Destination: "London Waterloo",
			Time:        localHHMM(t, "2026-10-17T14:05:00+01:00"),
			Platform:    "9",
			Status:      "On time",
			Operator:    "SW",
			Type:        TypeTrain,
		},
		{
			Destination: "Edgware Road",
			Time:        localHHMM(t, "2026-10-17T14:07:00+01:00"),
			Status:      "Delayed",
			Operator:    "London Underground",
			Type:        TypeTube,
			ETA:         localHHMM(t, "2026-10-17T14:11:00+01:00"),
		},
	}
	if diff := cmp.Diff(want, data.Departures, ignoreIDs); diff != "" {
		t.Errorf("departures mismatch (-want +got):\n%s", diff)
	}
	if data.StationName != "Wimbledon" {
		t.Errorf("StationName = %q, want Wimbledon", data.StationName)
	}
}

func TestSiriJsonDepartureSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
	}{
		{name: "http error", status: http.StatusServiceUnavailable, payload: ""},
		{name: "malformed body", status: http.StatusOK, payload: `{"Siri":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.payload))
			}))
			defer server.Close()

			_, err := NewSiriJsonDepartureSource(server.URL, server.Client()).Fetch(context.Background(), DefaultStation())
			if !failure.Is(err, FetchFailed) {
				t.Errorf("expected FetchFailed, got %v", err)
			}
		})
	}
}

func TestTextFrom(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "plain", in: "Reading", want: "Reading"},
		{name: "value object", in: map[string]any{"value": "Reading"}, want: "Reading"},
		{name: "array", in: []any{map[string]any{"value": "Reading"}, "Other"}, want: "Reading"},
		{name: "missing", in: nil, want: ""},
		{name: "number", in: 4.0, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textFrom(tt.in); got != tt.want {
				t.Errorf("textFrom() = %q, want %q", got, tt.want)
			}
		})
	}
}
