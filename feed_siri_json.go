package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type SiriJsonDepartureSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

func NewSiriJsonDepartureSource(url string, httpClient *http.Client) *SiriJsonDepartureSource {
	return &SiriJsonDepartureSource{
		url:        url,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (s *SiriJsonDepartureSource) Fetch(ctx context.Context, st Station) (*StationData, error) {
	b, err := getFeed(ctx, s.httpClient, feedURL(s.url, st), "siri json")
	if err != nil {
		return nil, fetchFailed(err, st)
	}

	// Minimal schema-walking: Siri?.ServiceDelivery.StopMonitoringDelivery[].MonitoredStopVisit[]
	var root map[string]any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fetchFailed(err, st)
	}
	// Handle optional top-level "Siri" wrapper
	if siri, ok := root["Siri"].(map[string]any); ok && siri != nil {
		root = siri
	}
	sd, _ := root["ServiceDelivery"].(map[string]any)
	smdArr, _ := sd["StopMonitoringDelivery"].([]any)
	raw := make([]rawDeparture, 0, 32)
	for _, smdAny := range smdArr {
		smd, _ := smdAny.(map[string]any)
		visits, _ := smd["MonitoredStopVisit"].([]any)
		for _, visitAny := range visits {
			visit, _ := visitAny.(map[string]any)
			mvj, _ := visit["MonitoredVehicleJourney"].(map[string]any)
			if mvj == nil {
				continue
			}
			call, _ := mvj["MonitoredCall"].(map[string]any)
			aimed := timeFrom(call["AimedDepartureTime"])
			if aimed.IsZero() {
				continue
			}
			operator := textFrom(mvj["OperatorRef"])
			if operator == "" {
				operator = textFrom(mvj["OperatorName"])
			}
			status, eta := departureStatus(siriStatus(textFrom(call["DepartureStatus"])), aimed, timeFrom(call["ExpectedDepartureTime"]))
			raw = append(raw, rawDeparture{
				Destination: looseString(textFrom(mvj["DestinationName"])),
				Time:        looseString(aimed.Local().Format("15:04")),
				Platform:    looseString(textFrom(call["DeparturePlatformName"])),
				Status:      looseString(status),
				Operator:    looseString(operator),
				Type:        looseString(textFrom(mvj["VehicleMode"])),
				ETA:         looseString(eta),
			})
		}
	}
	return newStationData(st, raw, nil, s.now()), nil
}

// textFrom reads a SIRI text value, which JSON encoders render as a plain
// string, a {"value": ...} object, or an array of either.
func textFrom(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return textFrom(t["value"])
	case []any:
		if len(t) > 0 {
			return textFrom(t[0])
		}
	}
	return ""
}

func timeFrom(v any) time.Time {
	s := textFrom(v)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// siriStatus turns SIRI progress codes into display text.
func siriStatus(code string) string {
	switch strings.ToLower(code) {
	case "":
		return ""
	case "ontime":
		return "On time"
	case "early":
		return "Early"
	case "delayed":
		return "Delayed"
	case "cancelled":
		return "Cancelled"
	case "noreport":
		return ""
	default:
		return code
	}
}
