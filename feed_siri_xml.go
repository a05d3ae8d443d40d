package main

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"time"
)

type SiriXmlDepartureSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

func NewSiriXmlDepartureSource(url string, httpClient *http.Client) *SiriXmlDepartureSource {
	return &SiriXmlDepartureSource{
		url:        url,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// siriVisit collects one MonitoredStopVisit while streaming.
type siriVisit struct {
	destination, operator, mode       string
	aimed, expected, platform, status string
}

// Minimal streaming extraction for SIRI SM XML (namespace tolerant via Name.Local)
func (s *SiriXmlDepartureSource) Fetch(ctx context.Context, st Station) (*StationData, error) {
	body, err := getFeed(ctx, s.httpClient, feedURL(s.url, st), "siri xml")
	if err != nil {
		return nil, fetchFailed(err, st)
	}
	raw, err := decodeSiriStopMonitoring(bytes.NewReader(body))
	if err != nil {
		return nil, fetchFailed(err, st)
	}
	return newStationData(st, raw, nil, s.now()), nil
}

func decodeSiriStopMonitoring(r io.Reader) ([]rawDeparture, error) {
	dec := xml.NewDecoder(r)

	var (
		inSMD, inVisit, inMVJ, inCall bool
		cur                           siriVisit
		raw                           []rawDeparture
	)

	text := func(se *xml.StartElement) string {
		var v string
		if err := dec.DecodeElement(&v, se); err != nil {
			return ""
		}
		return v
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "StopMonitoringDelivery":
				inSMD = true
			case "MonitoredStopVisit":
				if inSMD {
					inVisit = true
					cur = siriVisit{}
				}
			case "MonitoredVehicleJourney":
				if inVisit {
					inMVJ = true
				}
			case "MonitoredCall":
				if inMVJ {
					inCall = true
				}
			case "DestinationName":
				if inMVJ && !inCall && cur.destination == "" {
					cur.destination = text(&se)
				}
			case "OperatorRef", "OperatorName":
				if inMVJ && !inCall && cur.operator == "" {
					cur.operator = text(&se)
				}
			case "VehicleMode":
				if inMVJ && !inCall {
					cur.mode = text(&se)
				}
			case "AimedDepartureTime":
				if inCall {
					cur.aimed = text(&se)
				}
			case "ExpectedDepartureTime":
				if inCall {
					cur.expected = text(&se)
				}
			case "DeparturePlatformName":
				if inCall {
					cur.platform = text(&se)
				}
			case "DepartureStatus":
				if inCall {
					cur.status = text(&se)
				}
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "MonitoredCall":
				inCall = false
			case "MonitoredVehicleJourney":
				inMVJ = false
			case "MonitoredStopVisit":
				if inVisit {
					inVisit = false
					if d, ok := cur.departure(); ok {
						raw = append(raw, d)
					}
				}
			case "StopMonitoringDelivery":
				inSMD = false
			}
		}
	}
	return raw, nil
}

func (v siriVisit) departure() (rawDeparture, bool) {
	aimed, err := time.Parse(time.RFC3339, v.aimed)
	if err != nil {
		return rawDeparture{}, false
	}
	var expected time.Time
	if v.expected != "" {
		expected, _ = time.Parse(time.RFC3339, v.expected)
	}
	status, eta := departureStatus(siriStatus(v.status), aimed, expected)
	return rawDeparture{
		Destination: looseString(v.destination),
		Time:        looseString(aimed.Local().Format("15:04")),
		Platform:    looseString(v.platform),
		Status:      looseString(status),
		Operator:    looseString(v.operator),
		Type:        looseString(v.mode),
		ETA:         looseString(eta),
	}, true
}
