package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/google/go-cmp/cmp"
	"github.com/morikuni/failure/v2"
	"google.golang.org/protobuf/proto"
)

func stopTime(stopID string, at time.Time, delay int32) *gtfs.TripUpdate_StopTimeUpdate {
	return &gtfs.TripUpdate_StopTimeUpdate{
		StopId: proto.String(stopID),
		Departure: &gtfs.TripUpdate_StopTimeEvent{
			Time:  proto.Int64(at.Unix()),
			Delay: proto.Int32(delay),
		},
	}
}

func TestGtfsRtDepartureSource_Fetch(t *testing.T) {
	base := time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC)
	skipped := stopTime("WOK", base.Add(20*time.Minute), 0)
	skipped.ScheduleRelationship = gtfs.TripUpdate_StopTimeUpdate_SKIPPED.Enum()

	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(uint64(base.Unix())),
		},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("1"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: proto.String("t1"), RouteId: proto.String("SWR")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						stopTime("WOK", base.Add(5*time.Minute), 0),
						stopTime("WAT", base.Add(30*time.Minute), 0),
					},
				},
			},
			{
				Id: proto.String("2"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: proto.String("t2"), RouteId: proto.String("SWR")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						stopTime("WOK", base.Add(13*time.Minute), 180),
						stopTime("GLD", base.Add(25*time.Minute), 180),
					},
				},
			},
			{
				Id: proto.String("3"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: proto.String("t3"), RouteId: proto.String("SN")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						skipped,
						stopTime("DKG", base.Add(40*time.Minute), 0),
					},
				},
			},
			{
				Id: proto.String("4"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: proto.String("t4"), RouteId: proto.String("SWR")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						stopTime("GLD", base.Add(7*time.Minute), 0),
					},
				},
			},
		},
	}
	body, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(body)
	}))
	defer server.Close()

	data, err := NewGtfsRtDepartureSource(server.URL, server.Client()).Fetch(context.Background(), Station{Name: "Woking", Code: "WOK"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hhmm := func(d time.Duration) string { return base.Add(d).Local().Format("15:04") }
	want := []Departure{
		{Destination: "WAT", Time: hhmm(5 * time.Minute), Status: "On time", Operator: "SWR", Type: TypeTrain},
		{Destination: "GLD", Time: hhmm(10 * time.Minute), Status: "Delayed", Operator: "SWR", Type: TypeTrain, ETA: hhmm(13 * time.Minute)},
		{Destination: "DKG", Time: hhmm(20 * time.Minute), Status: "Cancelled", Operator: "SN", Type: TypeTrain},
	}
	if diff := cmp.Diff(want, data.Departures, ignoreIDs); diff != "" {
		t.Errorf("departures mismatch (-want +got):\n%s", diff)
	}
}

func TestGtfsRtDepartureSource_BadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not protobuf"))
	}))
	defer server.Close()

	_, err := NewGtfsRtDepartureSource(server.URL, server.Client()).Fetch(context.Background(), Station{Name: "Woking", Code: "WOK"})
	if !failure.Is(err, FetchFailed) {
		t.Errorf("expected FetchFailed, got %v", err)
	}
}

func TestTripUpdateDepartures_CancelledWithoutDepartureTime(t *testing.T) {
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	trip := func(id, route string, cancelled bool, stops ...*gtfs.TripUpdate_StopTimeUpdate) *gtfs.FeedEntity {
		desc := &gtfs.TripDescriptor{TripId: proto.String(id), RouteId: proto.String(route)}
		if cancelled {
			desc.ScheduleRelationship = gtfs.TripDescriptor_CANCELED.Enum()
		}
		return &gtfs.FeedEntity{
			Id:         proto.String(id),
			TripUpdate: &gtfs.TripUpdate{Trip: desc, StopTimeUpdate: stops},
		}
	}

	skippedNoTime := &gtfs.TripUpdate_StopTimeUpdate{
		StopId:               proto.String("WOK"),
		ScheduleRelationship: gtfs.TripUpdate_StopTimeUpdate_SKIPPED.Enum(),
	}
	arrivalOnly := &gtfs.TripUpdate_StopTimeUpdate{
		StopId:  proto.String("WOK"),
		Arrival: &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(base.Add(15 * time.Minute).Unix())},
	}
	noTime := &gtfs.TripUpdate_StopTimeUpdate{StopId: proto.String("WOK")}

	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			trip("skipped", "SN", false, skippedNoTime, stopTime("RDH", base.Add(30*time.Minute), 0)),
			trip("cancelled", "SWR", true, arrivalOnly, stopTime("EPS", base.Add(40*time.Minute), 0)),
			trip("untimed", "SWR", false, noTime, stopTime("GLD", base.Add(20*time.Minute), 0)),
			trip("terminating", "SWR", false, stopTime("WAT", base, 0), stopTime("WOK", base.Add(35*time.Minute), 0)),
			trip("cancelled-whole", "SWR", true),
		},
	}

	want := []rawDeparture{
		{Destination: "RDH", Status: "Cancelled", Operator: "SN"},
		{Destination: "EPS", Time: looseString(base.Add(15 * time.Minute).Local().Format("15:04")), Status: "Cancelled", Operator: "SWR"},
	}
	if diff := cmp.Diff(want, tripUpdateDepartures(feed, "WOK")); diff != "" {
		t.Errorf("departures mismatch (-want +got):\n%s", diff)
	}
}
