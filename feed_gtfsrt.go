package main

import (
	"context"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// GtfsRtDepartureSource builds a board from a GTFS-RT TripUpdates feed. The
// station code is matched against stop_id.
type GtfsRtDepartureSource struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

func NewGtfsRtDepartureSource(url string, httpClient *http.Client) *GtfsRtDepartureSource {
	return &GtfsRtDepartureSource{
		url:        url,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (s *GtfsRtDepartureSource) Fetch(ctx context.Context, st Station) (*StationData, error) {
	body, err := getFeed(ctx, s.httpClient, feedURL(s.url, st), "gtfs-rt")
	if err != nil {
		return nil, fetchFailed(err, st)
	}
	var feed gtfs.FeedMessage
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fetchFailed(err, st)
	}
	return newStationData(st, tripUpdateDepartures(&feed, st.ref()), nil, s.now()), nil
}

// tripUpdateDepartures lists the trips calling at stopID. A skipped stop or a
// cancelled trip is kept as a Cancelled row even when it carries no time. A
// cancelled trip without stop time updates cannot be placed at a stop and is
// left out, as is a trip terminating at stopID.
func tripUpdateDepartures(feed *gtfs.FeedMessage, stopID string) []rawDeparture {
	raw := make([]rawDeparture, 0, len(feed.Entity))
	for _, ent := range feed.Entity {
		tu := ent.GetTripUpdate()
		if tu == nil || len(tu.StopTimeUpdate) == 0 {
			continue
		}
		updates := tu.StopTimeUpdate
		terminus := updates[len(updates)-1].GetStopId()
		operator := tu.GetTrip().GetRouteId()
		tripCancelled := tu.GetTrip().GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED

		for i, stu := range updates {
			if stu.GetStopId() != stopID || i == len(updates)-1 {
				continue
			}
			cancelled := tripCancelled || stu.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED

			ev := stu.GetDeparture()
			if ev.GetTime() == 0 {
				ev = stu.GetArrival()
			}
			if ev.GetTime() == 0 {
				if cancelled {
					raw = append(raw, rawDeparture{
						Destination: looseString(terminus),
						Status:      "Cancelled",
						Operator:    looseString(operator),
					})
				}
				continue
			}

			expected := time.Unix(ev.GetTime(), 0)
			aimed := expected.Add(-time.Duration(ev.GetDelay()) * time.Second)
			explicit := ""
			if cancelled {
				explicit = "Cancelled"
			}
			status, eta := departureStatus(explicit, aimed, expected)
			raw = append(raw, rawDeparture{
				Destination: looseString(terminus),
				Time:        looseString(aimed.Local().Format("15:04")),
				Status:      looseString(status),
				Operator:    looseString(operator),
				ETA:         looseString(eta),
			})
		}
	}
	return raw
}
