package main

import (
	"context"
	"time"

	"departureboard/log"

	"github.com/bluele/gcache"
	"golang.org/x/sync/singleflight"
)

// sharedSource coalesces concurrent fetches for one station and remembers the
// last good board per station. Safe for concurrent use.
type sharedSource struct {
	source  DepartureSource
	timeout time.Duration
	group   singleflight.Group
	last    gcache.Cache
}

func newSharedSource(source DepartureSource, timeout, ttl time.Duration) *sharedSource {
	return &sharedSource{
		source:  source,
		timeout: timeout,
		last: gcache.New(len(surreyStations) * 4).
			LRU().
			Expiration(ttl).
			Build(),
	}
}

// Fetch joins an in-flight fetch for the same station or starts one. The
// upstream call is detached from the caller's cancellation so that other
// waiters still get the result; each caller stops waiting on its own context.
func (s *sharedSource) Fetch(ctx context.Context, st Station) (*StationData, error) {
	ch := s.group.DoChan(st.Name, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		start := time.Now()
		data, err := s.source.Fetch(fctx, st)
		if err != nil {
			log.Warn("fetch failed", "station", st.Name, "elapsed", time.Since(start), "error", err)
			return nil, err
		}
		log.Info("fetched departures", "station", st.Name, "departures", len(data.Departures), "elapsed", time.Since(start))
		_ = s.last.Set(st.Name, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, fetchFailed(ctx.Err(), st)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*StationData), nil
	}
}

// Last returns the most recent good board for the station, if still cached.
func (s *sharedSource) Last(st Station) (*StationData, bool) {
	v, err := s.last.Get(st.Name)
	if err != nil {
		return nil, false
	}
	return v.(*StationData), true
}
