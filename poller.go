package main

import (
	"context"
	"time"

	"departureboard/log"
)

// snapshotter is implemented by sources that remember the last good board.
type snapshotter interface {
	Last(st Station) (*StationData, bool)
}

type pollEvent struct {
	station *Station
	refresh bool
	filter  *Filter
	reply   chan Board
}

type fetchResult struct {
	gen     int
	station string
	data    *StationData
	err     error
}

// poller drives fetch cycles for one board: immediately and on a fixed
// interval for the selected station, and on manual refresh. All state is
// owned by the run goroutine; the exported methods are events.
type poller struct {
	source   DepartureSource
	interval time.Duration
	onChange func(Board)

	events  chan pollEvent
	results chan fetchResult
	done    chan struct{}

	station Station
	pending int
	errMsg  string
	data    *StationData
	filter  Filter

	// gen counts station selections; fetches started under an earlier
	// selection share stationCtx, which is cancelled on the next switch.
	gen           int
	stationCtx    context.Context
	stationCancel context.CancelFunc
}

func newPoller(source DepartureSource, station Station, interval time.Duration, onChange func(Board)) *poller {
	if onChange == nil {
		onChange = func(Board) {}
	}
	return &poller{
		source:   source,
		interval: interval,
		onChange: onChange,
		events:   make(chan pollEvent),
		results:  make(chan fetchResult),
		done:     make(chan struct{}),
		station:  station,
		filter:   FilterAll,
	}
}

func (p *poller) run(ctx context.Context) {
	defer close(p.done)

	p.arm(ctx)
	p.seed()
	p.startFetch(ctx)
	t := time.NewTicker(p.interval)
	defer func() { t.Stop() }()
	p.publish()

	for {
		select {
		case <-ctx.Done():
			p.stationCancel()
			return
		case <-t.C:
			p.startFetch(ctx)
			p.publish()
		case ev := <-p.events:
			switch {
			case ev.station != nil:
				if ev.station.Name == p.station.Name {
					break
				}
				t.Stop()
				log.Debug("station changed", "from", p.station.Name, "to", ev.station.Name)
				p.station = *ev.station
				p.arm(ctx)
				p.seed()
				p.startFetch(ctx)
				t = time.NewTicker(p.interval)
				p.publish()
			case ev.refresh:
				p.startFetch(ctx)
				p.publish()
			case ev.filter != nil:
				p.filter = *ev.filter
				p.publish()
			}
			if ev.reply != nil {
				ev.reply <- p.board()
			}
		case res := <-p.results:
			if res.gen != p.gen {
				log.Debug("discarding result for previous station", "station", res.station)
				continue
			}
			p.pending--
			if res.err != nil {
				p.errMsg = fetchFailedMessage
			} else {
				p.errMsg = ""
				p.data = res.data
			}
			p.publish()
		}
	}
}

// arm begins a new selection: every fetch of the previous one is cancelled
// and its result will be ignored, so it no longer counts as pending.
func (p *poller) arm(ctx context.Context) {
	if p.stationCancel != nil {
		p.stationCancel()
	}
	p.stationCtx, p.stationCancel = context.WithCancel(ctx)
	p.gen++
	p.pending = 0
}

// startFetch begins one fetch cycle for the selected station.
func (p *poller) startFetch(ctx context.Context) {
	p.pending++
	p.errMsg = ""

	st, fctx := p.station, p.stationCtx
	res := fetchResult{gen: p.gen, station: st.Name}
	go func() {
		if err := fctx.Err(); err != nil {
			res.err = err
		} else {
			res.data, res.err = p.source.Fetch(fctx, st)
		}
		select {
		case p.results <- res:
		case <-ctx.Done():
		}
	}()
}

func (p *poller) seed() {
	if s, ok := p.source.(snapshotter); ok {
		if data, ok := s.Last(p.station); ok {
			p.data = data
		}
	}
}

func (p *poller) board() Board {
	return buildBoard(p.station, p.pending > 0, p.errMsg, p.data, p.filter)
}

func (p *poller) publish() {
	p.onChange(p.board())
}

func (p *poller) send(ev pollEvent) bool {
	select {
	case p.events <- ev:
		return true
	case <-p.done:
		return false
	}
}

// SelectStation switches the board. The previous station's timer is torn
// down and all of its in-flight fetches cancelled.
func (p *poller) SelectStation(st Station) {
	p.send(pollEvent{station: &st})
}

// Refresh starts a fetch cycle now without re-arming the timer.
func (p *poller) Refresh() {
	p.send(pollEvent{refresh: true})
}

func (p *poller) SetFilter(f Filter) {
	p.send(pollEvent{filter: &f})
}

// Board returns the current view state, or the zero Board once stopped.
func (p *poller) Board() Board {
	reply := make(chan Board, 1)
	if !p.send(pollEvent{reply: reply}) {
		return Board{}
	}
	return <-reply
}
