package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"departureboard/log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub tracks live board sessions so shutdown can close them.
type wsHub struct {
	mu       sync.Mutex
	sessions map[*wsSession]struct{}
}

func newHub() *wsHub {
	return &wsHub{sessions: make(map[*wsSession]struct{})}
}

func (h *wsHub) add(s *wsSession) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(s *wsSession) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	for s := range h.sessions {
		s.close()
	}
	h.mu.Unlock()
}

// wsSession is one browser board: a connection plus its own poller.
type wsSession struct {
	id     string
	conn   *websocket.Conn
	writeM sync.Mutex
	cancel context.CancelFunc
	poll   *poller
}

// clientMessage is an event sent by the board page.
type clientMessage struct {
	Type    string `mapstructure:"type" validate:"required,oneof=selectStation refresh setFilter"`
	Station string `mapstructure:"station" validate:"required_if=Type selectStation"`
	Filter  string `mapstructure:"filter" validate:"required_if=Type setFilter"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Board   *Board `json:"board,omitempty"`
	Message string `json:"message,omitempty"`
}

func (a *app) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	station := a.cfg.Station.Station
	if q := r.URL.Query().Get("station"); q != "" {
		st, err := LookupStation(q)
		if err != nil {
			http.Error(w, "unknown station", http.StatusNotFound)
			return
		}
		station = st
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade error", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(a.ctx)
	s := &wsSession{id: uuid.NewString(), conn: conn, cancel: cancel}
	s.poll = newPoller(a.source, station, a.cfg.RefreshInterval, func(b Board) {
		_ = s.write(serverMessage{Type: "board", Board: &b})
	})

	a.hub.add(s)
	log.Info("board session opened", "session", s.id, "station", station.Name)
	go s.poll.run(ctx)
	go a.readPump(s)
}

func (a *app) readPump(s *wsSession) {
	defer func() {
		a.hub.remove(s)
		s.close()
		log.Info("board session closed", "session", s.id)
	}()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if err := s.handle(data); err != nil {
			log.Debug("rejected client message", "session", s.id, "error", err)
			msg := err.Error()
			if fmsg := failure.MessageOf(err); fmsg != "" {
				msg = fmsg.String()
			}
			_ = s.write(serverMessage{Type: "error", Message: msg})
		}
	}
}

func (s *wsSession) handle(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return failure.Translate(err, InvalidMessage, failure.Message("Message is not a JSON object"))
	}
	var msg clientMessage
	if err := mapstructure.Decode(fields, &msg); err != nil {
		return failure.Translate(err, InvalidMessage, failure.Message("Malformed message"))
	}
	if err := validate.Struct(msg); err != nil {
		return failure.Translate(err, InvalidMessage, failure.Message("Invalid message: "+err.Error()))
	}

	switch msg.Type {
	case "selectStation":
		st, err := LookupStation(msg.Station)
		if err != nil {
			return err
		}
		s.poll.SelectStation(st)
	case "refresh":
		s.poll.Refresh()
	case "setFilter":
		f, err := parseFilter(msg.Filter)
		if err != nil {
			return err
		}
		s.poll.SetFilter(f)
	}
	return nil
}

func (s *wsSession) write(msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeM.Lock()
	defer s.writeM.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) close() {
	s.cancel()
	_ = s.conn.Close()
}
