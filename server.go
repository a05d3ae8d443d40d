package main

import (
	"context"
	"encoding/json"
	"net/http"

	"departureboard/log"

	"github.com/morikuni/failure/v2"
)

// app carries what the HTTP handlers share.
type app struct {
	ctx    context.Context
	cfg    *Config
	source *sharedSource
	hub    *wsHub
}

func (a *app) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/stations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Stations())
	})

	mux.HandleFunc("/api/departures", a.handleDepartures)
	mux.HandleFunc("/ws", a.handleWebSocket)

	fs := http.FileServer(http.Dir(a.cfg.StaticDir))
	mux.Handle("/", withLogging(fs))
}

// handleDepartures serves a one-shot board for ?station= and optional ?filter=.
func (a *app) handleDepartures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := LookupStation(q.Get("station"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	f, err := parseFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := a.source.Fetch(r.Context(), st)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, buildBoard(st, false, "", data, f))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if fmsg := failure.MessageOf(err); fmsg != "" {
		msg = fmsg.String()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("http request", "method", r.Method, "path", r.URL.Path)
		h.ServeHTTP(w, r)
	})
}
