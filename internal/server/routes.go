package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"asteroids-server/internal/room"
	"asteroids-server/internal/store"
)

const (
	qrSize          = 256
	leaderboardSize = 10
	maxLeaderboard  = 100
)

// Leaderboard is the read side of the score store
type Leaderboard interface {
	TopScores(ctx context.Context, limit int) ([]store.ScoreRow, error)
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // Non-browser clients don't send Origin
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host || slices.Contains(allowed, origin)
		},
	}
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// SetupRoutes configures the HTTP routes. board may be nil when no score
// store is configured.
func SetupRoutes(hub *Hub, board Leaderboard, log zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	upgrader := newUpgrader(hub.cfg.AllowedOrigins)

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("upgrade failed")
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	mux.HandleFunc("GET /rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.rooms.List())
	})

	mux.HandleFunc("GET /rooms/{code}/qr", func(w http.ResponseWriter, r *http.Request) {
		rm, ok := hub.rooms.ByCode(r.PathValue("code"))
		if !ok {
			writeError(w, http.StatusNotFound, room.ErrRoomNotFound.Error())
			return
		}
		png, err := qrcode.Encode(inviteURL(r, rm.Code), qrcode.Medium, qrSize)
		if err != nil {
			log.Error().Err(err).Str("room", rm.Code).Msg("qr encode")
			writeError(w, http.StatusInternalServerError, "qr encode failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	})

	mux.HandleFunc("GET /leaderboard", func(w http.ResponseWriter, r *http.Request) {
		if board == nil {
			writeError(w, http.StatusServiceUnavailable, store.ErrDisabled.Error())
			return
		}
		limit := leaderboardSize
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = min(n, maxLeaderboard)
		}
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		rows, err := board.TopScores(ctx, limit)
		if err != nil {
			log.Error().Err(err).Msg("leaderboard query")
			writeError(w, http.StatusInternalServerError, "leaderboard unavailable")
			return
		}
		writeJSON(w, http.StatusOK, rows)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{
			"rooms":   hub.rooms.Len(),
			"clients": hub.ClientCount(),
		})
	})

	return mux
}

// inviteURL is the link encoded into a room's QR code
func inviteURL(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/?room=%s", scheme, r.Host, url.QueryEscape(code))
}
