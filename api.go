/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Seednode/rhymebox/game"
	"github.com/Seednode/rhymebox/rhyme"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const clientCookieName = "rhymebox_id"

func getOrSetClientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(clientCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     clientCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(cfg *Config, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, game.ErrRoomNotFound),
		errors.Is(err, game.ErrAttemptNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrNotInRoom):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrRoomPaused),
		errors.Is(err, game.ErrRoomNotPaused),
		errors.Is(err, game.ErrNotBotTurn):
		status = http.StatusConflict
	case errors.Is(err, game.ErrEmptyGuess),
		errors.Is(err, game.ErrInvalidBotCount):
		status = http.StatusBadRequest
	}

	writeJSON(cfg, w, status, map[string]string{"error": err.Error()})
}

func badRequest(cfg *Config, w http.ResponseWriter) {
	writeJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	return dec.Decode(v)
}

// resolveRoom maps a request to its room and the caller's player id
// within it, via the identity cookie.
func resolveRoom(registry *game.Registry, w http.ResponseWriter, r *http.Request, roomID string) (*game.Room, string, error) {
	room, err := registry.Get(roomID)
	if err != nil {
		return nil, "", err
	}
	return room, room.PlayerFor(getOrSetClientID(w, r)), nil
}

type roomRequest struct {
	RoomID string `json:"room_id"`
}

func serveState(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, selfID, err := resolveRoom(registry, w, r, r.URL.Query().Get("room"))
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func serveRoomList(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, map[string]any{"rooms": registry.List()})
	}
}

func serveRoomCreate(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			Name     string `json:"name"`
			Capacity int    `json:"capacity"`
			BotCount int    `json:"bot_count"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := registry.Create(getOrSetClientID(w, r), req.Name, req.Capacity, req.BotCount)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "ROOMS: Created room %s for %s", room.ID(), realIP(r))

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func serveRoomJoin(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomID string `json:"room_id"`
			Name   string `json:"name"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := registry.Join(req.RoomID, getOrSetClientID(w, r), req.Name)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "ROOMS: %s joined room %s as %s", realIP(r), room.ID(), selfID)

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func serveNewGame(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomID   string `json:"room_id"`
			BotCount *int   `json:"bot_count"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		botCount := room.BotCount()
		if req.BotCount != nil {
			botCount = *req.BotCount
		}
		if err := room.NewGame(botCount); err != nil {
			writeError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: New game in room %s with %d bots", room.ID(), botCount)

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

// guessRules resolves which rule set applies to a request: an explicit
// toggle set wins, then a named preset, then the room's own rules.
func guessRules(room *game.Room, rules *rhyme.Config, difficulty string) rhyme.Config {
	if rules != nil {
		return *rules
	}
	if difficulty != "" {
		return rhyme.Preset(difficulty)
	}
	return room.Rules()
}

func serveGuess(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomID     string        `json:"room_id"`
			Guess      string        `json:"guess"`
			Difficulty string        `json:"difficulty"`
			Rules      *rhyme.Config `json:"rules"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		if err := room.SubmitGuess(selfID, req.Guess, guessRules(room, req.Rules, req.Difficulty)); err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func serveBotMove(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req roomRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		word, err := room.RequestBotMove()
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"word":     word,
			"snapshot": room.Snapshot(selfID),
		})
	}
}

func serveBotCommit(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req roomRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		if err := room.CommitBotMove(); err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func servePause(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req roomRequest
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		room.TogglePause()

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func serveConfigUpdate(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomID   string        `json:"room_id"`
			BotCount *int          `json:"bot_count"`
			Rules    *rhyme.Config `json:"rules"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		botCount := -1
		if req.BotCount != nil {
			botCount = *req.BotCount
		}
		if err := room.UpdateConfig(botCount, req.Rules); err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, room.Snapshot(selfID))
	}
}

func serveAttempts(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		room, _, err := resolveRoom(registry, w, r, r.URL.Query().Get("room"))
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]any{"attempts": room.Attempts()})
	}
}

func serveAttemptConfirm(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomID   string `json:"room_id"`
			Prompt   string `json:"prompt"`
			Guess    string `json:"guess"`
			Accepted bool   `json:"accepted"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, _, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		if err := room.Adjudicate(req.Prompt, req.Guess, req.Accepted); err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]any{"attempts": room.Attempts()})
	}
}

func serveLiveInput(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req struct {
			RoomID string `json:"room_id"`
			Text   string `json:"text"`
		}
		if err := decodeBody(r, &req); err != nil {
			badRequest(cfg, w)
			return
		}

		room, selfID, err := resolveRoom(registry, w, r, req.RoomID)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		if err := room.RecordLiveInput(selfID, req.Text); err != nil {
			writeError(cfg, w, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// serveRhymeCheck evaluates a pair outside any room, for trying words.
func serveRhymeCheck(cfg *Config, engine *rhyme.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		q := r.URL.Query()
		prompt := rhyme.Normalize(q.Get("prompt"))
		guess := rhyme.Normalize(q.Get("guess"))
		if prompt == "" || guess == "" {
			writeError(cfg, w, game.ErrEmptyGuess)
			return
		}

		rules := rhyme.Preset(q.Get("difficulty"))
		result := engine.Evaluate(prompt, guess, rules)

		writeJSON(cfg, w, http.StatusOK, map[string]any{
			"prompt":             prompt,
			"guess":              guess,
			"verdict":            result.Verdict.String(),
			"used_slant":         result.UsedSlant,
			"rhyme_part_display": engine.Dict().RimeDisplay(prompt),
		})
	}
}

// serveRoomQR generates a PNG QR code for a room's join URL.
func serveRoomQR(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if _, err := registry.Get(roomID); err != nil {
			writeError(cfg, w, err)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		path := strings.TrimSuffix(r.URL.Path, "/qr")
		url := scheme + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		securityHeaders(cfg, w)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func registerAPI(cfg *Config, mux *httprouter.Router, registry *game.Registry, engine *rhyme.Engine) {
	mux.GET(cfg.prefix+"/api/state", serveState(cfg, registry))
	mux.GET(cfg.prefix+"/api/rooms", serveRoomList(cfg, registry))
	mux.POST(cfg.prefix+"/api/rooms/create", serveRoomCreate(cfg, registry))
	mux.POST(cfg.prefix+"/api/rooms/join", serveRoomJoin(cfg, registry))
	mux.POST(cfg.prefix+"/api/new", serveNewGame(cfg, registry))
	mux.POST(cfg.prefix+"/api/guess", serveGuess(cfg, registry))
	mux.POST(cfg.prefix+"/api/bot", serveBotMove(cfg, registry))
	mux.POST(cfg.prefix+"/api/bot/commit", serveBotCommit(cfg, registry))
	mux.POST(cfg.prefix+"/api/pause", servePause(cfg, registry))
	mux.POST(cfg.prefix+"/api/config", serveConfigUpdate(cfg, registry))
	mux.GET(cfg.prefix+"/api/attempts", serveAttempts(cfg, registry))
	mux.POST(cfg.prefix+"/api/attempts/confirm", serveAttemptConfirm(cfg, registry))
	mux.POST(cfg.prefix+"/api/live", serveLiveInput(cfg, registry))
	mux.GET(cfg.prefix+"/api/rhyme", serveRhymeCheck(cfg, engine))
	mux.GET(cfg.prefix+"/rooms/:roomid/qr", serveRoomQR(cfg, registry))
	mux.GET(cfg.prefix+"/rooms/:roomid/watch", serveWatch(cfg, registry))
}
