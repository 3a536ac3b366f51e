/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/Seednode/rhymebox/game"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const watchInterval = 500 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWatch streams room snapshots over a websocket on a fixed
// interval. It is a push-flavored view of the same state the polling
// endpoint serves; a dropped connection loses nothing, since the next
// snapshot is always complete.
func serveWatch(cfg *Config, registry *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		room, err := registry.Get(ps.ByName("roomid"))
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		selfID := room.PlayerFor(getOrSetClientID(w, r))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WATCH: upgrade error from %s: %v", realIP(r), err)
			return
		}

		done := make(chan struct{})

		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		defer conn.Close()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteJSON(room.Snapshot(selfID)); err != nil {
					return
				}
			}
		}
	}
}
