package server

import (
	"encoding/json"
	"log"
	"net/http"

	. "DuneRally/internal/game"
)

type healthResponse struct {
	Status string `json:"status"`
	Rooms  int    `json:"rooms"`
}

type terrainResponse struct {
	Room string   `json:"room"`
	Rows []string `json:"rows"`
}

func newMux(h *Hub, t Tuning) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(h, t, w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, healthResponse{Status: "ok", Rooms: len(h.ActiveRooms())})
	})
	mux.HandleFunc("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, h.Summaries())
	})
	mux.HandleFunc("/api/terrain", func(w http.ResponseWriter, r *http.Request) {
		room := h.GetRoom(SanitizeToken(r.URL.Query().Get("room"), MaxRoomKeyLen))
		if room == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		rows := room.TerrainRows()
		if rows == nil {
			http.Error(w, "round not started", http.StatusConflict)
			return
		}
		writeJSON(w, terrainResponse{Room: room.Key, Rows: rows})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func startServer(h *Hub, addr string, t Tuning) {
	log.Fatal(http.ListenAndServe(addr, newMux(h, t)))
}
