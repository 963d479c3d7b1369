package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	. "DuneRally/internal/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connSink is the bounded outbound queue of one connection. Deliver never
// blocks the room: a full queue drops the event.
type connSink struct {
	connID string
	send   chan OutboundMessage
	done   chan struct{}
}

func newConnSink(connID string, size int) *connSink {
	return &connSink{
		connID: connID,
		send:   make(chan OutboundMessage, size),
		done:   make(chan struct{}),
	}
}

func (s *connSink) Deliver(msg OutboundMessage) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		log.Printf("ws: %s outbound queue full, dropping %s", s.connID, msg.Type)
		return false
	}
}

// liveConn is the per-connection state owned by the read loop.
type liveConn struct {
	conn    *websocket.Conn
	codec   frameCodec
	sink    *connSink
	player  *Player
	limiter *rate.Limiter
}

func serveWS(h *Hub, t Tuning, w http.ResponseWriter, r *http.Request) {
	codec := codecFor(r.URL.Query().Get("codec"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}

	connID := uuid.NewString()
	sink := newConnSink(connID, t.SendBuffer)
	lc := &liveConn{
		conn:    conn,
		codec:   codec,
		sink:    sink,
		player:  NewPlayer(connID, sink),
		limiter: rate.NewLimiter(rate.Limit(t.StateRate), t.StateBurst),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go lc.writePump(ctx)

	log.Printf("ws: %s connected (codec %s)", connID, codec.Name())
	lc.player.Send(MsgWelcome, WelcomeEvent{ConnID: connID, ID: lc.player.ID})
	lc.readLoop(h)

	if err := h.Leave(lc.player); err != nil && !errors.Is(err, ErrNotInRoom) {
		log.Printf("ws: %s leave: %v", connID, err)
	}
	close(sink.done)
	_ = conn.Close()
}

func (lc *liveConn) readLoop(h *Hub) {
	lc.conn.SetReadLimit(maxMessageSize)
	_ = lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		frameType, data, err := lc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: %s read: %v", lc.sink.connID, err)
			}
			return
		}
		in, err := lc.codec.Decode(frameType, data)
		if err != nil {
			log.Printf("ws: %s dropped frame: %v", lc.sink.connID, err)
			continue
		}
		lc.handleInbound(h, in)
	}
}

func (lc *liveConn) writePump(ctx context.Context) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-lc.sink.done:
			return
		case msg := <-lc.sink.send:
			frameType, data, err := lc.codec.Encode(msg)
			if err != nil {
				log.Printf("ws: %s encode: %v", lc.sink.connID, err)
				continue
			}
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := lc.conn.WriteMessage(frameType, data); err != nil {
				log.Printf("ws: %s write: %v", lc.sink.connID, err)
				_ = lc.conn.Close()
				return
			}
		case <-ping.C:
			_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := lc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = lc.conn.Close()
				return
			}
		}
	}
}

// handleInbound dispatches one decoded frame. Malformed payloads are logged
// and dropped; the connection stays open.
func (lc *liveConn) handleInbound(h *Hub, in inboundMessage) {
	p := lc.player
	room := p.Room()
	switch in.Type {
	case inJoin:
		var payload joinDTO
		if !lc.decode(in, &payload) {
			return
		}
		handleJoin(h, p, payload)
	case inLeave:
		_ = h.Leave(p)
	case inReady:
		var payload readyDTO
		if room == nil || !lc.decode(in, &payload) {
			return
		}
		ready := true
		if payload.Value != nil {
			ready = *payload.Value
		}
		room.SetReady(p, ready)
	case inState:
		var payload stateDTO
		if room == nil || !lc.decode(in, &payload) || !payload.valid() {
			return
		}
		if !lc.limiter.Allow() {
			return
		}
		room.ReportState(p, payload.X, payload.Y, payload.Angle, payload.Alive)
	case inMissionRequest:
		if room != nil {
			room.RequestMission(p)
		}
	case inHit, inCollect:
		var payload entityRefDTO
		if room == nil || !lc.decode(in, &payload) || payload.EntityID == nil {
			return
		}
		if in.Type == inHit {
			room.Hit(p, *payload.EntityID)
		} else {
			room.Collect(p, *payload.EntityID)
		}
	case inRename:
		var payload renameDTO
		if room == nil || !lc.decode(in, &payload) {
			return
		}
		room.Rename(p, payload.Name)
	case inFx:
		var payload fxDTO
		if room == nil || !lc.decode(in, &payload) {
			return
		}
		room.RelayFx(p, payload.Kind, payload.X, payload.Y, payload.Angle)
	default:
		log.Printf("ws: %s unknown message type %q", lc.sink.connID, in.Type)
	}
}

func (lc *liveConn) decode(in inboundMessage, dst interface{}) bool {
	if err := decodePayload(in, dst); err != nil {
		log.Printf("ws: %s invalid %s payload: %v", lc.sink.connID, in.Type, err)
		return false
	}
	return true
}

func handleJoin(h *Hub, p *Player, msg joinDTO) {
	key := SanitizeToken(msg.Room, MaxRoomKeyLen)
	if key == "" {
		key = "default"
	}
	id := SanitizeToken(msg.ID, MaxPlayerIDLen)
	if id == "" {
		id = p.ID
	}
	if _, err := h.Join(p, key, id, msg.Name); err != nil {
		if errors.Is(err, ErrRoomFull) {
			p.Send(MsgError, ErrorEvent{Code: ErrCodeRoomFull, Message: "room " + key + " is full"})
			return
		}
		log.Printf("ws: %s join: %v", p.ConnID, err)
	}
}
