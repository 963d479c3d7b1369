package game

// Outbound event types.
const (
	MsgWelcome      = "welcome"
	MsgLobby        = "lobby"
	MsgStart        = "start"
	MsgMission      = "mission"
	MsgNarrator     = "narrator"
	MsgStateUpdate  = "stateUpdate"
	MsgEntityUpdate = "entityUpdate"
	MsgAttack       = "attack"
	MsgPeerLeft     = "peerLeft"
	MsgFx           = "fx"
	MsgError        = "error"
)

const (
	ErrCodeRoomFull = "room_full"
)

// OutboundMessage packages queued websocket events.
type OutboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Sink receives events for a single connection. Deliver must not block; it
// reports false when the message was dropped.
type Sink interface {
	Deliver(msg OutboundMessage) bool
}

type WelcomeEvent struct {
	ConnID string `json:"connId"`
	ID     string `json:"id"`
}

type LobbyOccupant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

type LobbyEvent struct {
	Room      string          `json:"room"`
	Occupants []LobbyOccupant `json:"occupants"`
	Started   bool            `json:"started"`
}

type StartEvent struct {
	Seed   uint32 `json:"seed"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type EntityView struct {
	ID        int        `json:"id"`
	Kind      EntityKind `json:"kind"`
	Archetype string     `json:"archetype,omitempty"`
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	HP        int        `json:"hp,omitempty"`
	MaxHP     int        `json:"maxHp,omitempty"`
}

// MissionSnapshot is a detached copy of a mission, safe to hand to writers.
type MissionSnapshot struct {
	Phase    Phase        `json:"phase"`
	Step     int          `json:"step"`
	Target   Vec2         `json:"target"`
	Entities []EntityView `json:"entities"`
}

type NarratorEvent struct {
	Text string `json:"text"`
}

type StateUpdateEvent struct {
	From  string  `json:"from"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Alive bool    `json:"alive"`
}

// Entity update ops.
const (
	EntityOpHP     = "hp"
	EntityOpRemove = "remove"
	EntityOpPos    = "pos"
)

type EntityUpdateEvent struct {
	Op       string  `json:"op"`
	EntityID int     `json:"entityId"`
	HP       int     `json:"hp,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	By       string  `json:"by,omitempty"`
}

type AttackEvent struct {
	EntityID int    `json:"entityId"`
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Damage   int    `json:"damage"`
}

type PeerLeftEvent struct {
	ID string `json:"id"`
}

type FxEvent struct {
	From  string  `json:"from"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
