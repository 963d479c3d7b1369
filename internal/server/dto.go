package server

import (
	"encoding/json"
	"math"
)

// Inbound message types.
const (
	inJoin           = "join"
	inReady          = "ready"
	inState          = "state"
	inMissionRequest = "missionRequest"
	inHit            = "hit"
	inCollect        = "collect"
	inRename         = "rename"
	inFx             = "fx"
	inLeave          = "leave"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinDTO struct {
	Room string `json:"room"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type readyDTO struct {
	Value *bool `json:"value"`
}

type stateDTO struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Alive *bool   `json:"alive,omitempty"`
}

func (s stateDTO) valid() bool {
	for _, v := range []float64{s.X, s.Y, s.Angle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type entityRefDTO struct {
	EntityID *int `json:"entityId"`
}

type renameDTO struct {
	Name string `json:"name"`
}

type fxDTO struct {
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// decodePayload unmarshals the payload into dst. An absent payload leaves dst
// at its zero value.
func decodePayload(in inboundMessage, dst interface{}) error {
	if len(in.Payload) == 0 || string(in.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(in.Payload, dst)
}
