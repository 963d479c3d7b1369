package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	. "DuneRally/internal/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var errEmptyType = errors.New("missing message type")

// frameCodec turns outbound events into websocket frames and inbound frames
// into typed envelopes. Every codec carries the same {type, payload} shape.
type frameCodec interface {
	Name() string
	Encode(msg OutboundMessage) (int, []byte, error)
	Decode(frameType int, data []byte) (inboundMessage, error)
}

func codecFor(name string) frameCodec {
	switch strings.ToLower(name) {
	case "msgpack":
		return msgpackCodec{}
	case "proto", "protobuf":
		return protoCodec{}
	default:
		return jsonCodec{}
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(msg OutboundMessage) (int, []byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	return websocket.TextMessage, data, nil
}

func (jsonCodec) Decode(frameType int, data []byte) (inboundMessage, error) {
	var in inboundMessage
	if frameType != websocket.TextMessage {
		return in, fmt.Errorf("json codec: unexpected frame type %d", frameType)
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return in, fmt.Errorf("json codec: %w", err)
	}
	if in.Type == "" {
		return in, errEmptyType
	}
	return in, nil
}

// msgpackCodec reuses the json struct tags so both encodings share field
// names.
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Encode(msg OutboundMessage) (int, []byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(msg); err != nil {
		return 0, nil, fmt.Errorf("msgpack %s: %w", msg.Type, err)
	}
	return websocket.BinaryMessage, buf.Bytes(), nil
}

type msgpackInbound struct {
	Type    string                 `msgpack:"type"`
	Payload map[string]interface{} `msgpack:"payload"`
}

func (msgpackCodec) Decode(frameType int, data []byte) (inboundMessage, error) {
	if frameType != websocket.BinaryMessage {
		return inboundMessage{}, fmt.Errorf("msgpack codec: unexpected frame type %d", frameType)
	}
	var raw msgpackInbound
	if err := msgpack.Unmarshal(data, &raw); err != nil {
		return inboundMessage{}, fmt.Errorf("msgpack codec: %w", err)
	}
	return rebuildInbound(raw.Type, raw.Payload)
}

// protoCodec frames events as a google.protobuf.Struct envelope so clients
// can decode without generated message types.
type protoCodec struct{}

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Encode(msg OutboundMessage) (int, []byte, error) {
	generic, err := toGeneric(msg)
	if err != nil {
		return 0, nil, err
	}
	envelope, err := structpb.NewStruct(generic)
	if err != nil {
		return 0, nil, fmt.Errorf("proto envelope %s: %w", msg.Type, err)
	}
	data, err := proto.Marshal(envelope)
	if err != nil {
		return 0, nil, fmt.Errorf("proto marshal %s: %w", msg.Type, err)
	}
	return websocket.BinaryMessage, data, nil
}

func (protoCodec) Decode(frameType int, data []byte) (inboundMessage, error) {
	if frameType != websocket.BinaryMessage {
		return inboundMessage{}, fmt.Errorf("proto codec: unexpected frame type %d", frameType)
	}
	var envelope structpb.Struct
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return inboundMessage{}, fmt.Errorf("proto codec: %w", err)
	}
	fields := envelope.AsMap()
	msgType, _ := fields["type"].(string)
	payload, _ := fields["payload"].(map[string]interface{})
	return rebuildInbound(msgType, payload)
}

// toGeneric flattens an outbound event through its json tags into the map
// form structpb accepts.
func toGeneric(msg OutboundMessage) (map[string]interface{}, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.Type, err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("flatten %s: %w", msg.Type, err)
	}
	return out, nil
}

func rebuildInbound(msgType string, payload map[string]interface{}) (inboundMessage, error) {
	if msgType == "" {
		return inboundMessage{}, errEmptyType
	}
	in := inboundMessage{Type: msgType}
	if payload == nil {
		return in, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return in, fmt.Errorf("payload for %s: %w", msgType, err)
	}
	in.Payload = data
	return in, nil
}
