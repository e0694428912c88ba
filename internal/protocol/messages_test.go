package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidFrame(t *testing.T) {
	env, err := Decode([]byte(`{"type":"room_join","payload":{"name":"Alice","roomId":"abcdef"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeRoomJoin, env.Type)

	var p RoomJoinPayload
	require.NoError(t, DecodePayload(env.Payload, &p))
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "abcdef", p.RoomID)
}

func TestDecodeFrameWithoutPayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"room_list"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeRoomList, env.Type)

	// A missing payload decodes as an empty object
	var p GameActionPayload
	assert.NoError(t, DecodePayload(env.Payload, &p))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestDecodeRejectsMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"payload":{}}`))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"make_me_host"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeRejectsOutboundTypesInbound(t *testing.T) {
	// Clients cannot inject server-only frames
	_, err := Decode([]byte(`{"type":"room_closed","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodePayloadRejectsUnknownFields(t *testing.T) {
	err := DecodePayload([]byte(`{"action":"pause","sneaky":true}`), &GameActionPayload{})
	assert.Error(t, err)
}

func TestEncodeEnvelopeShape(t *testing.T) {
	data, err := Encode(Message{
		Type:    TypeError,
		Payload: ErrorPayload{Code: "ROOM_FULL", Message: "Room is full"},
	})
	require.NoError(t, err)

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeError, env.Type)

	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "ROOM_FULL", p.Code)
}

func TestGameEndPayloadTimestampIsMillis(t *testing.T) {
	data, err := json.Marshal(GameEndPayload{Reason: "quit", Timestamp: 1704110400000})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":1704110400000`)
}
