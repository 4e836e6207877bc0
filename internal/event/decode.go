package event

import (
	"encoding/json"
	"fmt"
)

// DecodePayload returns the payload as T. In-process events already carry T;
// payloads read back from the dead-letter file arrive as generic JSON maps and
// are re-encoded into T.
func DecodePayload[T any](input interface{}) (T, error) {
	var out T
	switch v := input.(type) {
	case T:
		return v, nil
	case json.RawMessage:
		return out, json.Unmarshal(v, &out)
	case nil:
		return out, fmt.Errorf("%s: nil payload", LogMsgPayloadUndecodable)
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return out, err
	}
	return out, json.Unmarshal(raw, &out)
}

// DecodeEvent decodes the payload of a known event type into its V1 struct.
// Unknown types are returned as-is.
func DecodeEvent(evt Event) (interface{}, error) {
	switch evt.Type {
	case SessionStateChanged:
		return DecodePayload[SessionStateChangedPayloadV1](evt.Payload)
	case BalanceChanged:
		return DecodePayload[BalanceChangedPayloadV1](evt.Payload)
	case SessionConflict:
		return DecodePayload[SessionConflictPayloadV1](evt.Payload)
	case BoostsChanged:
		return DecodePayload[BoostsChangedPayloadV1](evt.Payload)
	}
	return evt.Payload, nil
}
