package nakama

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as protobuf-encoded google.protobuf.Struct values so any
// protobuf client can decode them without a generated schema.

// encodeMessage converts a JSON-tagged value into Struct wire bytes.
func encodeMessage(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("convert payload: %w", err)
	}
	return proto.Marshal(msg)
}

// decodeMessage reads Struct wire bytes into a JSON-tagged value.
func decodeMessage(data []byte, v any) error {
	msg := &structpb.Struct{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("convert message: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// SubmitMoveRequest is sent with OpSubmitMove.
type SubmitMoveRequest struct {
	Move string `json:"move"`
}

// PurchaseRequest is sent with OpPurchaseUpgrade.
type PurchaseRequest struct {
	UpgradeID string `json:"upgrade_id"`
}

// ErrorMessage is sent privately with OpError.
type ErrorMessage struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
