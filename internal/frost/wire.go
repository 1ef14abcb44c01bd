package frost

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// marshalHex and unmarshalHex give every raw-bytes FROST type (scalars,
// points, signature shares) the same hex-string wire representation
// that the guardian HTTP surface and the signing coordinator expect —
// mirroring how the federation's wire codec elsewhere renders
// fixed-size binary values as hex rather than base64.
func marshalHex(b []byte) ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func unmarshalHex(data []byte, wantLen int) ([]byte, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if wantLen > 0 && len(raw) != wantLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", wantLen, len(raw))
	}
	return raw, nil
}
