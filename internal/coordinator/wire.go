package coordinator

import "github.com/frostfed/guardian/internal/frost"

// Wire shapes mirroring the guardian HTTP surface. Kept separate from
// internal/guardian's unexported DTOs since a coordinator talks to
// guardians only over HTTP, never in-process.

type round1Request struct {
	SessionID string `json:"session_id"`
}

type round1Response struct {
	Identifier  frost.Identifier         `json:"identifier"`
	Commitments frost.SigningCommitments `json:"commitments"`
}

type commitmentEntry struct {
	Identifier  frost.Identifier         `json:"identifier"`
	Commitments frost.SigningCommitments `json:"commitments"`
}

type round2Request struct {
	SessionID          string            `json:"session_id"`
	MessageHex         string            `json:"message_hex"`
	SigningCommitments []commitmentEntry `json:"signing_commitments"`
}

type round2Response struct {
	Identifier     frost.Identifier     `json:"identifier"`
	SignatureShare frost.SignatureShare `json:"signature_share"`
}

type configResponse struct {
	MinSigners uint16 `json:"min_signers"`
	MaxSigners uint16 `json:"max_signers"`
}

type errorResponse struct {
	Error string `json:"error"`
}
