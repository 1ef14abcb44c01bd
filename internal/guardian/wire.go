package guardian

import "github.com/frostfed/guardian/internal/frost"

// Wire request/response shapes for the HTTP surface. These are plain
// JSON structs; FROST values inside them already know how to
// hex-encode themselves via frost's own MarshalJSON/UnmarshalJSON.

type errorResponse struct {
	Error string `json:"error"`
}

type round1Request struct {
	SessionID string `json:"session_id"`
}

type round1Response struct {
	Identifier  frost.Identifier          `json:"identifier"`
	Commitments frost.SigningCommitments  `json:"commitments"`
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

type healthResponse struct {
	Status        string `json:"status"`
	Identifier    string `json:"identifier"`
	Ready         bool   `json:"ready"`
	Refreshing    bool   `json:"refreshing"`
	NodeConnected bool   `json:"node_connected"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type dkgRound1Request struct {
	Identifier frost.Identifier      `json:"identifier"`
	Package    frost.DkgRound1Package `json:"package"`
}

type dkgRound2Request struct {
	From    frost.Identifier        `json:"from"`
	Package frost.DkgRound2Package  `json:"package"`
}

type redealShareResponse struct {
	KeyPackage frost.KeyPackage `json:"key_package"`
}

type redealReceiveRequest struct {
	SecretShare      frost.KeyPackage        `json:"secret_share"`
	PublicKeyPackage frost.PublicKeyPackage  `json:"public_key_package"`
}
