package frost

import (
	"encoding/json"
	"fmt"

	"filippo.io/edwards25519"
)

// scalarJSON/pointJSON give the curve types from filippo.io/edwards25519
// (which carry only unexported fields) a hex-string wire form, matching
// the rest of this package's wire convention.

func marshalScalar(s *edwards25519.Scalar) ([]byte, error) {
	return marshalHex(s.Bytes())
}

func unmarshalScalar(data []byte) (*edwards25519.Scalar, error) {
	raw, err := unmarshalHex(data, 32)
	if err != nil {
		return nil, err
	}
	return edwards25519.NewScalar().SetCanonicalBytes(raw)
}

func marshalPoint(p *edwards25519.Point) ([]byte, error) {
	return marshalHex(p.Bytes())
}

func unmarshalPoint(data []byte) (*edwards25519.Point, error) {
	raw, err := unmarshalHex(data, 32)
	if err != nil {
		return nil, err
	}
	return edwards25519.NewIdentityPoint().SetBytes(raw)
}

type keyPackageWire struct {
	Identifier     Identifier      `json:"identifier"`
	SigningShare   json.RawMessage `json:"signing_share"`
	VerifyingShare json.RawMessage `json:"verifying_share"`
	VerifyingKey   json.RawMessage `json:"verifying_key"`
	MinSigners     uint16          `json:"min_signers"`
}

func (kp KeyPackage) MarshalJSON() ([]byte, error) {
	signingShare, err := marshalScalar(kp.SigningShare)
	if err != nil {
		return nil, err
	}
	verifyingShare, err := marshalPoint(kp.VerifyingShare)
	if err != nil {
		return nil, err
	}
	verifyingKey, err := marshalPoint(kp.VerifyingKey)
	if err != nil {
		return nil, err
	}
	return json.Marshal(keyPackageWire{
		Identifier:     kp.Identifier,
		SigningShare:   signingShare,
		VerifyingShare: verifyingShare,
		VerifyingKey:   verifyingKey,
		MinSigners:     kp.MinSigners,
	})
}

func (kp *KeyPackage) UnmarshalJSON(data []byte) error {
	var w keyPackageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("frost: key package: %w", err)
	}
	signingShare, err := unmarshalScalar(w.SigningShare)
	if err != nil {
		return fmt.Errorf("frost: key package signing share: %w", err)
	}
	verifyingShare, err := unmarshalPoint(w.VerifyingShare)
	if err != nil {
		return fmt.Errorf("frost: key package verifying share: %w", err)
	}
	verifyingKey, err := unmarshalPoint(w.VerifyingKey)
	if err != nil {
		return fmt.Errorf("frost: key package verifying key: %w", err)
	}
	kp.Identifier = w.Identifier
	kp.SigningShare = signingShare
	kp.VerifyingShare = verifyingShare
	kp.VerifyingKey = verifyingKey
	kp.MinSigners = w.MinSigners
	return nil
}

type publicKeyPackageWire struct {
	VerifyingKey    json.RawMessage            `json:"verifying_key"`
	VerifyingShares map[string]json.RawMessage `json:"verifying_shares"`
}

func (p PublicKeyPackage) MarshalJSON() ([]byte, error) {
	verifyingKey, err := marshalPoint(p.VerifyingKey)
	if err != nil {
		return nil, err
	}
	shares := make(map[string]json.RawMessage, len(p.VerifyingShares))
	for id, share := range p.VerifyingShares {
		b := id.Bytes()
		raw, err := marshalPoint(share)
		if err != nil {
			return nil, err
		}
		shares[fmt.Sprintf("%x", b[:])] = raw
	}
	return json.Marshal(publicKeyPackageWire{VerifyingKey: verifyingKey, VerifyingShares: shares})
}

func (p *PublicKeyPackage) UnmarshalJSON(data []byte) error {
	var w publicKeyPackageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("frost: public key package: %w", err)
	}
	verifyingKey, err := unmarshalPoint(w.VerifyingKey)
	if err != nil {
		return fmt.Errorf("frost: public key package verifying key: %w", err)
	}
	shares := make(map[Identifier]*edwards25519.Point, len(w.VerifyingShares))
	for hexID, raw := range w.VerifyingShares {
		idBytes, err := hexDecodeFixed(hexID, 32)
		if err != nil {
			return fmt.Errorf("frost: public key package: bad identifier %q: %w", hexID, err)
		}
		if _, err := edwards25519.NewScalar().SetCanonicalBytes(idBytes); err != nil {
			return fmt.Errorf("frost: public key package: bad identifier %q: %w", hexID, err)
		}
		pt, err := unmarshalPoint(raw)
		if err != nil {
			return fmt.Errorf("frost: public key package: verifying share for %q: %w", hexID, err)
		}
		var id Identifier
		copy(id.b[:], idBytes)
		shares[id] = pt
	}
	p.VerifyingKey = verifyingKey
	p.VerifyingShares = shares
	return nil
}

type signingCommitmentsWire struct {
	Hiding  json.RawMessage `json:"hiding"`
	Binding json.RawMessage `json:"binding"`
}

func (c SigningCommitments) MarshalJSON() ([]byte, error) {
	hiding, err := marshalPoint(c.Hiding)
	if err != nil {
		return nil, err
	}
	binding, err := marshalPoint(c.Binding)
	if err != nil {
		return nil, err
	}
	return json.Marshal(signingCommitmentsWire{Hiding: hiding, Binding: binding})
}

func (c *SigningCommitments) UnmarshalJSON(data []byte) error {
	var w signingCommitmentsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("frost: signing commitments: %w", err)
	}
	hiding, err := unmarshalPoint(w.Hiding)
	if err != nil {
		return fmt.Errorf("frost: signing commitments hiding: %w", err)
	}
	binding, err := unmarshalPoint(w.Binding)
	if err != nil {
		return fmt.Errorf("frost: signing commitments binding: %w", err)
	}
	c.Hiding = hiding
	c.Binding = binding
	return nil
}

type signatureShareWire struct {
	Identifier Identifier      `json:"identifier"`
	Share      json.RawMessage `json:"share"`
}

func (s SignatureShare) MarshalJSON() ([]byte, error) {
	share, err := marshalScalar(s.Share)
	if err != nil {
		return nil, err
	}
	return json.Marshal(signatureShareWire{Identifier: s.Identifier, Share: share})
}

func (s *SignatureShare) UnmarshalJSON(data []byte) error {
	var w signatureShareWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("frost: signature share: %w", err)
	}
	share, err := unmarshalScalar(w.Share)
	if err != nil {
		return fmt.Errorf("frost: signature share: %w", err)
	}
	s.Identifier = w.Identifier
	s.Share = share
	return nil
}

type dkgRound1PackageWire struct {
	Commitments []json.RawMessage `json:"commitments"`
}

func (p DkgRound1Package) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, len(p.Commitments))
	for i, c := range p.Commitments {
		raw, err := marshalPoint(c)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return json.Marshal(dkgRound1PackageWire{Commitments: out})
}

func (p *DkgRound1Package) UnmarshalJSON(data []byte) error {
	var w dkgRound1PackageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("frost: dkg round1 package: %w", err)
	}
	commitments := make([]*edwards25519.Point, len(w.Commitments))
	for i, raw := range w.Commitments {
		pt, err := unmarshalPoint(raw)
		if err != nil {
			return fmt.Errorf("frost: dkg round1 package commitment %d: %w", i, err)
		}
		commitments[i] = pt
	}
	p.Commitments = commitments
	return nil
}

type dkgRound2PackageWire struct {
	Share json.RawMessage `json:"share"`
}

func (p DkgRound2Package) MarshalJSON() ([]byte, error) {
	share, err := marshalScalar(p.Share)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dkgRound2PackageWire{Share: share})
}

func (p *DkgRound2Package) UnmarshalJSON(data []byte) error {
	var w dkgRound2PackageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("frost: dkg round2 package: %w", err)
	}
	share, err := unmarshalScalar(w.Share)
	if err != nil {
		return fmt.Errorf("frost: dkg round2 package: %w", err)
	}
	p.Share = share
	return nil
}

func hexDecodeFixed(s string, wantLen int) ([]byte, error) {
	raw, err := unmarshalHex([]byte(fmt.Sprintf("%q", s)), wantLen)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
