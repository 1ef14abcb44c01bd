package guardian

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/frostfed/guardian/internal/frost"
	"github.com/frostfed/guardian/internal/metrics"
	"github.com/frostfed/guardian/internal/sharestore"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err *Error) {
	writeJSON(w, statusFor(err.Kind), errorResponse{Error: err.Error()})
}

func readJSON(r *http.Request, v interface{}) *Error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return newError(KindMalformedRequest, "decode request body", err)
	}
	return nil
}

func (d *Daemon) handleRound1(w http.ResponseWriter, r *http.Request) {
	if d.refr.get() {
		writeErr(w, newError(KindNotReady, "guardian is mid-ceremony", nil))
		return
	}
	kp, _, ok := d.keys.read()
	if !ok {
		metrics.SigningOutcomes.WithLabelValues("round1", "not_ready").Inc()
		writeErr(w, newError(KindNotReady, "guardian has no activated key package", nil))
		return
	}

	var req round1Request
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	nonces, commitments, genErr := frost.Commit(frost.SecureRNG)
	if genErr != nil {
		writeErr(w, newError(KindFrostFailure, "generate nonces", genErr))
		return
	}
	if !d.nonces.insert(req.SessionID, nonces) {
		writeErr(w, newError(KindMalformedRequest, "session already has pending nonces", nil))
		return
	}

	metrics.SigningOutcomes.WithLabelValues("round1", "ok").Inc()
	writeJSON(w, http.StatusOK, round1Response{Identifier: kp.Identifier, Commitments: commitments})
}

func (d *Daemon) handleRound2(w http.ResponseWriter, r *http.Request) {
	if d.refr.get() {
		writeErr(w, newError(KindNotReady, "guardian is mid-ceremony", nil))
		return
	}
	kp, _, ok := d.keys.read()
	if !ok {
		metrics.SigningOutcomes.WithLabelValues("round2", "not_ready").Inc()
		writeErr(w, newError(KindNotReady, "guardian has no activated key package", nil))
		return
	}

	var req round2Request
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	nonces, ok := d.nonces.take(req.SessionID)
	if !ok {
		metrics.SigningOutcomes.WithLabelValues("round2", "no_nonces").Inc()
		writeErr(w, newError(KindMalformedRequest, "no nonces for session", nil))
		return
	}

	message, hexErr := hex.DecodeString(req.MessageHex)
	if hexErr != nil {
		writeErr(w, newError(KindMalformedRequest, "invalid message_hex", hexErr))
		return
	}

	commitments := make(map[frost.Identifier]frost.SigningCommitments, len(req.SigningCommitments))
	for _, c := range req.SigningCommitments {
		commitments[c.Identifier] = c.Commitments
	}
	pkg := frost.SigningPackage{Message: message, Commitments: commitments}

	share, signErr := frost.Sign(pkg, nonces, kp)
	if signErr != nil {
		metrics.SigningOutcomes.WithLabelValues("round2", "frost_failure").Inc()
		writeErr(w, newError(KindFrostFailure, "round2 sign", signErr))
		return
	}

	metrics.SigningOutcomes.WithLabelValues("round2", "ok").Inc()
	writeJSON(w, http.StatusOK, round2Response{Identifier: kp.Identifier, SignatureShare: share})
}

func (d *Daemon) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	_, pub, ok := d.keys.read()
	if !ok {
		writeErr(w, newError(KindNotReady, "no public key package available", nil))
		return
	}
	writeJSON(w, http.StatusOK, pub)
}

func (d *Daemon) handleConfig(w http.ResponseWriter, r *http.Request) {
	kp, _, ok := d.keys.read()
	if !ok {
		writeErr(w, newError(KindNotReady, "no config available", nil))
		return
	}
	writeJSON(w, http.StatusOK, configResponse{MinSigners: kp.MinSigners, MaxSigners: d.cfg.MaxSigners})
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, _, ready := d.keys.read()
	resp := healthResponse{
		Status:        "ok",
		Identifier:    strconv.Itoa(int(d.cfg.ShareIndex)),
		Ready:         ready,
		Refreshing:    d.refr.get(),
		NodeConnected: true,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Daemon) handleDkgRound1(w http.ResponseWriter, r *http.Request) {
	var req dkgRound1Request
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	d.dkgR1.put(req.Identifier, req.Package)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (d *Daemon) handleDkgRound2(w http.ResponseWriter, r *http.Request) {
	var req dkgRound2Request
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	d.dkgR2.put(req.From, req.Package)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (d *Daemon) handleRefreshRound1(w http.ResponseWriter, r *http.Request) {
	var req dkgRound1Request
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	d.refreshR1.put(req.Identifier, req.Package)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (d *Daemon) handleRefreshRound2(w http.ResponseWriter, r *http.Request) {
	var req dkgRound2Request
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	d.refreshR2.put(req.From, req.Package)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (d *Daemon) handleRedealShare(w http.ResponseWriter, r *http.Request) {
	kp, _, ok := d.keys.read()
	if !ok {
		writeErr(w, newError(KindNotReady, "no key package to surrender", nil))
		return
	}
	writeJSON(w, http.StatusOK, redealShareResponse{KeyPackage: kp})
}

func (d *Daemon) handleRedealReceive(w http.ResponseWriter, r *http.Request) {
	var req redealReceiveRequest
	if err := readJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}

	if err := d.store.Save(d.cfg.ShareIndex, sharestore.Persisted{
		KeyPackage:       req.SecretShare,
		PublicKeyPackage: req.PublicKeyPackage,
	}); err != nil {
		writeErr(w, newError(KindPersistenceFailure, "persist redealt keys", err))
		return
	}
	d.keys.activate(req.SecretShare, req.PublicKeyPackage)
	d.cfg.MinSigners = req.SecretShare.MinSigners
	d.cfg.MaxSigners = req.PublicKeyPackage.MaxSigners()
	d.refr.set(false)

	d.log.Infow("redeal receive: activated new topology", "min_signers", d.cfg.MinSigners, "max_signers", d.cfg.MaxSigners)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
