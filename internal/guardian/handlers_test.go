package guardian

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/frostfed/guardian/internal/frost"
)

func newTestDaemon(t *testing.T, activated bool) *Daemon {
	t.Helper()
	cfg := Config{ShareIndex: 1, MaxSigners: 3, MinSigners: 2, CacheDir: t.TempDir()}
	d, err := New(cfg)
	require.NoError(t, err)

	if activated {
		var seed [32]byte
		copy(seed[:], []byte("handlers-test-deterministic-seed"))
		packages, pub, err := frost.Dealer(seed, 2, 3)
		require.NoError(t, err)
		kp := packages[frost.MustIdentifier(1)]
		d.keys.activate(kp, pub)
	}
	return d
}

func TestHandleHealthAlwaysOK(t *testing.T) {
	d := newTestDaemon(t, false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	d.handleHealth(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp healthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.False(t, resp.Ready)
	require.Equal(t, "1", resp.Identifier)
}

func TestHandleRound1FailsWhenNotReady(t *testing.T) {
	d := newTestDaemon(t, false)
	body := `{"session_id":"s1"}`
	req := httptest.NewRequest(http.MethodPost, "/round1", strings.NewReader(body))
	w := httptest.NewRecorder()
	d.handleRound1(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleRound1ThenRound2Roundtrip(t *testing.T) {
	d := newTestDaemon(t, true)

	req := httptest.NewRequest(http.MethodPost, "/round1", strings.NewReader(`{"session_id":"sess-a"}`))
	w := httptest.NewRecorder()
	d.handleRound1(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var r1 round1Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r1))

	entry := commitmentEntry{Identifier: r1.Identifier, Commitments: r1.Commitments}
	reqBody, err := json.Marshal(round2Request{
		SessionID:          "sess-a",
		MessageHex:         "68656c6c6f",
		SigningCommitments: []commitmentEntry{entry},
	})
	require.NoError(t, err)

	req2 := httptest.NewRequest(http.MethodPost, "/round2", bytes.NewReader(reqBody))
	w2 := httptest.NewRecorder()
	d.handleRound2(w2, req2)
	require.Equal(t, http.StatusOK, w2.Code)

	var r2 round2Response
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&r2))
	require.Equal(t, r1.Identifier, r2.Identifier)
}

func TestHandleRound2FailsWithoutPriorRound1(t *testing.T) {
	d := newTestDaemon(t, true)
	reqBody, err := json.Marshal(round2Request{SessionID: "never-requested", MessageHex: "00"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/round2", bytes.NewReader(reqBody))
	w := httptest.NewRecorder()
	d.handleRound2(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConfigWithoutPeerTableDoesNotPanic(t *testing.T) {
	d := newTestDaemon(t, true)
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	require.NotPanics(t, func() { d.handleConfig(w, req) })

	var resp configResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.EqualValues(t, 3, resp.MaxSigners)
	require.EqualValues(t, 2, resp.MinSigners)
}
