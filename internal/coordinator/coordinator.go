// Package coordinator implements the signing-coordinator side of the
// federation: fan out FROST round1/round2 requests across guardian
// daemons and aggregate their shares into a standard Ed25519
// signature.
package coordinator

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/frostfed/guardian/internal/frost"
)

// DefaultTimeout bounds a full Sign call, round-trip included.
const DefaultTimeout = 10 * time.Second

// Coordinator drives signing ceremonies against a fixed set of
// guardian daemons, identified by HTTP base URL.
type Coordinator struct {
	client     *http.Client
	guardians  []string
	timeout    time.Duration
	minSigners uint16
	pub        frost.PublicKeyPackage
}

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithTimeout overrides DefaultTimeout for every Sign call.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithHTTPClient overrides the default http.Client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Coordinator) { c.client = client }
}

// New probes guardianURLs in order and caches the /config and
// /public-key of the first guardian that answers both, so that a
// Coordinator always has a cached min_signers and group
// PublicKeyPackage ready for Sign and Verify. The other guardians'
// answers are not compared against it.
func New(ctx context.Context, guardianURLs []string, opts ...Option) (*Coordinator, error) {
	if len(guardianURLs) == 0 {
		return nil, fmt.Errorf("coordinator: at least one guardian URL is required")
	}
	c := &Coordinator{
		client:    &http.Client{Timeout: DefaultTimeout},
		guardians: guardianURLs,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	var probeErr error
	for _, url := range c.guardians {
		var cfg configResponse
		if err := c.getJSON(ctx, url+"/config", &cfg); err != nil {
			probeErr = multierror.Append(probeErr, fmt.Errorf("%s: %w", url, err))
			continue
		}
		var pub frost.PublicKeyPackage
		if err := c.getJSON(ctx, url+"/public-key", &pub); err != nil {
			probeErr = multierror.Append(probeErr, fmt.Errorf("%s: %w", url, err))
			continue
		}
		c.minSigners = cfg.MinSigners
		c.pub = pub
		return c, nil
	}
	return nil, fmt.Errorf("coordinator: no guardian answered /config and /public-key: %w", probeErr)
}

// MinSigners returns the cached threshold, 0 if New never succeeded.
func (c *Coordinator) MinSigners() uint16 { return c.minSigners }

// PublicKeyPackage returns the cached federation public key package.
func (c *Coordinator) PublicKeyPackage() frost.PublicKeyPackage { return c.pub }

type round1Result struct {
	url         string
	identifier  frost.Identifier
	commitments frost.SigningCommitments
	err         error
}

// Sign drives the full two-round FROST ceremony across the configured
// guardians and returns the aggregated, Ed25519-compatible signature.
func (c *Coordinator) Sign(ctx context.Context, message []byte) ([64]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sessionUUID := uuid.New()
	sessionID := hex.EncodeToString(sessionUUID[:])

	results := make([]round1Result, len(c.guardians))
	var wg sync.WaitGroup
	for i, url := range c.guardians {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			var resp round1Response
			err := c.postJSON(ctx, url+"/round1", round1Request{SessionID: sessionID}, &resp)
			results[i] = round1Result{url: url, identifier: resp.Identifier, commitments: resp.Commitments, err: err}
		}(i, url)
	}
	wg.Wait()

	var round1Err error
	participants := make([]round1Result, 0, c.minSigners)
	for _, r := range results {
		if r.err != nil {
			round1Err = multierror.Append(round1Err, fmt.Errorf("%s: %w", r.url, r.err))
			continue
		}
		participants = append(participants, r)
		if uint16(len(participants)) == c.minSigners {
			break
		}
	}
	if uint16(len(participants)) < c.minSigners {
		return [64]byte{}, fmt.Errorf("coordinator: round1 got %d of %d needed responses: %w", len(participants), c.minSigners, round1Err)
	}

	entries := make([]commitmentEntry, 0, len(participants))
	commitMap := make(map[frost.Identifier]frost.SigningCommitments, len(participants))
	for _, p := range participants {
		entries = append(entries, commitmentEntry{Identifier: p.identifier, Commitments: p.commitments})
		commitMap[p.identifier] = p.commitments
	}
	messageHex := hex.EncodeToString(message)

	shares := make([]frost.SignatureShare, len(participants))
	errs := make([]error, len(participants))
	wg = sync.WaitGroup{}
	for i, p := range participants {
		wg.Add(1)
		go func(i int, p round1Result) {
			defer wg.Done()
			var resp round2Response
			err := c.postJSON(ctx, p.url+"/round2", round2Request{
				SessionID:          sessionID,
				MessageHex:         messageHex,
				SigningCommitments: entries,
			}, &resp)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.url, err)
				return
			}
			shares[i] = resp.SignatureShare
		}(i, p)
	}
	wg.Wait()

	var round2Err error
	okShares := make([]frost.SignatureShare, 0, len(shares))
	for _, err := range errs {
		if err != nil {
			round2Err = multierror.Append(round2Err, err)
		}
	}
	for i, err := range errs {
		if err == nil {
			okShares = append(okShares, shares[i])
		}
	}
	if uint16(len(okShares)) < c.minSigners {
		return [64]byte{}, fmt.Errorf("coordinator: round2 got %d of %d needed shares: %w", len(okShares), c.minSigners, round2Err)
	}

	pkg := frost.SigningPackage{Message: message, Commitments: commitMap}
	sig, err := frost.Aggregate(pkg, okShares, c.pub)
	if err != nil {
		return [64]byte{}, fmt.Errorf("coordinator: aggregate: %w", err)
	}
	return sig, nil
}

// Verify checks a signature against the cached group verifying key
// using the standard library's Ed25519 verifier: FROST aggregated
// signatures are byte-compatible with RFC 8032.
func (c *Coordinator) Verify(message []byte, signature [64]byte) bool {
	groupKey := c.pub.GroupVerifyingKeyBytes()
	return ed25519.Verify(groupKey[:], message, signature[:])
}

func (c *Coordinator) postJSON(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Coordinator) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Coordinator) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
