package guardian

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/frostfed/guardian/internal/frost"
	"github.com/frostfed/guardian/internal/metrics"
	"github.com/frostfed/guardian/internal/sharestore"
)

// runRefresh drives the proactive-refresh ceremony: same shape as DKG,
// but it starts from an already-ready guardian and must preserve the
// group verifying key.
func (d *Daemon) runRefresh(ctx context.Context) error {
	start := time.Now()
	oldKP, oldPub, ok := d.keys.read()
	if !ok {
		return newError(KindNotReady, "refresh requires an already-activated key package", nil)
	}

	d.refr.set(true)
	metrics.Refreshing.Set(1)
	defer func() {
		metrics.Refreshing.Set(0)
	}()

	myID := oldKP.Identifier
	peerIDs := d.peerTable.Identifiers()

	spin := newCeremonySpinner("waiting for refresh peers")
	spin.Start()
	for _, url := range d.peerTable.URLs() {
		if err := d.waitHealthy(ctx, url); err != nil {
			spin.Stop()
			d.refr.set(false)
			metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "waiting for refresh peer readiness", err)
		}
	}
	spin.Stop()

	secret1, pkg1, err := frost.RefreshPart1(myID, d.cfg.MaxSigners, d.cfg.MinSigners, frost.SecureRNG)
	if err != nil {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "refresh part1", err)
	}
	for _, url := range d.peerTable.URLs() {
		if err := d.postJSON(ctx, url+"/refresh/round1", dkgRound1Request{Identifier: myID, Package: pkg1}, nil); err != nil {
			d.refr.set(false)
			metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "broadcast refresh round1", err)
		}
	}

	if err := d.refreshR1.awaitAtLeast(ctx, len(peerIDs)); err != nil {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindTransportFailure, "await refresh round1 inbox", err)
	}
	round1Inbox := d.refreshR1.snapshot()

	secret2, outbound, err := frost.RefreshPart2(secret1, round1Inbox)
	if err != nil {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "refresh part2", err)
	}
	for recipient, pkg := range outbound {
		url, ok := d.peerTable.URLFor(recipient)
		if !ok {
			d.refr.set(false)
			return newError(KindFrostFailure, fmt.Sprintf("no peer URL for identifier %s", recipient), nil)
		}
		if err := d.postJSON(ctx, url+"/refresh/round2", dkgRound2Request{From: myID, Package: pkg}, nil); err != nil {
			d.refr.set(false)
			metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "send refresh round2", err)
		}
	}

	if err := d.refreshR2.awaitAtLeast(ctx, len(peerIDs)); err != nil {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindTransportFailure, "await refresh round2 inbox", err)
	}
	round2Inbox := d.refreshR2.snapshot()

	newKP, newPub, err := frost.RefreshShares(myID, secret2, round1Inbox, round2Inbox, oldKP, oldPub)
	if err != nil {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "refresh finalize", err)
	}

	oldGroupKey := oldPub.GroupVerifyingKeyBytes()
	newGroupKey := newPub.GroupVerifyingKeyBytes()
	if !bytes.Equal(oldGroupKey[:], newGroupKey[:]) {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindGroupKeyMismatch, "refresh produced a different group verifying key, keeping old keys", nil)
	}

	if err := d.store.Save(d.cfg.ShareIndex, sharestore.Persisted{KeyPackage: newKP, PublicKeyPackage: newPub}); err != nil {
		d.refr.set(false)
		metrics.CeremonyDuration.WithLabelValues("refresh", "error").Observe(time.Since(start).Seconds())
		return newError(KindPersistenceFailure, "persist refreshed keys", err)
	}
	d.keys.activate(newKP, newPub)
	d.refr.set(false)

	metrics.CeremonyDuration.WithLabelValues("refresh", "ok").Observe(time.Since(start).Seconds())
	d.log.Infow("refresh complete", "group_key", fmt.Sprintf("%x", newGroupKey))
	return nil
}
