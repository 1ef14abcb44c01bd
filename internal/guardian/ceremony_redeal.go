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

// runRedealCoordinator drives the redeal ceremony's coordinator role:
// collect enough old shares to reconstruct the signing key, re-split
// it to the new topology, and push the new shares out. d.peerTable
// already describes the new topology (built
// in New() with NewMaxSigners when cfg.Redeal is set); old peers for
// reconstruction come from cfg.OldPeers directly since their count
// need not match the new topology's peer-table shape.
func (d *Daemon) runRedealCoordinator(ctx context.Context) error {
	start := time.Now()
	ownKP, ownPub, ok := d.keys.read()
	if !ok {
		return newError(KindNotReady, "redeal coordinator requires an already-activated key package", nil)
	}

	d.refr.set(true)
	metrics.Refreshing.Set(1)

	packages := []frost.KeyPackage{ownKP}
	for _, url := range d.cfg.OldPeers {
		if len(packages) >= int(ownKP.MinSigners) {
			break
		}
		var resp redealShareResponse
		if err := d.getRedealShare(ctx, url, &resp); err != nil {
			d.log.Warnw("redeal: peer did not surrender a share", "peer", url, "err", err)
			continue
		}
		packages = append(packages, resp.KeyPackage)
	}
	if len(packages) < int(ownKP.MinSigners) {
		d.refr.set(false)
		metrics.Refreshing.Set(0)
		metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
		return newError(KindTransportFailure, fmt.Sprintf("collected only %d of %d shares for reconstruction", len(packages), ownKP.MinSigners), nil)
	}

	signingKey, err := frost.Reconstruct(packages)
	if err != nil {
		d.refr.set(false)
		metrics.Refreshing.Set(0)
		metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "reconstruct signing key", err)
	}

	oldGroupKey := ownPub.GroupVerifyingKeyBytes()
	reconstructedKey := frost.GroupKeyBytesFor(signingKey)
	if !bytes.Equal(oldGroupKey[:], reconstructedKey[:]) {
		d.refr.set(false)
		metrics.Refreshing.Set(0)
		metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
		return newError(KindGroupKeyMismatch, "reconstructed signing key does not match old group verifying key, aborting redeal", nil)
	}

	newIdentifiers := make([]frost.Identifier, d.cfg.NewMaxSigners)
	for i := uint16(1); i <= d.cfg.NewMaxSigners; i++ {
		newIdentifiers[i-1] = frost.MustIdentifier(i)
	}
	newShares, newPub, err := frost.Split(signingKey, d.cfg.NewMinSigners, d.cfg.NewMaxSigners, newIdentifiers, frost.SecureRNG)
	if err != nil {
		d.refr.set(false)
		metrics.Refreshing.Set(0)
		metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "split to new topology", err)
	}

	for _, url := range d.peerTable.URLs() {
		if err := d.waitHealthy(ctx, url); err != nil {
			d.refr.set(false)
			metrics.Refreshing.Set(0)
			metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "waiting for new peer to listen", err)
		}
	}

	myNewID := frost.MustIdentifier(d.cfg.ShareIndex)
	for id, share := range newShares {
		if id.Equal(myNewID) {
			continue
		}
		url, ok := d.peerTable.URLFor(id)
		if !ok {
			d.refr.set(false)
			metrics.Refreshing.Set(0)
			return newError(KindFrostFailure, fmt.Sprintf("no peer URL for new identifier %s", id), nil)
		}
		req := redealReceiveRequest{SecretShare: share, PublicKeyPackage: newPub}
		if err := d.postJSON(ctx, url+"/redeal/receive", req, nil); err != nil {
			d.refr.set(false)
			metrics.Refreshing.Set(0)
			metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "send redeal/receive", err)
		}
	}

	myShare := newShares[myNewID]
	if err := d.store.Save(d.cfg.ShareIndex, sharestore.Persisted{KeyPackage: myShare, PublicKeyPackage: newPub}); err != nil {
		d.refr.set(false)
		metrics.Refreshing.Set(0)
		metrics.CeremonyDuration.WithLabelValues("redeal", "error").Observe(time.Since(start).Seconds())
		return newError(KindPersistenceFailure, "persist own redealt keys", err)
	}
	d.keys.activate(myShare, newPub)
	d.cfg.MinSigners = d.cfg.NewMinSigners
	d.cfg.MaxSigners = d.cfg.NewMaxSigners
	d.refr.set(false)
	metrics.Refreshing.Set(0)

	metrics.CeremonyDuration.WithLabelValues("redeal", "ok").Observe(time.Since(start).Seconds())
	d.log.Infow("redeal complete", "group_key", fmt.Sprintf("%x", newPub.GroupVerifyingKeyBytes()), "new_min", d.cfg.NewMinSigners, "new_max", d.cfg.NewMaxSigners)
	return nil
}

func (d *Daemon) getRedealShare(ctx context.Context, url string, out *redealShareResponse) error {
	return d.postJSON(ctx, url+"/redeal/share", struct{}{}, out)
}
