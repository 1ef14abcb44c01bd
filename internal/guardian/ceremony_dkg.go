package guardian

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"

	"github.com/frostfed/guardian/internal/frost"
	"github.com/frostfed/guardian/internal/metrics"
	"github.com/frostfed/guardian/internal/sharestore"
)

// runDKG drives the three-part distributed key generation ceremony.
// The daemon does not serve signings until it completes.
func (d *Daemon) runDKG(ctx context.Context) error {
	start := time.Now()
	myID := frost.MustIdentifier(d.cfg.ShareIndex)
	peerIDs := d.peerTable.Identifiers()

	spin := newCeremonySpinner("waiting for peers")
	spin.Start()
	for _, url := range d.peerTable.URLs() {
		if err := d.waitHealthy(ctx, url); err != nil {
			spin.Stop()
			metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "waiting for peer readiness", err)
		}
	}
	spin.Stop()

	secret1, pkg1, err := frost.DkgPart1(myID, d.cfg.MaxSigners, d.cfg.MinSigners, frost.SecureRNG)
	if err != nil {
		metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "dkg part1", err)
	}
	for _, url := range d.peerTable.URLs() {
		if err := d.postJSON(ctx, url+"/dkg/round1", dkgRound1Request{Identifier: myID, Package: pkg1}, nil); err != nil {
			metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "broadcast dkg round1", err)
		}
	}

	if err := d.dkgR1.awaitAtLeast(ctx, len(peerIDs)); err != nil {
		metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
		return newError(KindTransportFailure, "await dkg round1 inbox", err)
	}
	round1Inbox := d.dkgR1.snapshot()

	secret2, outbound, err := frost.DkgPart2(secret1, round1Inbox)
	if err != nil {
		metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "dkg part2", err)
	}
	for recipient, pkg := range outbound {
		url, ok := d.peerTable.URLFor(recipient)
		if !ok {
			metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
			return newError(KindFrostFailure, fmt.Sprintf("no peer URL for identifier %s", recipient), nil)
		}
		if err := d.postJSON(ctx, url+"/dkg/round2", dkgRound2Request{From: myID, Package: pkg}, nil); err != nil {
			metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
			return newError(KindTransportFailure, "send dkg round2", err)
		}
	}

	if err := d.dkgR2.awaitAtLeast(ctx, len(peerIDs)); err != nil {
		metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
		return newError(KindTransportFailure, "await dkg round2 inbox", err)
	}
	round2Inbox := d.dkgR2.snapshot()

	kp, pub, err := frost.DkgPart3(myID, secret2, round1Inbox, round2Inbox, d.cfg.MinSigners)
	if err != nil {
		metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
		return newError(KindFrostFailure, "dkg part3 finalize", err)
	}

	if err := d.store.Save(d.cfg.ShareIndex, sharestore.Persisted{KeyPackage: kp, PublicKeyPackage: pub}); err != nil {
		metrics.CeremonyDuration.WithLabelValues("dkg", "error").Observe(time.Since(start).Seconds())
		return newError(KindPersistenceFailure, "persist dkg keys", err)
	}
	d.keys.activate(kp, pub)

	metrics.CeremonyDuration.WithLabelValues("dkg", "ok").Observe(time.Since(start).Seconds())
	d.log.Infow("dkg complete", "group_key", fmt.Sprintf("%x", pub.GroupVerifyingKeyBytes()))
	return nil
}

// newCeremonySpinner returns a terminal progress indicator for ceremony
// peer-readiness waits; it is purely an operator UX nicety and has no
// protocol effect.
func newCeremonySpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[9], 120*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}
