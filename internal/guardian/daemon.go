// Package guardian implements the per-node federation daemon: it
// loads or acquires one FROST-Ed25519 share, serves the signing/DKG/
// refresh/redeal HTTP surface, and runs the corresponding ceremony
// coroutines.
package guardian

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/handlers"
	"github.com/jonboulle/clockwork"

	"github.com/frostfed/guardian/internal/frost"
	"github.com/frostfed/guardian/internal/log"
	"github.com/frostfed/guardian/internal/metrics"
	"github.com/frostfed/guardian/internal/sharestore"
)

// Config is everything a Daemon needs to boot, drawn directly from the
// guardian CLI flags plus the ambient cache-dir/roster additions.
type Config struct {
	ShareIndex    uint16
	Port          int
	MaxSigners    uint16
	MinSigners    uint16
	Peers         []string // ascending index order, self excluded
	Refresh       bool
	Redeal        bool
	OldPeers      []string
	NewMaxSigners uint16
	NewMinSigners uint16
	CacheDir      string
	Logger        log.Logger
	Clock         clockwork.Clock
}

// Daemon is one guardian node.
type Daemon struct {
	cfg    Config
	log    log.Logger
	store  *sharestore.Store
	keys   *keys
	refr   refreshingFlag
	nonces *nonceCache
	client *http.Client

	dkgR1     *round1Inbox
	dkgR2     *round2Inbox
	refreshR1 *round1Inbox
	refreshR2 *round2Inbox

	peerTable *PeerTable
	router    http.Handler
}

// New constructs a Daemon without starting any I/O. Call Run to boot
// it according to the startup-mode decision table in boot.
func New(cfg Config) (*Daemon, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	maxForTable := cfg.MaxSigners
	if cfg.Redeal {
		maxForTable = cfg.NewMaxSigners
	}
	var peerTable *PeerTable
	if len(cfg.Peers) > 0 {
		pt, err := NewPeerTable(cfg.ShareIndex, maxForTable, cfg.Peers)
		if err != nil {
			return nil, err
		}
		peerTable = pt
	}

	d := &Daemon{
		cfg:       cfg,
		log:       cfg.Logger.Named("guardian"),
		store:     sharestore.New(cfg.CacheDir),
		keys:      newKeys(),
		nonces:    newNonceCache(cfg.Clock),
		client:    &http.Client{Timeout: 10 * time.Second},
		dkgR1:     newRound1Inbox(),
		dkgR2:     newRound2Inbox(),
		refreshR1: newRound1Inbox(),
		refreshR2: newRound2Inbox(),
		peerTable: peerTable,
	}
	d.router = d.buildRouter()
	return d, nil
}

func (d *Daemon) Handler() http.Handler { return d.router }

func (d *Daemon) buildRouter() http.Handler {
	mux := chi.NewRouter()
	mux.Post("/round1", d.handleRound1)
	mux.Post("/round2", d.handleRound2)
	mux.Get("/public-key", d.handlePublicKey)
	mux.Get("/config", d.handleConfig)
	mux.Get("/health", d.handleHealth)
	mux.Post("/dkg/round1", d.handleDkgRound1)
	mux.Post("/dkg/round2", d.handleDkgRound2)
	mux.Post("/refresh/round1", d.handleRefreshRound1)
	mux.Post("/refresh/round2", d.handleRefreshRound2)
	mux.Post("/redeal/share", d.handleRedealShare)
	mux.Post("/redeal/receive", d.handleRedealReceive)
	mux.Get("/metrics", metrics.Handler().ServeHTTP)

	return handlers.CombinedLoggingHandler(combinedLogWriter{d.log}, mux)
}

// combinedLogWriter adapts the guardian Logger to io.Writer so
// gorilla/handlers' access-log middleware can write through it.
type combinedLogWriter struct{ l log.Logger }

func (w combinedLogWriter) Write(p []byte) (int, error) {
	w.l.Infow("access", "line", string(p))
	return len(p), nil
}

// Run serves HTTP until ctx is done and, alongside, boots the daemon
// according to the startup-mode table in boot, so peers can reach this
// guardian's /health and ceremony endpoints while a ceremony is in
// progress. A boot failure stops the server and is returned.
func (d *Daemon) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", d.cfg.Port),
		Handler: d.router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	bootCtx, cancelBoot := context.WithCancel(ctx)
	defer cancelBoot()
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
		cancelBoot()
	}()

	d.log.Infow("listening", "port", d.cfg.Port, "share_index", d.cfg.ShareIndex)
	if err := d.boot(bootCtx); err != nil {
		_ = server.Close()
		if sErr := <-serveErr; sErr != nil && sErr != http.ErrServerClosed {
			return fmt.Errorf("guardian: http server: %w", sErr)
		}
		return err
	}
	if err := <-serveErr; err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("guardian: http server: %w", err)
	}
	return nil
}

// boot decides which startup path a guardian takes based on whether it
// already has persisted keys and whether it was launched into a
// refresh, redeal, DKG, or trusted-dealer-bootstrap role.
func (d *Daemon) boot(ctx context.Context) error {
	persisted, hasKeys := d.store.Load(d.cfg.ShareIndex)

	switch {
	case hasKeys && d.cfg.Refresh:
		d.keys.activate(persisted.KeyPackage, persisted.PublicKeyPackage)
		d.log.Infow("activated loaded keys, starting refresh ceremony")
		return d.runRefresh(ctx)

	case hasKeys && d.cfg.Redeal:
		d.keys.activate(persisted.KeyPackage, persisted.PublicKeyPackage)
		d.log.Infow("activated loaded keys, starting redeal ceremony")
		return d.runRedealCoordinator(ctx)

	case hasKeys:
		d.keys.activate(persisted.KeyPackage, persisted.PublicKeyPackage)
		d.log.Infow("loaded keys from disk, serving signings", "min_signers", persisted.KeyPackage.MinSigners)
		return nil

	case len(d.cfg.Peers) > 0:
		d.log.Infow("no keys on disk, starting dkg ceremony")
		return d.runDKG(ctx)

	default:
		d.log.Infow("no keys, no peers: trusted-dealer bootstrap")
		return d.bootstrapDealer()
	}
}

func (d *Daemon) bootstrapDealer() error {
	seed := bootstrapSeed()
	packages, pub, err := frost.Dealer(seed, d.cfg.MinSigners, d.cfg.MaxSigners)
	if err != nil {
		return newError(KindFrostFailure, "dealer bootstrap", err)
	}
	kp, ok := packages[frost.MustIdentifier(d.cfg.ShareIndex)]
	if !ok {
		d.log.Infow("bootstrap seed produces no share for this index, staying idle")
		return nil
	}
	if err := d.store.Save(d.cfg.ShareIndex, sharestore.Persisted{KeyPackage: kp, PublicKeyPackage: pub}); err != nil {
		return newError(KindPersistenceFailure, "persist bootstrap keys", err)
	}
	d.keys.activate(kp, pub)
	d.log.Infow("bootstrap dealer keygen complete", "min_signers", kp.MinSigners)
	return nil
}
