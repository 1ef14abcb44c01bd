package guardian

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/frostfed/guardian/internal/frost"
	"github.com/frostfed/guardian/internal/metrics"
)

// keys holds the currently activated key material. Readers acquire the
// non-blocking read lock in every /round1, /round2, /public-key, and
// /config handler; the only writer is a ceremony finalize step. A
// signing request must never queue behind a ceremony write — it fails
// fast with NotReady instead.
type keys struct {
	mu    rwGate
	kp    frost.KeyPackage
	pub   frost.PublicKeyPackage
	valid bool
}

// rwGate is a minimal non-blocking read-write mutex built on a buffered
// channel acting as a single write permit, plus a counter of live
// readers. Readers never wait: the signing endpoints need to fail fast
// rather than queue behind a ceremony write.
type rwGate struct {
	writePermit chan struct{}
	readers     int32
}

func newRWGate() *rwGate {
	g := &rwGate{writePermit: make(chan struct{}, 1)}
	g.writePermit <- struct{}{}
	return g
}

// tryRLock acquires a read lock without blocking. It fails only while a
// writer holds the permit.
func (g *rwGate) tryRLock() bool {
	atomic.AddInt32(&g.readers, 1)
	select {
	case permit := <-g.writePermit:
		// No writer was active; immediately return the permit since
		// readers don't hold it exclusively, they just needed to prove
		// none was taken. Re-post it for the next acquirer.
		g.writePermit <- permit
		return true
	default:
		atomic.AddInt32(&g.readers, -1)
		return false
	}
}

func (g *rwGate) runLock() {
	atomic.AddInt32(&g.readers, -1)
}

// lock acquires the exclusive write permit, then blocks until every
// reader that got in before it has called runLock. Ceremony finalize is
// the only caller; it is rare enough that blocking here (not in a
// request handler) is fine.
func (g *rwGate) lock() {
	<-g.writePermit
	for atomic.LoadInt32(&g.readers) != 0 {
		runtime.Gosched()
	}
}

func (g *rwGate) unlock() { g.writePermit <- struct{}{} }

func newKeys() *keys {
	return &keys{mu: *newRWGate()}
}

// read returns a snapshot of the active key package, or ok=false if
// unready or a ceremony is currently writing.
func (k *keys) read() (frost.KeyPackage, frost.PublicKeyPackage, bool) {
	if !k.mu.tryRLock() {
		return frost.KeyPackage{}, frost.PublicKeyPackage{}, false
	}
	defer k.mu.runLock()
	if !k.valid {
		return frost.KeyPackage{}, frost.PublicKeyPackage{}, false
	}
	return k.kp, k.pub, true
}

// activate installs a new key package, overwriting whatever was
// previously active. Callers must have already persisted it via the
// share store — activate never touches disk.
func (k *keys) activate(kp frost.KeyPackage, pub frost.PublicKeyPackage) {
	k.mu.lock()
	defer k.mu.unlock()
	k.kp = kp
	k.pub = pub
	k.valid = true
	metrics.Ready.Set(1)
}

// refreshing is a simple atomic flag read in every /round1, /round2,
// and /health call, and flipped around ceremony execution.
type refreshingFlag struct {
	v int32
}

func (r *refreshingFlag) set(v bool) {
	if v {
		atomic.StoreInt32(&r.v, 1)
	} else {
		atomic.StoreInt32(&r.v, 0)
	}
}

func (r *refreshingFlag) get() bool { return atomic.LoadInt32(&r.v) == 1 }

// identifierSet is a small mutex-guarded set of identifiers. The
// ceremony code does not use it; peer packages are collected in
// round1Inbox and round2Inbox instead.
type identifierSet struct {
	mu   sync.Mutex
	seen map[frost.Identifier]bool
}

func newIdentifierSet() *identifierSet {
	return &identifierSet{seen: make(map[frost.Identifier]bool)}
}

func (s *identifierSet) add(id frost.Identifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = true
}

func (s *identifierSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
