package guardian

import (
	"fmt"

	"github.com/frostfed/guardian/internal/frost"
)

// PeerTable maps every other participant's Identifier to the URL a
// ceremony coroutine should call. Built once at startup from the
// guardian's own share index, the topology's max_signers, and the
// operator-supplied ordered peer URL list: peers are given in
// ascending share-index order with our own index skipped, so the j-th
// URL corresponds to the j-th identifier in {1..n}\{k}.
type PeerTable struct {
	urlByID map[frost.Identifier]string
	idByURL map[string]frost.Identifier
}

// NewPeerTable builds the table for a guardian at share index myIndex
// in a max-signers-n topology, given peers in ascending-index order
// with myIndex already excluded.
func NewPeerTable(myIndex, maxSigners uint16, peers []string) (*PeerTable, error) {
	expected := int(maxSigners) - 1
	if len(peers) != expected {
		return nil, fmt.Errorf("guardian: peer table needs %d peer URLs for max_signers=%d, got %d", expected, maxSigners, len(peers))
	}

	t := &PeerTable{
		urlByID: make(map[frost.Identifier]string, len(peers)),
		idByURL: make(map[string]frost.Identifier, len(peers)),
	}

	j := 0
	for i := uint16(1); i <= maxSigners; i++ {
		if i == myIndex {
			continue
		}
		id := frost.MustIdentifier(i)
		t.urlByID[id] = peers[j]
		t.idByURL[peers[j]] = id
		j++
	}
	return t, nil
}

func (t *PeerTable) URLFor(id frost.Identifier) (string, bool) {
	url, ok := t.urlByID[id]
	return url, ok
}

func (t *PeerTable) Identifiers() []frost.Identifier {
	ids := make([]frost.Identifier, 0, len(t.urlByID))
	for id := range t.urlByID {
		ids = append(ids, id)
	}
	return ids
}

func (t *PeerTable) URLs() []string {
	urls := make([]string, 0, len(t.idByURL))
	for url := range t.idByURL {
		urls = append(urls, url)
	}
	return urls
}

func (t *PeerTable) Len() int { return len(t.urlByID) }
