package guardian

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// roster is the optional --roster TOML file: a table mapping share
// index to peer URL, for federations too large for a flat comma list.
// It supplements, never replaces, the --peers/--old-peers flags.
type roster struct {
	Peers map[string]string `toml:"peers"`
}

// LoadRoster parses a roster TOML file and returns peer URLs ordered
// by ascending share index, with selfIndex excluded — the same shape
// PeerTable expects.
func LoadRoster(path string, maxSigners, selfIndex uint16) ([]string, error) {
	var r roster
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, fmt.Errorf("guardian: parse roster %s: %w", path, err)
	}

	urls := make([]string, 0, maxSigners-1)
	for i := uint16(1); i <= maxSigners; i++ {
		if i == selfIndex {
			continue
		}
		url, ok := r.Peers[strconv.Itoa(int(i))]
		if !ok {
			return nil, fmt.Errorf("guardian: roster %s missing entry for share index %d", path, i)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// ParsePeers splits a comma-separated peer URL list, trimming
// whitespace and dropping empty entries.
func ParsePeers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DefaultCacheDir returns the platform cache directory for persisted
// key shares, falling back to the OS temp directory if none is
// configured.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
