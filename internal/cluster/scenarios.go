package cluster

import (
	"context"
	"fmt"
	"strings"
)

// RefreshAll restarts every known guardian with an extra --refresh
// flag appended to its original args, then waits for the whole
// cluster to answer /health again.
func (c *Cluster) RefreshAll(ctx context.Context) error {
	for _, g := range c.Guardians() {
		if err := c.Kill(g.Index); err != nil {
			return fmt.Errorf("cluster: refresh: kill guardian %d: %w", g.Index, err)
		}
		g.mu.Lock()
		g.extraArgs = append(g.extraArgs, "--refresh")
		g.mu.Unlock()
		if err := g.start(ctx); err != nil {
			return fmt.Errorf("cluster: refresh: restart guardian %d: %w", g.Index, err)
		}
	}
	return c.WaitHealthy(ctx)
}

// StartRedeal kills the guardian at coordinatorIdx and restarts it in
// coordinator role with --redeal, --old-peers, --peers (the new full
// topology), --new-max-signers, and --new-min-signers, growing the
// cluster with any newGuardians not yet spawned.
func (c *Cluster) StartRedeal(ctx context.Context, coordinatorIdx uint16, oldPeerURLs, newPeerURLs []string, newMin, newMax uint16, newGuardians map[uint16][]string) error {
	for idx, args := range newGuardians {
		if _, ok := c.guardian(idx); ok {
			continue
		}
		if _, err := c.Spawn(ctx, idx, 0, args); err != nil {
			return fmt.Errorf("cluster: redeal: spawn new guardian %d: %w", idx, err)
		}
	}

	g, ok := c.guardian(coordinatorIdx)
	if !ok {
		return fmt.Errorf("cluster: redeal: no guardian %d", coordinatorIdx)
	}
	if err := c.Kill(coordinatorIdx); err != nil {
		return fmt.Errorf("cluster: redeal: kill coordinator %d: %w", coordinatorIdx, err)
	}

	g.mu.Lock()
	g.extraArgs = append(g.extraArgs,
		"--redeal",
		"--old-peers", strings.Join(oldPeerURLs, ","),
		"--peers", strings.Join(newPeerURLs, ","),
		"--new-max-signers", fmt.Sprint(newMax),
		"--new-min-signers", fmt.Sprint(newMin),
	)
	g.mu.Unlock()
	if err := g.start(ctx); err != nil {
		return fmt.Errorf("cluster: redeal: restart coordinator %d: %w", coordinatorIdx, err)
	}
	return c.WaitHealthy(ctx)
}

// Grow spawns additional guardians that listen but hold no keys yet,
// ready to receive shares during a later redeal.
func (c *Cluster) Grow(ctx context.Context, indices []uint16, argsByIndex map[uint16][]string) error {
	for _, idx := range indices {
		if _, err := c.Spawn(ctx, idx, 0, argsByIndex[idx]); err != nil {
			return fmt.Errorf("cluster: grow: spawn guardian %d: %w", idx, err)
		}
	}
	return c.WaitHealthy(ctx)
}
