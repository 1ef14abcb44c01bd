package cluster

import (
	"context"
	"net/http"
	"time"
)

func newHealthClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Second}
}

// pingHealth reports whether url's /health endpoint answers 200. It
// deliberately does not parse the "ready" field — startup sequencing
// only needs to know the HTTP server is up, not that the guardian has
// finished a ceremony.
func pingHealth(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
