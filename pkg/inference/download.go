package inference

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chazu/whitedwarf/internal/atomicfile"
)

// Download fetches url into dest. dest is replaced atomically, so a failed
// transfer leaves no partial file.
func Download(ctx context.Context, client *http.Client, url, dest string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("inference: download %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("inference: download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference: download %s: status %d", url, resp.StatusCode)
	}
	if err := atomicfile.Write(ctx, dest, resp.Body); err != nil {
		return fmt.Errorf("inference: download %s: %w", url, err)
	}
	return nil
}
