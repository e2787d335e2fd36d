package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func downloadToTemp(ctx context.Context, url string) (string, error) {
	f, err := os.CreateTemp("", "fixture-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		os.Remove(f.Name())
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}
	if _, err = io.Copy(f, resp.Body); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
