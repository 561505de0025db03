package imagepipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const maxImageBytes = 25 << 20

// Downloader copies a remote image into w and reports its content type.
type Downloader interface {
	Download(ctx context.Context, rawURL string, w io.Writer) (string, error)
}

// GuardedDownloader fetches only URLs the Guard accepts, including every
// redirect hop, over a dialer that re-validates the connected address.
type GuardedDownloader struct {
	guard  *Guard
	client *http.Client
}

func NewGuardedDownloader(guard *Guard, timeout time.Duration) *GuardedDownloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: guard.Control}
	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("imagepipe: too many redirects")
			}
			_, err := guard.CheckURL(req.Context(), req.URL.String())
			return err
		},
	}
	return &GuardedDownloader{guard: guard, client: client}
}

func (d *GuardedDownloader) Download(ctx context.Context, rawURL string, w io.Writer) (string, error) {
	u, err := d.guard.CheckURL(ctx, rawURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("imagepipe: build request: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("imagepipe: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imagepipe: download status %d", resp.StatusCode)
	}
	n, err := io.Copy(w, io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("imagepipe: read body: %w", err)
	}
	if n > maxImageBytes {
		return "", fmt.Errorf("imagepipe: image exceeds %d bytes", maxImageBytes)
	}
	return resp.Header.Get("Content-Type"), nil
}
