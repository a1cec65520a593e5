package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/buildcache/buildcache/internal/core/domain"
	"go.trai.ch/zerr"
)

// HTTPProvider is a single-endpoint GET/PUT/HEAD RemoteProvider. A single
// net/http.Client covers this entire surface; none of the corpus's HTTP
// client wrappers add anything a plain client doesn't already give for a
// three-verb blob store, so this stays on the standard library by design.
type HTTPProvider struct {
	baseURL  string
	client   *http.Client
	readOnly bool
}

// New creates an HTTPProvider addressing baseURL, with every request bounded
// by timeout.
func New(baseURL string, timeout time.Duration, readOnly bool) *HTTPProvider {
	return &HTTPProvider{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout},
		readOnly: readOnly,
	}
}

func (p *HTTPProvider) url(entryKey domain.EntryKey) string {
	return p.baseURL + "/entries/" + string(entryKey)
}

// Has issues a HEAD request for entryKey.
func (p *HTTPProvider) Has(ctx context.Context, entryKey domain.EntryKey) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url(entryKey), nil)
	if err != nil {
		return false, zerr.Wrap(err, "failed to build HEAD request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, zerr.Wrap(domain.ErrRemoteUnavailable, err.Error())
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Get issues a GET request for entryKey, decoding the body into a CacheEntry.
func (p *HTTPProvider) Get(ctx context.Context, entryKey domain.EntryKey) (domain.CacheEntry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url(entryKey), nil)
	if err != nil {
		return domain.CacheEntry{}, false, zerr.Wrap(err, "failed to build GET request")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return domain.CacheEntry{}, false, zerr.Wrap(domain.ErrRemoteUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.CacheEntry{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return domain.CacheEntry{}, false, zerr.With(zerr.Wrap(domain.ErrRemoteUnavailable, "unexpected status"), "status", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.CacheEntry{}, false, zerr.Wrap(err, "failed to read remote entry body")
	}
	entry, err := decodeEntry(body)
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	return entry, true, nil
}

// Put uploads entry under entryKey via PUT. Callers are expected to invoke
// this from a detached task; it performs a plain blocking HTTP call.
func (p *HTTPProvider) Put(ctx context.Context, entryKey domain.EntryKey, entry domain.CacheEntry) error {
	if p.readOnly {
		return nil
	}
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.url(entryKey), bytes.NewReader(data))
	if err != nil {
		return zerr.Wrap(err, "failed to build PUT request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return zerr.Wrap(domain.ErrRemoteUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return zerr.With(zerr.Wrap(domain.ErrRemoteUnavailable, "unexpected status on put"), "status", resp.StatusCode)
	}
	return nil
}

// ReadOnly reports whether Put is a no-op.
func (p *HTTPProvider) ReadOnly() bool { return p.readOnly }
