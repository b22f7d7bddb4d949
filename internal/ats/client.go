package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/job-ingest/internal/fetch"
)

// DefaultTimeout bounds a single ATS API call.
const DefaultTimeout = 20 * time.Second

// Error describes a failed ATS API call. StatusCode is zero when no
// response was received.
type Error struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ats request %s: %s (status %d)", e.URL, e.Message, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("ats request %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("ats request %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound reports whether the API said the record does not exist.
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
}

// Transport reports whether the call failed before any response arrived.
func (e *Error) Transport() bool {
	return e.StatusCode == 0 && e.Cause != nil
}

func newHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// rebase points rawURL at baseURL, keeping path and query, but only when
// rawURL is on the public API host. URLs built from a source's own base
// URL are already where they should go. An empty baseURL leaves rawURL
// unchanged.
func rebase(rawURL, publicBase, baseURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		return rawURL, nil
	}
	if pub, err := url.Parse(publicBase); err == nil && !strings.EqualFold(u.Host, pub.Host) {
		return rawURL, nil
	}
	b, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u.Scheme = b.Scheme
	u.Host = b.Host
	return u.String(), nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return &Error{URL: rawURL, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{URL: rawURL, StatusCode: resp.StatusCode, Message: "unexpected status"}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{URL: rawURL, Message: "invalid JSON response", Cause: err}
	}
	return nil
}
