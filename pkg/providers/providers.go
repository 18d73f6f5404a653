// Package providers contains the adapters for the external metadata sources.
// Each adapter maps its provider's native schema into the common LookupResult
// shape. A missing record is an expected outcome (Found=false, nil error);
// adapters only return errors for infrastructure failure, and those are
// always *Unavailable so the pipeline can absorb them.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfscan/shelfscan/pkg/config"
	"github.com/shelfscan/shelfscan/pkg/isbn"
)

// LookupResult is the partial record a single provider produced. It's owned
// by the fetch that produced it and discarded after the merge.
type LookupResult struct {
	Provider isbn.Provider
	Found    bool

	Title     string
	Author    string
	Publisher string
	Summary   string

	// Raw holds provider-native fields that don't map onto the common
	// shape, for traceability.
	Raw map[string]interface{}
}

// Complete reports whether the result is populated enough to short-circuit
// the remaining providers.
func (r *LookupResult) Complete() bool {
	return r.Found && r.Title != "" && r.Author != "" && r.Summary != ""
}

// Unavailable is returned when a provider can't be reached or returns a
// malformed response after the bounded retry. It never crosses the pipeline
// boundary.
type Unavailable struct {
	Provider isbn.Provider
	Err      error
}

func (e *Unavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *Unavailable) Unwrap() error {
	return e.Err
}

// Client is a single metadata source queried by identifier.
type Client interface {
	Name() isbn.Provider
	Fetch(ctx context.Context, id *isbn.Identifier) (*LookupResult, error)
}

// Registry maps provider names to their clients so the pipeline can follow
// the priority order an Identifier prescribes.
type Registry map[isbn.Provider]Client

// NewRegistry builds the three production clients from config. They share
// one HTTP client carrying the fixed per-request timeout.
func NewRegistry(cfg *config.Config) Registry {
	hc := &http.Client{Timeout: cfg.ProviderTimeout}
	clients := []Client{
		NewOpenLibrary(cfg.OpenLibraryBaseURL, hc, cfg.ProviderRetryDelay),
		NewGoogleBooks(cfg.GoogleBooksBaseURL, hc, cfg.ProviderRetryDelay),
		NewUPCItemDB(cfg.UPCItemDBBaseURL, hc, cfg.ProviderRetryDelay),
	}

	registry := Registry{}
	for _, c := range clients {
		registry[c.Name()] = c
	}
	return registry
}

// errNotFound distinguishes "the provider has no record" from infrastructure
// failure inside the fetch helpers.
var errNotFound = errors.New("not found")

// getJSON issues a GET and decodes the JSON body into out. A 404 maps to
// errNotFound; transport failures, other non-2xx statuses, and malformed
// bodies are errors.
func getJSON(ctx context.Context, hc *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "malformed response body")
	}
	return nil
}

// getJSONWithRetry is getJSON plus a single retry after retryDelay. Not-found
// is a final answer and is never retried.
func getJSONWithRetry(ctx context.Context, hc *http.Client, retryDelay time.Duration, url string, out interface{}) error {
	err := getJSON(ctx, hc, url, out)
	if err == nil || errors.Is(err, errNotFound) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryDelay):
	}

	return getJSON(ctx, hc, url, out)
}
