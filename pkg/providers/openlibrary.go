package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/pkg/htmlutil"
	"github.com/shelfscan/shelfscan/pkg/isbn"
)

// OpenLibrary looks up editions on openlibrary.org by ISBN.
//
// The edition endpoint doesn't carry author names (only work references), so
// Author is always empty; the pipeline's field-level merge fills it from
// Google Books.
type OpenLibrary struct {
	baseURL    string
	http       *http.Client
	retryDelay time.Duration
}

func NewOpenLibrary(baseURL string, hc *http.Client, retryDelay time.Duration) *OpenLibrary {
	return &OpenLibrary{baseURL: strings.TrimSuffix(baseURL, "/"), http: hc, retryDelay: retryDelay}
}

func (c *OpenLibrary) Name() isbn.Provider {
	return isbn.ProviderOpenLibrary
}

func (c *OpenLibrary) Fetch(ctx context.Context, id *isbn.Identifier) (*LookupResult, error) {
	result := &LookupResult{Provider: c.Name()}

	lookup := id.LookupISBN()
	if lookup == "" {
		return result, nil
	}

	// The edition JSON is polymorphic (description is a string or a
	// {type, value} object), so decode into a map and pick fields out.
	var payload map[string]interface{}
	url := fmt.Sprintf("%s/isbn/%s.json", c.baseURL, lookup)
	err := getJSONWithRetry(ctx, c.http, c.retryDelay, url, &payload)
	if err == errNotFound {
		return result, nil
	}
	if err != nil {
		return nil, &Unavailable{Provider: c.Name(), Err: err}
	}

	result.Found = true
	result.Raw = payload
	result.Title, _ = payload["title"].(string)
	result.Publisher = joinStrings(payload["publishers"])
	result.Summary = htmlutil.StripTags(descriptionText(payload["description"]))
	return result, nil
}

// descriptionText handles both description encodings Open Library uses.
func descriptionText(v interface{}) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]interface{}:
		s, _ := d["value"].(string)
		return s
	}
	return ""
}

// joinStrings flattens a decoded JSON array of strings into a comma-separated
// list, skipping anything that isn't a string.
func joinStrings(v interface{}) string {
	items, ok := v.([]interface{})
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
