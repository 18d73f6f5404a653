package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/pkg/isbn"
)

// UPCItemDB looks up generic product codes on upcitemdb.com. It's the only
// source for non-Bookland barcodes; it never carries a summary, so books
// found here stay sparse unless the UPC embeds an ISBN.
type UPCItemDB struct {
	baseURL    string
	http       *http.Client
	retryDelay time.Duration
}

func NewUPCItemDB(baseURL string, hc *http.Client, retryDelay time.Duration) *UPCItemDB {
	return &UPCItemDB{baseURL: strings.TrimSuffix(baseURL, "/"), http: hc, retryDelay: retryDelay}
}

// upcItemDBResp is the response from GET /prod/trial/lookup?upc=...
type upcItemDBResp struct {
	Code  string `json:"code"`
	Items []struct {
		Title       string `json:"title"`
		Brand       string `json:"brand"`
		Category    string `json:"category"`
		Description string `json:"description"`
		ISBN        string `json:"isbn"`
	} `json:"items"`
}

func (c *UPCItemDB) Name() isbn.Provider {
	return isbn.ProviderUPCItemDB
}

func (c *UPCItemDB) Fetch(ctx context.Context, id *isbn.Identifier) (*LookupResult, error) {
	result := &LookupResult{Provider: c.Name()}

	q := url.Values{}
	q.Set("upc", id.Code)
	u := fmt.Sprintf("%s/prod/trial/lookup?%s", c.baseURL, q.Encode())

	var payload upcItemDBResp
	err := getJSONWithRetry(ctx, c.http, c.retryDelay, u, &payload)
	if err == errNotFound {
		return result, nil
	}
	if err != nil {
		return nil, &Unavailable{Provider: c.Name(), Err: err}
	}

	if payload.Code != "OK" || len(payload.Items) == 0 {
		return result, nil
	}

	item := payload.Items[0]

	result.Found = true
	result.Title = item.Title
	// For books the brand field carries the publisher, not the author.
	result.Publisher = item.Brand
	result.Raw = map[string]interface{}{
		"category": item.Category,
		"isbn":     item.ISBN,
	}
	return result, nil
}
