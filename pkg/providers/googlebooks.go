package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shelfscan/shelfscan/pkg/htmlutil"
	"github.com/shelfscan/shelfscan/pkg/isbn"
)

// GoogleBooks queries the Google Books volumes API by ISBN.
type GoogleBooks struct {
	baseURL    string
	http       *http.Client
	retryDelay time.Duration
}

func NewGoogleBooks(baseURL string, hc *http.Client, retryDelay time.Duration) *GoogleBooks {
	return &GoogleBooks{baseURL: strings.TrimSuffix(baseURL, "/"), http: hc, retryDelay: retryDelay}
}

// googleBooksVolumesResp is the response from GET /books/v1/volumes?q=isbn:...
type googleBooksVolumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Subtitle      string   `json:"subtitle"`
			Authors       []string `json:"authors"`
			Publisher     string   `json:"publisher"`
			PublishedDate string   `json:"publishedDate"`
			Description   string   `json:"description"`
			Categories    []string `json:"categories"`
			PageCount     int      `json:"pageCount"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (c *GoogleBooks) Name() isbn.Provider {
	return isbn.ProviderGoogleBooks
}

func (c *GoogleBooks) Fetch(ctx context.Context, id *isbn.Identifier) (*LookupResult, error) {
	result := &LookupResult{Provider: c.Name()}

	lookup := id.LookupISBN()
	if lookup == "" {
		return result, nil
	}

	q := url.Values{}
	q.Set("q", "isbn:"+lookup)
	u := fmt.Sprintf("%s/books/v1/volumes?%s", c.baseURL, q.Encode())

	var payload googleBooksVolumesResp
	err := getJSONWithRetry(ctx, c.http, c.retryDelay, u, &payload)
	if err == errNotFound {
		return result, nil
	}
	if err != nil {
		return nil, &Unavailable{Provider: c.Name(), Err: err}
	}

	if payload.TotalItems == 0 || len(payload.Items) == 0 {
		return result, nil
	}

	vi := payload.Items[0].VolumeInfo

	result.Found = true
	result.Title = vi.Title
	if vi.Subtitle != "" {
		result.Title = vi.Title + ": " + vi.Subtitle
	}
	result.Author = strings.Join(vi.Authors, ", ")
	result.Publisher = vi.Publisher
	result.Summary = htmlutil.StripTags(vi.Description)
	result.Raw = map[string]interface{}{
		"published_date": vi.PublishedDate,
		"categories":     vi.Categories,
		"page_count":     vi.PageCount,
	}
	return result, nil
}
