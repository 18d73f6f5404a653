package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/shelfscan/shelfscan/pkg/isbn"
)

func mustResolve(t *testing.T, code string) *isbn.Identifier {
	t.Helper()
	id, err := isbn.Resolve(code)
	require.NoError(t, err)
	return id
}

func TestOpenLibraryFetch(t *testing.T) {
	t.Parallel()

	t.Run("maps the edition fields", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/isbn/9780134685991.json", r.URL.Path)
			w.Write([]byte(`{
				"title": "Effective Java",
				"publishers": ["Addison-Wesley"],
				"description": "Best practices for the <b>Java</b> platform."
			}`))
		}))
		defer srv.Close()

		client := NewOpenLibrary(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.True(t, result.Found)
		assert.Equal(t, isbn.ProviderOpenLibrary, result.Provider)
		assert.Equal(t, "Effective Java", result.Title)
		assert.Equal(t, "", result.Author)
		assert.Equal(t, "Addison-Wesley", result.Publisher)
		assert.Equal(t, "Best practices for the Java platform.", result.Summary)
	})

	t.Run("handles the object description encoding", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"title": "Effective Java",
				"description": {"type": "/type/text", "value": "Wrapped description."}
			}`))
		}))
		defer srv.Close()

		client := NewOpenLibrary(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.Equal(t, "Wrapped description.", result.Summary)
	})

	t.Run("treats 404 as a miss", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewOpenLibrary(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.False(t, result.Found)
	})

	t.Run("retries once then succeeds", func(t *testing.T) {
		t.Parallel()

		var calls int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt64(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"title": "Effective Java"}`))
		}))
		defer srv.Close()

		client := NewOpenLibrary(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.True(t, result.Found)
		assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
	})

	t.Run("reports unavailable after the retry", func(t *testing.T) {
		t.Parallel()

		var calls int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewOpenLibrary(srv.URL, srv.Client(), time.Millisecond)
		_, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))

		var unavailable *Unavailable
		require.ErrorAs(t, err, &unavailable)
		assert.Equal(t, isbn.ProviderOpenLibrary, unavailable.Provider)
		assert.EqualValues(t, 2, atomic.LoadInt64(&calls))
	})

	t.Run("reports unavailable on malformed JSON", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"title": `))
		}))
		defer srv.Close()

		client := NewOpenLibrary(srv.URL, srv.Client(), time.Millisecond)
		_, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))

		var unavailable *Unavailable
		require.ErrorAs(t, err, &unavailable)
	})
}

func TestGoogleBooksFetch(t *testing.T) {
	t.Parallel()

	t.Run("maps the first volume", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/books/v1/volumes", r.URL.Path)
			assert.Equal(t, "isbn:9780134685991", r.URL.Query().Get("q"))
			w.Write([]byte(`{
				"totalItems": 1,
				"items": [{
					"volumeInfo": {
						"title": "Effective Java",
						"subtitle": "Third Edition",
						"authors": ["Joshua Bloch"],
						"publisher": "Addison-Wesley",
						"description": "A guide to the Java platform."
					}
				}]
			}`))
		}))
		defer srv.Close()

		client := NewGoogleBooks(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.True(t, result.Found)
		assert.Equal(t, "Effective Java: Third Edition", result.Title)
		assert.Equal(t, "Joshua Bloch", result.Author)
		assert.Equal(t, "Addison-Wesley", result.Publisher)
		assert.Equal(t, "A guide to the Java platform.", result.Summary)
	})

	t.Run("joins multiple authors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{
				"totalItems": 1,
				"items": [{"volumeInfo": {"title": "SICP", "authors": ["Harold Abelson", "Gerald Jay Sussman"]}}]
			}`))
		}))
		defer srv.Close()

		client := NewGoogleBooks(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.Equal(t, "Harold Abelson, Gerald Jay Sussman", result.Author)
	})

	t.Run("treats an empty volume list as a miss", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"totalItems": 0}`))
		}))
		defer srv.Close()

		client := NewGoogleBooks(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "9780134685991"))
		require.NoError(t, err)

		assert.False(t, result.Found)
	})
}

func TestUPCItemDBFetch(t *testing.T) {
	t.Parallel()

	t.Run("maps brand to publisher", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/prod/trial/lookup", r.URL.Path)
			assert.Equal(t, "036000291452", r.URL.Query().Get("upc"))
			w.Write([]byte(`{
				"code": "OK",
				"items": [{"title": "Board Book Collection", "brand": "Scholastic", "category": "Media > Books"}]
			}`))
		}))
		defer srv.Close()

		client := NewUPCItemDB(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "036000291452"))
		require.NoError(t, err)

		assert.True(t, result.Found)
		assert.Equal(t, "Board Book Collection", result.Title)
		assert.Equal(t, "", result.Author)
		assert.Equal(t, "Scholastic", result.Publisher)
		assert.Equal(t, "", result.Summary)
	})

	t.Run("treats a non-OK code as a miss", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code": "INVALID_UPC", "items": []}`))
		}))
		defer srv.Close()

		client := NewUPCItemDB(srv.URL, srv.Client(), time.Millisecond)
		result, err := client.Fetch(context.Background(), mustResolve(t, "036000291452"))
		require.NoError(t, err)

		assert.False(t, result.Found)
	})
}

func TestLookupResultComplete(t *testing.T) {
	t.Parallel()

	full := &LookupResult{Found: true, Title: "t", Author: "a", Summary: "s"}
	assert.True(t, full.Complete())

	assert.False(t, (&LookupResult{Found: false, Title: "t", Author: "a", Summary: "s"}).Complete())
	assert.False(t, (&LookupResult{Found: true, Author: "a", Summary: "s"}).Complete())
	assert.False(t, (&LookupResult{Found: true, Title: "t", Summary: "s"}).Complete())
	assert.False(t, (&LookupResult{Found: true, Title: "t", Author: "a"}).Complete())

	// Publisher is optional on purpose.
	assert.True(t, (&LookupResult{Found: true, Title: "t", Author: "a", Summary: "s", Publisher: ""}).Complete())
}
