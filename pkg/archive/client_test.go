package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-extractor/pkg/domain"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RequestsPerS = 0 // no throttling in tests
	return cfg
}

func TestFetch_RetriesOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("<dbtplenarprotokoll/>"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), nil)
	body, err := c.Fetch(context.Background(), srv.URL, "xml")
	require.NoError(t, err)
	assert.Equal(t, "<dbtplenarprotokoll/>", string(body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestFetch_NotFoundIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), nil)
	_, err := c.Fetch(context.Background(), srv.URL, "xml")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "permanent failures must not be retried")
}

func TestFetch_ContentTypeMismatchIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>error page</html>"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(), nil)
	_, err := c.Fetch(context.Background(), srv.URL, "xml")
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestFetchFirst_FallsThroughCandidates(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte("<ok/>"))
	}))
	defer good.Close()

	c := NewClient(testConfig(), nil)
	body, err := c.FetchFirst(context.Background(), []string{bad.URL, good.URL}, "xml")
	require.NoError(t, err)
	assert.Equal(t, "<ok/>", string(body))
}

func TestFetchFirst_AllPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(testConfig(), nil)
	_, err := c.FetchFirst(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"}, "xml")
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestCandidateURLs_ExplicitSourcesFirst(t *testing.T) {
	p := &domain.Protocol{
		Period:  20,
		Session: 123,
		Sources: []domain.SourceURL{
			{Variant: domain.VariantXML, URL: "https://example.org/b.xml", Priority: 2},
			{Variant: domain.VariantXML, URL: "https://example.org/a.xml", Priority: 1},
			{Variant: domain.VariantText, URL: "https://example.org/a.txt", Priority: 1},
		},
	}
	urls := CandidateURLs(p, domain.VariantXML)
	require.GreaterOrEqual(t, len(urls), 2+len(defaultXMLPatterns))
	assert.Equal(t, "https://example.org/a.xml", urls[0])
	assert.Equal(t, "https://example.org/b.xml", urls[1])
	assert.Contains(t, urls[2], "20123.xml")
}
