package collyfetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/realtime-job-ingestor/internal/ingest"
)

func TestFetcherGetPropagatesHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("X-Echo-Accept", r.Header.Get("Accept"))
		w.Header().Set("X-Echo-UA", r.UserAgent())
		_, _ = io.WriteString(w, `{"jobs":[]}`)
	}))
	t.Cleanup(srv.Close)

	f, err := New(Config{UserAgent: "ingest-test/1.0", Timeout: time.Second})
	require.NoError(t, err)

	resp, err := f.Do(context.Background(), ingest.FetchRequest{
		URL:    srv.URL + "/jobs?page=1",
		Header: http.Header{"Accept": {"application/json"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"jobs":[]}`, string(resp.Body))
	require.Equal(t, "application/json", resp.Header.Get("X-Echo-Accept"))
	require.Equal(t, "ingest-test/1.0", resp.Header.Get("X-Echo-UA"))

	// Pages are refetched every cycle.
	resp, err = f.Do(context.Background(), ingest.FetchRequest{URL: srv.URL + "/jobs?page=1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFetcherPostSendsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	f, err := New(Config{})
	require.NoError(t, err)

	resp, err := f.Do(context.Background(), ingest.FetchRequest{
		Method: "post",
		URL:    srv.URL + "/graphql",
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"operationName":"searchJobsV3"}`),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"operationName":"searchJobsV3"}`, string(resp.Body))
}

func TestFetcherReturnsErrorStatusesAsResponses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	f, err := New(Config{})
	require.NoError(t, err)

	resp, err := f.Do(context.Background(), ingest.FetchRequest{URL: srv.URL + "/page/99"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFetcherHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	f, err := New(Config{Timeout: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Do(ctx, ingest.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRejectsBadProxy(t *testing.T) {
	t.Parallel()

	_, err := New(Config{ProxyURL: "::not a url"})
	require.Error(t, err)

	f, err := New(Config{ProxyURL: "http://proxy.internal:3128"})
	require.NoError(t, err)
	transport, ok := f.transport.(*http.Transport)
	require.True(t, ok)
	proxied, err := transport.Proxy(httptest.NewRequest(http.MethodGet, "https://www.loker.id/", nil))
	require.NoError(t, err)
	require.Equal(t, "proxy.internal:3128", proxied.Host)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f, err := New(Config{})
	require.NoError(t, err)
	req := ingest.FetchRequest{
		URL:    "https://example.com",
		Header: http.Header{"X-Trace": {"yes"}},
	}
	var result ingest.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	require.Equal(t, http.StatusCreated, result.StatusCode)
	require.Equal(t, "body", string(result.Body))
	require.Equal(t, "ok", result.Header.Get("X-Resp"))

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f, err := New(Config{})
	require.NoError(t, err)
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(ingest.FetchRequest{}, collyReq)
	require.Empty(t, *collyReq.Headers)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
