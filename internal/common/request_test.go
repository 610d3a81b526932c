package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Toronto"}`))
	}))
	defer srv.Close()

	cfg := RequestConfig{Client: srv.Client(), Breaker: NewBreaker("test")}

	var out struct {
		Name string `json:"name"`
	}
	err := FetchJSON(context.Background(), cfg, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Toronto", out.Name)
}

func TestDoRequestStatusErrors(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrUnexpectedStatus},
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusBadGateway, ErrServerError},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))

		_, err := DoRequest(context.Background(), RequestConfig{Client: srv.Client()}, func() (*http.Request, error) {
			return http.NewRequest(http.MethodGet, srv.URL, nil)
		})
		srv.Close()

		require.Error(t, err)
		assert.True(t, errors.Is(err, tc.want), "status %d: got %v", tc.status, err)
	}
}

func TestFetchJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := FetchJSON(context.Background(), RequestConfig{Client: srv.Client()}, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, srv.URL, nil)
	}, &out)

	assert.Error(t, err)
}

func TestDoRequestWithoutClient(t *testing.T) {
	_, err := DoRequest(context.Background(), RequestConfig{}, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	})
	assert.ErrorIs(t, err, ErrNoHTTPClient)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 43.65323, RoundTo(43.6532261, 5))
	assert.Equal(t, -79.38318, RoundTo(-79.3831841, 5))
	assert.Equal(t, 43.6532, RoundTo(43.65323, 4))

	assert.Equal(t, 20, RoundHalfUp(20.3))
	assert.Equal(t, 23, RoundHalfUp(22.5))
	assert.Equal(t, -2, RoundHalfUp(-2.5))
}
