package classifier_test

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toxbot/toxbot/internal/classifier"
	"github.com/toxbot/toxbot/internal/setup/config"
	"go.uber.org/zap"
)

func newClient(t *testing.T, endpoint string) *classifier.Client {
	t.Helper()

	return classifier.New(&config.ClassifierConfig{
		Endpoint:       endpoint,
		UserAgent:      "toxbot-test",
		RequestTimeout: 2000,
	}, zap.NewNop())
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		expected float64
	}{
		{
			name: "valid score",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"predictions": [[0.75]]}`))
			},
			expected: 0.75,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expected: 0.0,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"predictions": [[0.7`))
			},
			expected: 0.0,
		},
		{
			name: "missing predictions key",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"results": [[0.9]]}`))
			},
			expected: 0.0,
		},
		{
			name: "empty predictions",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"predictions": []}`))
			},
			expected: 0.0,
		},
		{
			name: "score above one is clamped",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"predictions": [[1.7]]}`))
			},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newClient(t, server.URL)
			assert.InDelta(t, tt.expected, client.Classify(t.Context(), "some message"), 1e-9)
		})
	}
}

func TestClassifyConnectionRefused(t *testing.T) {
	t.Parallel()

	// Grab an address nothing is listening on
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := newClient(t, endpoint)
	assert.InDelta(t, 0.0, client.Classify(t.Context(), "anything"), 1e-9)
}

func TestClassifyRequestShape(t *testing.T) {
	t.Parallel()

	var (
		gotPath           string
		gotUserAgent      string
		gotContentType    string
		gotAcceptEncoding string
		gotBody           []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUserAgent = r.Header.Get("User-Agent")
		gotContentType = r.Header.Get("Content-Type")
		gotAcceptEncoding = r.Header.Get("Accept-Encoding")

		gotBody, _ = io.ReadAll(r.Body)

		w.Write([]byte(`{"predictions": [[0.1]]}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL+"/v1/models/toxicity:predict")
	score := client.Classify(t.Context(), "hello there")

	require.InDelta(t, 0.1, score, 1e-9)
	assert.Equal(t, "/v1/models/toxicity:predict", gotPath)
	assert.Equal(t, "toxbot-test", gotUserAgent)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "gzip", gotAcceptEncoding)
	assert.JSONEq(t, `{"instances": [["hello there"]]}`, string(gotBody))
}

func TestClassifyGzippedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var compressed bytes.Buffer

		gz := gzip.NewWriter(&compressed)
		gz.Write([]byte(`{"predictions": [[0.42]]}`))
		gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		w.Write(compressed.Bytes())
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	assert.InDelta(t, 0.42, client.Classify(t.Context(), "hello there"), 1e-9)
}

func TestClassifyCorruptGzippedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write([]byte("not gzip at all"))
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	assert.InDelta(t, 0.0, client.Classify(t.Context(), "hello there"), 1e-9)
}
