package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"protect/internal/config"
	"protect/internal/transport"
	"protect/pkg/errx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := transport.New(&config.ProtectConfig{APIURL: srv.URL, APIKey: "k", JWTToken: "jwt"})
	require.NoError(t, err)
	return c
}

func TestDo_JSONRoundTrip(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/p1/stages", r.URL.Path)
		assert.Equal(t, "x", r.URL.Query().Get("stage_name"))
		assert.Equal(t, "k", r.Header.Get(transport.HeaderAPIKey))
		assert.Equal(t, "Bearer jwt", r.Header.Get(transport.HeaderAuthorization))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"n"}`, string(body))
		w.Write([]byte(`{"ok":true}`))
	})

	var out map[string]bool
	err := c.Do(context.Background(), http.MethodPost, "projects/p1/stages", &out,
		transport.WithParams(url.Values{"stage_name": {"x"}}),
		transport.WithJSON(map[string]string{"name": "n"}),
	)
	require.NoError(t, err)
	assert.True(t, out["ok"])
}

func TestDo_StatusError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"bad"}`))
	})

	err := c.Do(context.Background(), http.MethodGet, "projects", nil)
	require.Error(t, err)
	assert.True(t, errx.Is(err, errx.CodeHTTPStatus))
	assert.Equal(t, http.StatusUnprocessableEntity, transport.StatusCode(err))
	assert.Contains(t, err.Error(), `{"detail":"bad"}`)
}

func TestDo_DecodeError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	var out map[string]any
	err := c.Do(context.Background(), http.MethodGet, "healthcheck", &out)
	assert.True(t, errx.Is(err, errx.CodeDecode))
}

func TestDo_ReadTimeout(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		w.Write([]byte(`{}`))
	})

	err := c.Do(context.Background(), http.MethodGet, "slow", nil, transport.WithReadTimeout(20*time.Millisecond))
	assert.True(t, errx.Is(err, errx.CodeTransport))
}

func TestDo_EmptyBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var out json.RawMessage
	require.NoError(t, c.Do(context.Background(), http.MethodPut, "projects/p/stages/s", &out))
	assert.Nil(t, out)
}

func TestNew_MissingURL(t *testing.T) {
	_, err := transport.New(&config.ProtectConfig{})
	assert.True(t, errx.Is(err, errx.CodeConfig))
}
