package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/protocol"
)

func newTestClient(t *testing.T, srv *httptest.Server, parser string) (*Client, *Metrics) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Server = srv.URL
	cfg.Parser = parser
	m := NewMetrics(prometheus.NewRegistry())
	c, err := NewClient(cfg, WithMetrics(m))
	require.NoError(t, err)
	return c, m
}

func TestClient_Ask_OK(t *testing.T) {
	var gotBody, gotType, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultPath, r.URL.Path)
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get(RequestIDHeader)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"code":0,"message":"OK","data":{"stawidth":"4"}}`))
	}))
	defer srv.Close()

	for _, parser := range []string{protocol.ParserScan, protocol.ParserStructured} {
		t.Run(parser, func(t *testing.T) {
			c, m := newTestClient(t, srv, parser)
			req := protocol.NewRequest("db", "public", "t", "videx_get_relation_stats", "")

			resp, err := c.Ask(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, "4", resp.Data["stawidth"])
			assert.Equal(t, "application/json", gotType)
			assert.NotEmpty(t, gotID)
			assert.Equal(t, req.ToJSON(), gotBody)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("videx_get_relation_stats", resultOK)))
		})
	}
}

func TestClient_Ask_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"message":"no such table","data":{}}`))
	}))
	defer srv.Close()

	c, m := newTestClient(t, srv, "")
	resp, err := c.Ask(context.Background(), protocol.NewRequest("db", "s", "t", "f", ""))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 1, resp.Code)
	assert.True(t, domain.IsRecoverable(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("f", resultNoStats)))
}

func TestClient_Ask_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "")
	resp, err := c.Ask(context.Background(), protocol.NewRequest("db", "s", "t", "f", ""))
	assert.Nil(t, resp)
	var perr *domain.ErrProtocol
	assert.ErrorAs(t, err, &perr)
}

func TestClient_Ask_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv, "")
	_, err := c.Ask(context.Background(), protocol.NewRequest("db", "s", "t", "f", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.True(t, domain.IsRecoverable(err))
}

func TestClient_Ask_EnvelopeWithErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		wantErr bool
	}{
		{"not OK envelope on 503", http.StatusServiceUnavailable, `{"code":1,"message":"relation orders is not analyzed","data":{}}`, "relation orders is not analyzed", true},
		{"OK envelope on 404", http.StatusNotFound, `{"code":0,"message":"OK","data":{"value":"42"}}`, "OK", false},
	}
	for _, parser := range []string{protocol.ParserStructured, protocol.ParserScan} {
		for _, tt := range tests {
			t.Run(parser+"/"+tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(tt.body))
				}))
				defer srv.Close()

				c, _ := newTestClient(t, srv, parser)
				resp, err := c.Ask(context.Background(), protocol.NewRequest("db", "s", "t", "f", ""))
				require.NotNil(t, resp)
				assert.Equal(t, tt.wantMsg, resp.Message)
				if tt.wantErr {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantMsg)
					assert.NotContains(t, err.Error(), "HTTP status")
					assert.True(t, domain.IsRecoverable(err))
				} else {
					require.NoError(t, err)
				}
			})
		}
	}
}

func TestClient_Ask_Transport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	cfg := DefaultConfig()
	cfg.Server = url
	cfg.ConnectTimeout = time.Second
	c, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), protocol.NewRequest("db", "s", "t", "f", ""))
	var terr *domain.ErrTransport
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, c.Endpoint(), terr.Endpoint)
	assert.True(t, domain.IsRecoverable(err))
}

func TestClient_Ask_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	cfg := DefaultConfig()
	cfg.Server = srv.URL
	cfg.ConnectTimeout = 50 * time.Millisecond
	cfg.Timeout = 100 * time.Millisecond
	c, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), protocol.NewRequest("db", "s", "t", "f", ""))
	var terr *domain.ErrTransport
	assert.ErrorAs(t, err, &terr)
}

func TestConfig_Endpoint(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{DefaultConfig(), "http://127.0.0.1:5001/ask_videx"},
		{Config{Server: "stats:9000"}, "http://stats:9000/ask_videx"},
		{Config{Server: "https://stats/", Path: "v1/ask"}, "https://stats/v1/ask"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.Endpoint())
	}
}

func TestConfig_WithEnv(t *testing.T) {
	t.Setenv(ServerEnv, "10.0.0.1:7000")
	cfg := DefaultConfig().WithEnv()
	assert.Equal(t, "10.0.0.1:7000", cfg.Server)
	assert.True(t, strings.HasSuffix(cfg.Endpoint(), "10.0.0.1:7000/ask_videx"))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = time.Minute
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Parser = "regex"
	assert.Error(t, cfg.Validate())

	assert.NoError(t, DefaultConfig().Validate())
}
