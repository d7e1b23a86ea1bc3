package paysuite

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]interface{}
		wantStatus string
		wantRaw    string
		wantPaidAt bool
	}{
		{
			name:       "paid",
			data:       map[string]interface{}{"status": "paid"},
			wantStatus: StatusCompleted,
			wantRaw:    "paid",
		},
		{
			name: "transaction completed",
			data: map[string]interface{}{
				"status":      "processing",
				"transaction": map[string]interface{}{"status": "completed", "paid_at": "2026-03-01T10:00:00Z"},
			},
			wantStatus: StatusCompleted,
			wantRaw:    "processing",
			wantPaidAt: true,
		},
		{
			name:       "failed",
			data:       map[string]interface{}{"status": "failed"},
			wantStatus: StatusFailed,
			wantRaw:    "failed",
		},
		{
			name:       "pending",
			data:       map[string]interface{}{"status": "pending"},
			wantStatus: StatusPending,
			wantRaw:    "pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path, auth string
			srv := newTestServer(t, map[string]http.HandlerFunc{
				"/payments/": func(w http.ResponseWriter, r *http.Request) {
					path = r.URL.Path
					auth = r.Header.Get("Authorization")
					writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": tt.data})
				},
			})

			c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)
			res, err := c.CheckStatus(context.Background(), "abc-123")
			require.NoError(t, err)

			assert.Equal(t, "/payments/abc-123", path)
			assert.Equal(t, "Bearer k", auth)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantRaw, res.Raw)
			if tt.wantPaidAt {
				require.NotNil(t, res.PaidAt)
				assert.True(t, res.PaidAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
			} else {
				assert.Nil(t, res.PaidAt)
			}
		})
	}
}

func TestCheckStatusPrivateKeyModeIsWebhookOnly(t *testing.T) {
	c := NewClient(Config{Mode: ModePrivateKey, PrivateKey: "pk"}, nil)
	_, err := c.CheckStatus(context.Background(), "abc")
	assert.ErrorIs(t, err, ErrWebhookOnly)
}

func TestCheckStatusNonJSON(t *testing.T) {
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"/payments/": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}, nil)
	_, err := c.CheckStatus(context.Background(), "abc")
	assert.Error(t, err)
}
