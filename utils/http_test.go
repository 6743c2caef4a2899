package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	ae := &APIError{Code: 500, Message: "internal"}
	assert.Equal(t, "internal", ae.Error())
}

func TestCheckReachable(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"unauthorized is alive", http.StatusUnauthorized, false},
		{"method not allowed is alive", http.StatusMethodNotAllowed, false},
		{"bad gateway", http.StatusBadGateway, true},
		{"internal", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))
			defer srv.Close()

			body, err := CheckReachable(context.Background(), NewHTTPClient(), srv.URL)
			assert.Equal(t, "body", string(body))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsServerError(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckReachable_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := CheckReachable(context.Background(), NewHTTPClient(), url)
	require.Error(t, err)
	assert.False(t, IsServerError(err))
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	n, err := Retry(context.Background(), 5, time.Millisecond, func(int) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, calls)
}

func TestRetry_Bounded(t *testing.T) {
	calls := 0
	n, err := Retry(context.Background(), 4, time.Millisecond, func(int) error {
		calls++
		return errors.New("fail")
	})
	require.EqualError(t, err, "fail")
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, calls)
}

func TestRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, 10, time.Hour, func(int) error {
		calls++
		cancel()
		return errors.New("fail")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPollN(t *testing.T) {
	calls := 0
	ok := PollN(context.Background(), 3, time.Millisecond, func() bool {
		calls++
		return false
	})
	assert.False(t, ok)
	assert.Equal(t, 3, calls)

	calls = 0
	ok = PollN(context.Background(), 3, time.Millisecond, func() bool {
		calls++
		return calls == 2
	})
	assert.True(t, ok)
	assert.Equal(t, 2, calls)
}
