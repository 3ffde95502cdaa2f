package join

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presensia/presensia-client/internal/api"
	"github.com/presensia/presensia-client/internal/model"
)

func newFlow(t *testing.T, handler http.HandlerFunc) (*Flow, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	apiClient := api.New(server.URL, 5*time.Second, nil, zerolog.Nop())
	return NewFlow(apiClient, zerolog.Nop()), server
}

func TestJoinByCodeEmptyCodeSkipsNetwork(t *testing.T) {
	var calls int64
	flow, _ := newFlow(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	})

	_, err := flow.JoinByCode(context.Background(), "", "student-1")

	assert.ErrorIs(t, err, ErrEmptyCode)
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls))
}

func TestJoinByCodeSuccess(t *testing.T) {
	flow, _ := newFlow(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/class/invite-by-code", r.URL.Path)

		var req model.JoinByCodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ABC123", req.Code)
		assert.Equal(t, "student-1", req.UserID)

		json.NewEncoder(w).Encode(model.JoinByCodeResponse{
			Message: "Joined Physics 101",
			ClassID: "class-9",
		})
	})

	result, err := flow.JoinByCode(context.Background(), "ABC123", "student-1")

	require.NoError(t, err)
	assert.Equal(t, "class-9", result.ClassID)
	assert.Equal(t, "Joined Physics 101", result.Message)
}

func TestJoinByCodeRejectionIsVerbatim(t *testing.T) {
	flow, _ := newFlow(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "You are already a member of this class"})
	})

	_, err := flow.JoinByCode(context.Background(), "ABC123", "student-1")

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "You are already a member of this class", rejected.Message)
}

func TestJoinByCodeScannerGate(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var startedOnce sync.Once

	flow, _ := newFlow(t, func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(started) })
		<-release
		json.NewEncoder(w).Encode(model.JoinByCodeResponse{Message: "ok"})
	})

	done := make(chan error, 1)
	go func() {
		_, err := flow.JoinByCode(context.Background(), "SCAN01", "student-1")
		done <- err
	}()

	// A repeated scan of the same code while the first is in flight is
	// rejected without hitting the network.
	<-started
	_, err := flow.JoinByCode(context.Background(), "SCAN01", "student-1")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)

	// Once resolved the gate reopens.
	_, err = flow.JoinByCode(context.Background(), "SCAN01", "student-1")
	assert.NoError(t, err)
}
