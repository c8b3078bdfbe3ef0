package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwvelando/boom-bust/internal/config"
	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/session"
	"github.com/iwvelando/boom-bust/pkg/testutil"
)

// newTestHandler runs a session whose clock barely moves with wall time, so
// sequences stay open until a test skips them.
func newTestHandler(t *testing.T, limits Limits) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Director.AutoCloseScenes = true
	cfg.Director.TimeScale = 0.0001

	logger := testutil.Logger(t)
	sess, err := session.New(logger, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sess.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return NewHandler(logger, sess, "test", limits)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func snapshotOf(t *testing.T, rr *httptest.ResponseRecorder) session.Snapshot {
	t.Helper()
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder, status int) string {
	t.Helper()
	require.Equal(t, status, rr.Code, rr.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp["error"]
}

func TestHandleVersion(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	rr := do(t, h, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"version":"test"}`, rr.Body.String())

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodPost, "/api/version", "").Code)
}

func TestHandleState(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	snap := snapshotOf(t, do(t, h, http.MethodGet, "/api/state", ""))
	assert.Equal(t, content.Tutorial, snap.Campaign.Phase)
	assert.Equal(t, 100.0, snap.Ledger.Cash)
	assert.False(t, snap.Campaign.SceneActive, "intro auto-closes")
}

func TestTripSkipAndReport(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	snap := snapshotOf(t, do(t, h, http.MethodPost, "/api/trip", `{"boatType":"row"}`))
	assert.True(t, snap.Campaign.SequenceRunning)

	msg := errorOf(t, do(t, h, http.MethodPost, "/api/trip", `{"boatType":"row"}`), http.StatusConflict)
	assert.Contains(t, msg, "input blocked")

	snap = snapshotOf(t, do(t, h, http.MethodPost, "/api/skip", ""))
	assert.False(t, snap.Campaign.SequenceRunning)
	assert.Equal(t, 1, snap.Campaign.TotalTrips)

	errorOf(t, do(t, h, http.MethodPost, "/api/skip", ""), http.StatusUnprocessableEntity)

	rr := do(t, h, http.MethodGet, "/api/trips", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report struct {
		Trips []economy.TripResult `json:"trips"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Len(t, report.Trips, 1)
	assert.Equal(t, "row", report.Trips[0].BoatType)
	assert.Equal(t, snap.Ledger.Cash, report.Trips[0].CashAfter)

	rr = do(t, h, http.MethodGet, "/api/trips?format=csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), `"trip","id"`))

	rr = do(t, h, http.MethodGet, "/api/trips?format=pretty", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Trip ledger (1 trips)")

	errorOf(t, do(t, h, http.MethodGet, "/api/trips?format=xml", ""), http.StatusBadRequest)
}

func TestCommandValidation(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"wrong method", http.MethodGet, "/api/trip", "", http.StatusMethodNotAllowed},
		{"unknown field", http.MethodPost, "/api/trip", `{"boat":"row"}`, http.StatusBadRequest},
		{"unknown boat", http.MethodPost, "/api/trip", `{"boatType":"canoe"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/choice", `{`, http.StatusBadRequest},
		{"missing choice", http.MethodPost, "/api/choice", `{"sceneId":"dock_menu"}`, http.StatusBadRequest},
		{"missing building", http.MethodPost, "/api/building", `{}`, http.StatusBadRequest},
		{"missing scene id", http.MethodPost, "/api/scene/close", `{}`, http.StatusBadRequest},
		{"bad savings level", http.MethodPost, "/api/savings", `{"tavernLevel":"half"}`, http.StatusBadRequest},
		{"non-positive loan", http.MethodPost, "/api/loan", `{"amount":0}`, http.StatusBadRequest},
		{"loan rate too high", http.MethodPost, "/api/loan", `{"amount":10,"rate":2}`, http.StatusBadRequest},
		{"missing item", http.MethodPost, "/api/purchase", `{}`, http.StatusBadRequest},
		{"health out of range", http.MethodPost, "/api/debug/force-trip", `{"marketHealth":1.5}`, http.StatusBadRequest},
		{"unknown building", http.MethodPost, "/api/building", `{"type":"lighthouse"}`, http.StatusNotFound},
		{"choice for closed scene", http.MethodPost, "/api/choice", `{"sceneId":"bank_menu","choiceId":"borrow"}`, http.StatusNotFound},
		{"unknown phase", http.MethodPost, "/api/debug/phase", `{"phase":"atlantis"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestLedgerCommands(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	errorOf(t, do(t, h, http.MethodPost, "/api/loan/repay", ""), http.StatusUnprocessableEntity)
	errorOf(t, do(t, h, http.MethodPost, "/api/purchase", `{"item":"motorboat"}`), http.StatusPaymentRequired)

	snap := snapshotOf(t, do(t, h, http.MethodPost, "/api/loan", `{"amount":200}`))
	assert.Equal(t, 300.0, snap.Ledger.Cash)
	assert.True(t, snap.Ledger.Loan.Open())

	snap = snapshotOf(t, do(t, h, http.MethodPost, "/api/loan/repay", ""))
	assert.Equal(t, 100.0, snap.Ledger.Cash)
	assert.False(t, snap.Ledger.Loan.Open())

	snap = snapshotOf(t, do(t, h, http.MethodPost, "/api/debug/force-trip", `{"marketHealth":0.5}`))
	require.NotNil(t, snap.Ledger.ForcedNextTripOverride)
	assert.Equal(t, 0.5, *snap.Ledger.ForcedNextTripOverride.MarketHealth)
}

func TestLedgerCommandsWaitForSequence(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	snapshotOf(t, do(t, h, http.MethodPost, "/api/debug/phase", `{"phase":"boom"}`))
	snap := snapshotOf(t, do(t, h, http.MethodPost, "/api/trip", `{"boatType":"row"}`))
	require.True(t, snap.Campaign.SequenceRunning)

	msg := errorOf(t, do(t, h, http.MethodPost, "/api/loan", `{"amount":200}`), http.StatusConflict)
	assert.Contains(t, msg, "sequence running")
	errorOf(t, do(t, h, http.MethodPost, "/api/purchase", `{"item":"motorboat"}`), http.StatusConflict)
	errorOf(t, do(t, h, http.MethodPost, "/api/loan/repay", ""), http.StatusConflict)

	snapshotOf(t, do(t, h, http.MethodPost, "/api/skip", ""))
	snap = snapshotOf(t, do(t, h, http.MethodPost, "/api/loan", `{"amount":200}`))
	assert.Equal(t, 320.0, snap.Ledger.Cash)
	assert.True(t, snap.Campaign.Flags["first_loan_taken"].(bool))
}

func TestDebugPhaseAndReset(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	snap := snapshotOf(t, do(t, h, http.MethodPost, "/api/debug/phase", `{"phase":"boom"}`))
	assert.Equal(t, content.Boom, snap.Campaign.Phase)

	snap = snapshotOf(t, do(t, h, http.MethodPost, "/api/reset", ""))
	assert.Equal(t, content.Tutorial, snap.Campaign.Phase)
	assert.Equal(t, 100.0, snap.Ledger.Cash)
}

func TestCommandsAreRateLimited(t *testing.T) {
	h := newTestHandler(t, Limits{CommandsPerSecond: 0.001, Burst: 1})

	snapshotOf(t, do(t, h, http.MethodPost, "/api/reset", ""))
	msg := errorOf(t, do(t, h, http.MethodPost, "/api/reset", ""), http.StatusTooManyRequests)
	assert.Equal(t, errTooMany.Error(), msg)

	// Queries are not limited.
	snapshotOf(t, do(t, h, http.MethodGet, "/api/state", ""))
}

func TestCommandBodyIsCapped(t *testing.T) {
	h := newTestHandler(t, Limits{MaxBodyBytes: 16})

	body := `{"boatType":"` + strings.Repeat("x", 64) + `"}`
	errorOf(t, do(t, h, http.MethodPost, "/api/trip", body), http.StatusRequestEntityTooLarge)
}

func TestConfigExport(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	rr := do(t, h, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/x-yaml", rr.Header().Get("Content-Type"))
	out := rr.Body.String()
	assert.Contains(t, out, "address:")
	assert.Contains(t, out, "autoCloseScenes: true")
	assert.Contains(t, out, "hintDelay: 20s")
}

func TestStaticIndex(t *testing.T) {
	h := newTestHandler(t, DefaultLimits())

	rr := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Boom &amp; Bust")
}

func readUntil(t *testing.T, conn *websocket.Conn, kind string) []string {
	t.Helper()
	var seen []string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg struct {
			Kind string `json:"kind"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		seen = append(seen, msg.Kind)
		if msg.Kind == kind {
			return seen
		}
	}
}

func TestEventStream(t *testing.T) {
	srv := httptest.NewServer(newTestHandler(t, DefaultLimits()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var first struct {
		Kind    string           `json:"kind"`
		Payload session.Snapshot `json:"payload"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, kindSnapshot, first.Kind)
	assert.Equal(t, content.Tutorial, first.Payload.Campaign.Phase)

	require.NoError(t, conn.WriteJSON(events.Wrap(events.TripRequested{BoatType: "row"})))
	seen := readUntil(t, conn, kindAck)
	assert.Contains(t, seen, string(events.KindSequenceStarted))
	assert.Contains(t, seen, string(events.KindTripCompleted))
	assert.NotContains(t, seen, string(events.KindTripRequested), "inbound events are not echoed")

	// A command over HTTP is observed on the stream too.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/skip", bytes.NewReader(nil))
	srv.Config.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	readUntil(t, conn, string(events.KindSequenceFinished))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"kind":"release_boats"}`)))
	readUntil(t, conn, kindError)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	readUntil(t, conn, kindError)
}
