package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/iwvelando/boom-bust/internal/content"
	"github.com/iwvelando/boom-bust/internal/director"
	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/internal/events"
	"github.com/iwvelando/boom-bust/internal/sequencer"
	"github.com/iwvelando/boom-bust/internal/session"
	"github.com/iwvelando/boom-bust/pkg/constants"
	"github.com/iwvelando/boom-bust/pkg/output"
	"github.com/iwvelando/boom-bust/pkg/validation"
)

//go:embed static/*
var staticFiles embed.FS

var (
	errNothingToSkip = errors.New("no sequence is running")
	errTooMany       = errors.New("too many commands")
)

type handler struct {
	logger   *zap.Logger
	sess     *session.Session
	version  string
	limits   Limits
	limiter  *rate.Limiter
	upgrader websocket.Upgrader
}

type commandFunc func(s *session.Session) error

// NewHandler constructs the HTTP handler that serves the web UI, the command
// API, and the event stream for one session.
func NewHandler(logger *zap.Logger, sess *session.Session, version string, limits Limits) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	limits.normalize()

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:  logger,
		sess:    sess,
		version: trimmedVersion,
		limits:  limits,
		limiter: rate.NewLimiter(rate.Limit(limits.CommandsPerSecond), limits.Burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()

	// Player commands
	mux.HandleFunc("/api/trip", h.command("server.handleTrip", parseTrip))
	mux.HandleFunc("/api/building", h.command("server.handleBuilding", parseBuilding))
	mux.HandleFunc("/api/choice", h.command("server.handleChoice", parseChoice))
	mux.HandleFunc("/api/scene/close", h.command("server.handleSceneClose", parseSceneClose))
	mux.HandleFunc("/api/savings", h.command("server.handleSavings", parseSavings))
	mux.HandleFunc("/api/loan", h.command("server.handleLoan", parseLoan))
	mux.HandleFunc("/api/loan/repay", h.command("server.handleRepay", parseRepay))
	mux.HandleFunc("/api/purchase", h.command("server.handlePurchase", parsePurchase))
	mux.HandleFunc("/api/skip", h.command("server.handleSkip", parseSkip))
	mux.HandleFunc("/api/reset", h.command("server.handleReset", parseReset))

	// Debug commands
	mux.HandleFunc("/api/debug/phase", h.command("server.handleDebugPhase", parseDebugPhase))
	mux.HandleFunc("/api/debug/force-trip", h.command("server.handleDebugForceTrip", parseForceTrip))

	// Queries
	mux.HandleFunc("/api/state", h.handleState)
	mux.HandleFunc("/api/trips", h.handleTrips)
	mux.HandleFunc("/api/config", h.handleConfigExport)
	mux.HandleFunc("/api/version", h.handleVersion)

	// Event stream
	mux.HandleFunc("/api/events", h.handleEvents)

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	mux.Handle("/", http.FileServer(http.FS(sub)))

	return mux
}

// command wraps a player command: POST only, rate limited, body capped,
// executed on the session loop, answered with the resulting snapshot.
func (h *handler) command(op string, parse func(body []byte) (commandFunc, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if !h.limiter.Allow() {
			h.respondErrorWithOp(w, http.StatusTooManyRequests, errTooMany.Error(), op)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, h.limits.MaxBodyBytes)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request exceeds limit of %d bytes", h.limits.MaxBodyBytes), op)
				return
			}
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to read request: %v", err), op)
			return
		}

		fn, err := parse(body)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}

		var (
			snap   session.Snapshot
			cmdErr error
		)
		if err := h.sess.Do(r.Context(), func(s *session.Session) {
			cmdErr = fn(s)
			snap = s.Snapshot()
		}); err != nil {
			h.respondErrorWithOp(w, http.StatusServiceUnavailable, fmt.Sprintf("session unavailable: %v", err), op)
			return
		}
		if cmdErr != nil {
			h.respondErrorWithOp(w, statusFor(cmdErr), cmdErr.Error(), op)
			return
		}
		h.writeJSON(w, http.StatusOK, snap)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, director.ErrInputBlocked), errors.Is(err, sequencer.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, director.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, director.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, director.ErrRejected), errors.Is(err, errNothingToSkip):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func decodeBody[T any](body []byte) (T, error) {
	var req T
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("failed to decode request: %w", err)
	}
	return req, nil
}

func parseTrip(body []byte) (commandFunc, error) {
	req, err := decodeBody[events.TripRequested](body)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateBoatType(req.BoatType); err != nil {
		return nil, err
	}
	return func(s *session.Session) error { return s.Send(req) }, nil
}

func parseBuilding(body []byte) (commandFunc, error) {
	req, err := decodeBody[events.BuildingClicked](body)
	if err != nil {
		return nil, err
	}
	if req.Type == "" {
		return nil, errors.New("building type is required")
	}
	return func(s *session.Session) error { return s.Send(req) }, nil
}

func parseChoice(body []byte) (commandFunc, error) {
	req, err := decodeBody[events.ChoiceMade](body)
	if err != nil {
		return nil, err
	}
	if req.SceneID == "" || req.ChoiceID == "" {
		return nil, errors.New("sceneId and choiceId are required")
	}
	return func(s *session.Session) error { return s.Send(req) }, nil
}

func parseSceneClose(body []byte) (commandFunc, error) {
	req, err := decodeBody[events.DialogClosed](body)
	if err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, errors.New("scene id is required")
	}
	return func(s *session.Session) error { return s.Send(req) }, nil
}

func parseSavings(body []byte) (commandFunc, error) {
	req, err := decodeBody[events.SavingsConfirmed](body)
	if err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, errors.New("amount must not be negative")
	}
	for _, level := range []string{req.TavernLevel, req.ShipyardLevel} {
		if err := validation.ValidateSavingsLevel(level); err != nil {
			return nil, err
		}
	}
	return func(s *session.Session) error { return s.Send(req) }, nil
}

type loanRequest struct {
	Amount float64 `json:"amount"`
	Rate   float64 `json:"rate,omitempty"`
}

func parseLoan(body []byte) (commandFunc, error) {
	req, err := decodeBody[loanRequest](body)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if req.Rate < 0 || req.Rate > 1 {
		return nil, errors.New("rate must be between 0 and 1")
	}
	return func(s *session.Session) error {
		return s.Apply(func(d *director.Director) error { return d.TakeLoan(req.Amount, req.Rate) })
	}, nil
}

func parseRepay([]byte) (commandFunc, error) {
	return func(s *session.Session) error {
		return s.Apply(func(d *director.Director) error {
			_, err := d.RepayLoan()
			return err
		})
	}, nil
}

type purchaseRequest struct {
	Item string `json:"item"`
}

func parsePurchase(body []byte) (commandFunc, error) {
	req, err := decodeBody[purchaseRequest](body)
	if err != nil {
		return nil, err
	}
	if req.Item == "" {
		return nil, errors.New("item is required")
	}
	return func(s *session.Session) error {
		return s.Apply(func(d *director.Director) error {
			_, err := d.Purchase(req.Item)
			return err
		})
	}, nil
}

func parseSkip([]byte) (commandFunc, error) {
	return func(s *session.Session) error {
		if !s.Skip() {
			return errNothingToSkip
		}
		return nil
	}, nil
}

func parseReset([]byte) (commandFunc, error) {
	return func(s *session.Session) error {
		s.Reset()
		return nil
	}, nil
}

type phaseRequest struct {
	Phase string `json:"phase"`
}

func parseDebugPhase(body []byte) (commandFunc, error) {
	req, err := decodeBody[phaseRequest](body)
	if err != nil {
		return nil, err
	}
	id := content.PhaseID(strings.ToUpper(strings.TrimSpace(req.Phase)))
	return func(s *session.Session) error {
		return s.Apply(func(d *director.Director) error { return d.JumpToPhase(id) })
	}, nil
}

func parseForceTrip(body []byte) (commandFunc, error) {
	req, err := decodeBody[economy.Override](body)
	if err != nil {
		return nil, err
	}
	for name, v := range map[string]*float64{"marketHealth": req.MarketHealth, "acceptanceRate": req.AcceptanceRate} {
		if v != nil && (*v < 0 || *v > 1) {
			return nil, fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return func(s *session.Session) error {
		s.Economy().ForceNextTrip(req)
		return nil
	}, nil
}

func (h *handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	var snap session.Snapshot
	if err := h.sess.Do(r.Context(), func(s *session.Session) { snap = s.Snapshot() }); err != nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, fmt.Sprintf("session unavailable: %v", err), "server.handleState")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *handler) handleTrips(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTrips"
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	var trips []economy.TripResult
	if err := h.sess.Do(r.Context(), func(s *session.Session) { trips = s.Trips() }); err != nil {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, fmt.Sprintf("session unavailable: %v", err), op)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "json":
		if trips == nil {
			trips = []economy.TripResult{}
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"trips":  trips,
			"totals": output.Summarize(trips),
		})
		return
	case constants.OutputFormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case constants.OutputFormatPretty:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format), op)
		return
	}
	var buf bytes.Buffer
	if err := output.Write(&buf, format, trips); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	data, err := yaml.Marshal(h.sess.Config())
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to encode configuration: %v", err), "server.handleConfigExport")
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+constants.DefaultConfigFile+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	level := h.logger.Warn
	if status >= http.StatusInternalServerError {
		level = h.logger.Error
	}
	level("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
