package rewardd

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	rewards "azorion/native/taskrewards"
	"azorion/observability"
)

const maxClaimBody = 4 << 10

// ServerConfig captures the dependencies of the HTTP API.
type ServerConfig struct {
	Processor *Processor
	Auth      *Authenticator
	Limiter   *RateLimiter
	Hub       *Hub
	// Authority is the identity claims are submitted as.
	Authority rewards.Identity
	Logger    *slog.Logger
}

// Server exposes the reward program over HTTP.
type Server struct {
	processor *Processor
	auth      *Authenticator
	limiter   *RateLimiter
	hub       *Hub
	authority rewards.Identity
	logger    *slog.Logger

	router http.Handler
}

// NewServer constructs the router.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = NewHub()
	}
	srv := &Server{
		processor: cfg.Processor,
		auth:      cfg.Auth,
		limiter:   cfg.Limiter,
		hub:       hub,
		authority: cfg.Authority,
		logger:    logger,
	}
	srv.router = otelhttp.NewHandler(srv.buildRouter(), "rewardd")
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(observeRequests)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Get("/activities", s.handleActivities)
		api.Get("/program", s.handleProgram)
		api.Get("/users/{identity}", s.handleUser)
		api.Get("/events", s.hub.ServeHTTP)

		api.With(s.auth.Middleware(ScopeClaim)).Post("/claims", s.handleClaim)
		api.With(s.auth.Middleware(ScopeClaim)).Get("/claims", s.handleListClaims)

		api.Group(func(admin chi.Router) {
			admin.Use(s.auth.Middleware(ScopeAdmin))
			admin.Get("/claims/export", s.handleExport)
			admin.Post("/tasks/randomize", s.handleRandomize)
			admin.Post("/admin/pause", s.handlePause)
			admin.Post("/admin/resume", s.handleResume)
			admin.Get("/admin/status", s.handleStatus)
		})
	})
	return r
}

func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().Observe(route, status, time.Since(start))
	})
}

type activityView struct {
	Ordinal    int    `json:"ordinal"`
	Key        string `json:"key"`
	Name       string `json:"name"`
	Tier       uint64 `json:"tier"`
	BaseReward uint64 `json:"base_reward"`
	Rank       uint8  `json:"rank"`
	Available  bool   `json:"available"`
}

type programView struct {
	TotalSupply      uint64           `json:"total_supply"`
	CurrentBalance   uint64           `json:"current_balance"`
	Authority        rewards.Identity `json:"authority"`
	Custody          rewards.Identity `json:"custody"`
	MinTasks         uint8            `json:"min_tasks"`
	MaxTasks         uint8            `json:"max_tasks"`
	AvailableTasks   uint8            `json:"available_tasks"`
	TasksLastUpdated int64            `json:"tasks_last_updated"`
}

func newProgramView(p *rewards.ProgramState) programView {
	return programView{
		TotalSupply:      p.TotalSupply,
		CurrentBalance:   p.CurrentBalance,
		Authority:        p.Authority,
		Custody:          p.Custody,
		MinTasks:         p.MinTasks,
		MaxTasks:         p.MaxTasks,
		AvailableTasks:   p.AvailableTasks,
		TasksLastUpdated: p.TasksLastUpdated,
	}
}

type historyView struct {
	Activity string `json:"activity"`
	Count    uint8  `json:"count"`
}

type userView struct {
	Identity      rewards.Identity `json:"identity"`
	RewardTotal   uint64           `json:"reward_total"`
	LastActivity  string           `json:"last_activity,omitempty"`
	LastClaimedAt int64            `json:"last_claimed_at"`
	History       []historyView    `json:"history"`
}

type claimRequest struct {
	Claimant string `json:"claimant"`
	Activity string `json:"activity"`
}

type claimView struct {
	Claimant       rewards.Identity `json:"claimant"`
	Activity       string           `json:"activity"`
	BaseReward     uint64           `json:"base_reward"`
	AdjustedReward uint64           `json:"adjusted_reward"`
	Repetition     uint8            `json:"repetition"`
	PenaltyBps     uint32           `json:"penalty_bps"`
	Reward         uint64           `json:"reward"`
	BalanceAfter   uint64           `json:"balance_after"`
	RewardTotal    uint64           `json:"reward_total"`
	Receipt        *ClaimReceipt    `json:"receipt,omitempty"`
}

type errorView struct {
	Error string `json:"error"`
	Code  uint32 `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActivities(w http.ResponseWriter, _ *http.Request) {
	var available uint8
	initialized := false
	if program, err := s.processor.Program(); err == nil {
		available = program.AvailableTasks
		initialized = true
	}
	out := make([]activityView, 0, rewards.NumActivities)
	for _, id := range rewards.Activities() {
		out = append(out, activityView{
			Ordinal:    int(id),
			Key:        id.Key(),
			Name:       id.String(),
			Tier:       id.Tier(),
			BaseReward: id.BaseReward(),
			Rank:       id.AvailabilityRank(),
			Available:  initialized && id.AvailableAt(available),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProgram(w http.ResponseWriter, _ *http.Request) {
	program, err := s.processor.Program()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProgramView(program))
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	id, err := rewards.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid identity"})
		return
	}
	user, err := s.processor.User(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := userView{
		Identity:      id,
		RewardTotal:   user.RewardTotal,
		LastClaimedAt: user.LastClaimedAt,
	}
	if user.HasClaimed() {
		view.LastActivity = user.LastActivity.Key()
	}
	for _, entry := range user.History.Entries {
		if !entry.Filled {
			continue
		}
		view.History = append(view.History, historyView{Activity: entry.Activity.Key(), Count: entry.Count})
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClaimBody)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid request"})
		return
	}
	claimant, err := rewards.ParseIdentity(req.Claimant)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid claimant"})
		return
	}
	if !s.limiter.Allow(claimant.Hex()) {
		observability.HTTP().RecordThrottle("/v1/claims")
		s.writeJSON(w, http.StatusTooManyRequests, errorView{Error: "rate limit exceeded"})
		return
	}
	result, err := s.processor.Claim(r.Context(), ClaimInput{
		Caller:   s.authority,
		Claimant: claimant,
		Activity: req.Activity,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	outcome := result.Outcome
	s.writeJSON(w, http.StatusOK, claimView{
		Claimant:       claimant,
		Activity:       outcome.Activity.Key(),
		BaseReward:     outcome.BaseReward,
		AdjustedReward: outcome.AdjustedReward,
		Repetition:     outcome.Repetition,
		PenaltyBps:     outcome.PenaltyBps(),
		Reward:         outcome.Reward,
		BalanceAfter:   outcome.Program.CurrentBalance,
		RewardTotal:    outcome.User.RewardTotal,
		Receipt:        result.Receipt,
	})
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	store := s.processor.Receipts()
	if store == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorView{Error: "receipts not configured"})
		return
	}
	claimant, err := rewards.ParseIdentity(r.URL.Query().Get("claimant"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid claimant"})
		return
	}
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid limit"})
			return
		}
		limit = parsed
	}
	receipts, err := store.ListByClaimant(r.Context(), claimant.Hex(), limit)
	if err != nil {
		s.logger.Error("list receipts", slog.Any("error", err))
		s.writeJSON(w, http.StatusInternalServerError, errorView{Error: "list receipts failed"})
		return
	}
	s.writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	store := s.processor.Receipts()
	if store == nil {
		s.writeJSON(w, http.StatusNotImplemented, errorView{Error: "receipts not configured"})
		return
	}
	query := r.URL.Query()
	from, err := parseUnixParam(query.Get("from"), 0)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid from"})
		return
	}
	to, err := parseUnixParam(query.Get("to"), 0)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid to"})
		return
	}
	receipts, err := store.List(r.Context(), from, to)
	if err != nil {
		s.logger.Error("export receipts", slog.Any("error", err))
		s.writeJSON(w, http.StatusInternalServerError, errorView{Error: "export failed"})
		return
	}
	switch format := strings.ToLower(strings.TrimSpace(query.Get("format"))); format {
	case "", "csv":
		data, checksum, err := ReceiptsCSV(receipts)
		if err != nil {
			s.writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="receipts.csv"`)
		w.Header().Set("X-Checksum", checksum)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "parquet":
		data, err := ReceiptsParquet(receipts)
		if err != nil {
			s.writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="receipts.parquet"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "unsupported format " + format})
	}
}

func (s *Server) handleRandomize(w http.ResponseWriter, r *http.Request) {
	program, err := s.processor.Randomize(r.Context(), s.authority)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProgramView(program))
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.processor.Pause()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.processor.Resume()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := s.processor.Status()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	view := errorView{Error: err.Error()}
	if code := rewards.CodeOf(err); code != rewards.CodeInternal {
		view.Code = uint32(code)
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
		view.Error = "internal error"
	}
	s.writeJSON(w, status, view)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrProcessorPaused), errors.Is(err, rewards.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidClaimant), errors.Is(err, rewards.ErrInvalidActivity):
		return http.StatusBadRequest
	case errors.Is(err, rewards.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, rewards.ErrTaskUnavailable):
		return http.StatusConflict
	case errors.Is(err, rewards.ErrCooldownActive), errors.Is(err, rewards.ErrCooldownRngTasks):
		return http.StatusTooManyRequests
	case errors.Is(err, rewards.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, rewards.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseUnixParam(raw string, fallback int64) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
