// AngelaMos | 2026
// handler.go

package loyalty

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/poin-lunak/internal/core"
	"github.com/carterperez-dev/poin-lunak/internal/middleware"
)

const idempotencyHeader = "Idempotency-Key"

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.With(adminOnly).Post("/transactions", h.CreateTransaction)
		r.Get("/transactions", h.ListTransactions)

		r.Get("/rewards/catalog", h.GetCatalog)
		r.Post("/rewards/redeem", h.Redeem)
		r.Get("/rewards", h.ListRewards)

		r.Get("/membership-logs", h.ListLogs)
		r.Get("/members/dashboard", h.Dashboard)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/admin/points/adjust", h.AdjustPoints)
		r.Get("/admin/point-ratio", h.GetPointRatio)
		r.Put("/admin/point-ratio", h.UpdatePointRatio)
		r.Get("/admin/stats/loyalty", h.GetStats)
	})
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Award(
		r.Context(),
		middleware.CurrentUser(r.Context()),
		AwardInput{
			UserID:           req.UserID,
			TotalItem:        req.TotalItem,
			TotalTransaction: req.TotalTransaction,
			Items:            req.Items,
		},
	)
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "user"))
		return
	}

	core.Created(w, AwardResponse{
		Transaction:     ToTransactionResponse(result.Transaction),
		PointsGained:    result.PointsGained,
		NewTotalPoints:  result.NewTotalPoints,
		MembershipLevel: result.MembershipLevel,
	})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, params, total, err := h.service.ListTransactions(
		r.Context(),
		middleware.CurrentUser(r.Context()),
		listParams(r),
	)
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "transaction"))
		return
	}

	core.Paginated(w, ToTransactionResponseList(txs), params.Page, params.PageSize, total)
}

func (h *Handler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	core.OK(w, Catalog())
}

// Redeem counts the attempt before the body is read, so bad requests use
// up the window like any other.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.CurrentUser(r.Context())

	decision, err := h.service.AllowRedeem(r.Context(), actor)
	if err != nil {
		var limited *RateLimitError
		if errors.As(err, &limited) {
			d := limited.Decision
			middleware.WriteLimitHeaders(w, d.Limit, d.Remaining, d.ResetAt)
			middleware.WriteRateLimited(w, d.RetryAfter(time.Now()))
			return
		}
		core.JSONError(w, core.MapDomainError(err, "reward"))
		return
	}
	middleware.WriteLimitHeaders(w, decision.Limit, decision.Remaining, decision.ResetAt)

	var req RedeemRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Redeem(r.Context(), actor, RedeemInput{
		RewardID:       req.RewardID,
		IdempotencyKey: strings.TrimSpace(r.Header.Get(idempotencyHeader)),
		Admitted:       &decision,
	})
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "reward"))
		return
	}

	resp := RedeemResponse{
		Reward:          ToRewardResponse(result.Reward),
		RemainingPoints: result.RemainingPoints,
		MembershipLevel: result.MembershipLevel,
		Replayed:        result.Replayed,
	}

	if result.Replayed {
		core.OK(w, resp)
		return
	}
	core.Created(w, resp)
}

func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, params, total, err := h.service.ListRewards(
		r.Context(),
		middleware.CurrentUser(r.Context()),
		listParams(r),
	)
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "reward"))
		return
	}

	core.Paginated(w, ToRewardResponseList(rewards), params.Page, params.PageSize, total)
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, params, total, err := h.service.ListLogs(
		r.Context(),
		middleware.CurrentUser(r.Context()),
		listParams(r),
	)
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "membership log"))
		return
	}

	core.Paginated(w, ToMembershipLogResponseList(logs), params.Page, params.PageSize, total)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context(), middleware.CurrentUser(r.Context()))
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "user"))
		return
	}

	core.OK(w, dash)
}

func (h *Handler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req AdjustPointsRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	result, err := h.service.Adjust(
		r.Context(),
		middleware.CurrentUser(r.Context()),
		AdjustInput{
			UserID: req.UserID,
			Delta:  req.Points,
			Reason: req.Reason,
		},
	)
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "user"))
		return
	}

	core.OK(w, AdjustResponse{
		UserID:          result.UserID,
		OldPoints:       result.OldPoints,
		NewPoints:       result.NewPoints,
		Adjustment:      result.Adjustment,
		MembershipLevel: result.MembershipLevel,
	})
}

func (h *Handler) GetPointRatio(w http.ResponseWriter, r *http.Request) {
	ratio, err := h.service.PointRatio(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, PointRatioResponse{Ratio: ratio})
}

func (h *Handler) UpdatePointRatio(w http.ResponseWriter, r *http.Request) {
	var req UpdatePointRatioRequest
	if !core.Bind(w, r, h.validator, &req) {
		return
	}

	ratio, err := h.service.SetPointRatio(
		r.Context(),
		middleware.CurrentUser(r.Context()),
		req.Ratio,
	)
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "setting"))
		return
	}

	core.OK(w, PointRatioResponse{Ratio: ratio})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), middleware.CurrentUser(r.Context()))
	if err != nil {
		core.JSONError(w, core.MapDomainError(err, "stats"))
		return
	}

	core.OK(w, stats)
}

func listParams(r *http.Request) ListParams {
	q := r.URL.Query()
	return ListParams{
		Page:     parseIntQuery(q.Get("page"), 1),
		PageSize: parseIntQuery(q.Get("page_size"), 20),
		UserID:   q.Get("user_id"),
	}
}

func parseIntQuery(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
