// internal/app/features/recoveries/handler.go
package recoveries

import (
	"context"
	"net/http"

	"github.com/dalemusser/shgledger/internal/app/recovery"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service is the recovery engine as seen by the HTTP layer.
// *recovery.Manager implements it.
type Service interface {
	RegisterSession(ctx context.Context, groupRef, date string, entries []recovery.EntryInput) (models.RecoverySession, error)
	UpsertMemberEntry(ctx context.Context, groupRef, date string, in recovery.EntryInput) (models.RecoverySession, error)
	RemoveMemberEntry(ctx context.Context, groupRef, date string, memberID primitive.ObjectID) (models.RecoverySession, error)
	SetGroupPhoto(ctx context.Context, groupRef, date, photoRef string) (models.RecoverySession, error)
	GetSessionByDate(ctx context.Context, groupRef, date string) (models.RecoverySession, error)
	ListSessions(ctx context.Context, groupRef, from, to string) ([]models.RecoverySession, error)
	GetPriorRecoveryData(ctx context.Context, groupRef string, memberID primitive.ObjectID, date string) (recovery.PriorData, error)
}

// Handler serves the recovery session endpoints of one group.
type Handler struct {
	Svc   Service
	Audit *auditlog.Logger
	Log   *zap.Logger
}

func NewHandler(svc Service, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Audit: audit, Log: logger}
}

// groupRef is the {id} URL segment: an id, a group code or a group name.
func groupRef(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// Register handles POST /groups/{id}/recoveries.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "register recovery session", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "register recovery session", err)
		return
	}
	entries := make([]recovery.EntryInput, 0, len(req.Recoveries))
	for _, e := range req.Recoveries {
		entries = append(entries, e.input())
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "register recovery session")
	defer cancel()

	rs, err := h.Svc.RegisterSession(ctx, groupRef(r), req.Date, entries)
	if err != nil {
		apiresp.Error(w, h.Log, "register recovery session", err)
		return
	}
	h.Audit.SessionRegistered(ctx, r, rs)
	apiresp.Created(w, rs)
}

// UpsertEntry handles PUT /groups/{id}/recoveries/entries.
func (h *Handler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "upsert recovery entry", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "upsert recovery entry", err)
		return
	}
	in := req.Entry.input()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "upsert recovery entry")
	defer cancel()

	rs, err := h.Svc.UpsertMemberEntry(ctx, groupRef(r), req.Date, in)
	if err != nil {
		apiresp.Error(w, h.Log, "upsert recovery entry", err)
		return
	}
	h.Audit.EntryUpserted(ctx, r, rs, in.MemberID)
	apiresp.OK(w, rs)
}

// RemoveEntry handles DELETE /groups/{id}/recoveries/entries/{memberID}?date=.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		apiresp.Error(w, h.Log, "remove recovery entry", apperr.Invalid("invalid member id"))
		return
	}
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "remove recovery entry", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "remove recovery entry")
	defer cancel()

	rs, err := h.Svc.RemoveMemberEntry(ctx, groupRef(r), q.Date, memberID)
	if err != nil {
		apiresp.Error(w, h.Log, "remove recovery entry", err)
		return
	}
	h.Audit.EntryRemoved(ctx, r, rs, memberID)
	apiresp.OK(w, rs)
}

// SetPhoto handles PUT /groups/{id}/recoveries/photo.
func (h *Handler) SetPhoto(w http.ResponseWriter, r *http.Request) {
	var req photoRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "set group photo", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "set group photo", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "set group photo")
	defer cancel()

	rs, err := h.Svc.SetGroupPhoto(ctx, groupRef(r), req.Date, req.Photo)
	if err != nil {
		apiresp.Error(w, h.Log, "set group photo", err)
		return
	}
	h.Audit.GroupPhotoSet(ctx, r, rs)
	apiresp.OK(w, rs)
}

// GetByDate handles GET /groups/{id}/recoveries?date=.
func (h *Handler) GetByDate(w http.ResponseWriter, r *http.Request) {
	q := dateQuery{Date: r.URL.Query().Get("date")}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "get recovery session", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get recovery session")
	defer cancel()

	rs, err := h.Svc.GetSessionByDate(ctx, groupRef(r), q.Date)
	if err != nil {
		apiresp.Error(w, h.Log, "get recovery session", err)
		return
	}
	apiresp.OK(w, rs)
}

// ListRange handles GET /groups/{id}/recoveries/range?from=&to=.
func (h *Handler) ListRange(w http.ResponseWriter, r *http.Request) {
	q := rangeQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "list recovery sessions", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list recovery sessions")
	defer cancel()

	sessions, err := h.Svc.ListSessions(ctx, groupRef(r), q.From, q.To)
	if err != nil {
		apiresp.Error(w, h.Log, "list recovery sessions", err)
		return
	}
	apiresp.OK(w, sessions)
}

// Prior handles GET /groups/{id}/recoveries/prior?member_id=&date=.
func (h *Handler) Prior(w http.ResponseWriter, r *http.Request) {
	q := priorQuery{MemberID: r.URL.Query().Get("member_id"), Date: r.URL.Query().Get("date")}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "get prior recovery data", err)
		return
	}
	memberID, _ := primitive.ObjectIDFromHex(q.MemberID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "get prior recovery data")
	defer cancel()

	data, err := h.Svc.GetPriorRecoveryData(ctx, groupRef(r), memberID, q.Date)
	if err != nil {
		apiresp.Error(w, h.Log, "get prior recovery data", err)
		return
	}
	apiresp.OK(w, data)
}
