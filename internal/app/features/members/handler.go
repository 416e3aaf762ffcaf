// internal/app/features/members/handler.go
package members

import (
	"net/http"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the feature-level handler for members.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	AuditLog *auditlog.Logger
	Members  *memberstore.Store
	Groups   *groupstore.Store
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		AuditLog: audit,
		Members:  memberstore.New(db),
		Groups:   groupstore.New(db),
	}
}

// HandleCreate handles POST /groups/{id}/members.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "create member", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "create member", err)
		return
	}
	m := req.member()
	if m.Name == "" {
		apiresp.Error(w, h.Log, "create member", apperr.Invalid("name cannot be empty"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create member")
	defer cancel()

	g, err := h.Groups.Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "create member", err)
		return
	}
	m.GroupID = g.ID
	created, err := h.Members.Create(ctx, m)
	if err != nil {
		apiresp.Error(w, h.Log, "create member", err)
		return
	}
	h.AuditLog.Admin(ctx, r, audit.EventMemberCreated, g.ID, &created.ID, created.ID, map[string]string{"name": created.Name})
	apiresp.Created(w, created)
}

// ServeList handles GET /groups/{id}/members.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list members")
	defer cancel()

	g, err := h.Groups.Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "list members", err)
		return
	}
	list, err := h.Members.ListByGroup(ctx, g.ID)
	if err != nil {
		apiresp.Error(w, h.Log, "list members", err)
		return
	}
	apiresp.OK(w, list)
}

// ServeMember handles GET /members/{memberID}.
func (h *Handler) ServeMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r, h.Log, "get member")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get member")
	defer cancel()

	m, err := h.Members.GetByID(ctx, id)
	if err != nil {
		apiresp.Error(w, h.Log, "get member", err)
		return
	}
	apiresp.OK(w, m)
}

// HandleUpdate handles PATCH /members/{memberID}. The member's group and
// FD snapshot are not editable here; FDs adjust the snapshot themselves.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r, h.Log, "update member")
	if !ok {
		return
	}
	var req updateRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "update member", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "update member", err)
		return
	}

	upd := memberstore.Update{
		Phone:               req.Phone,
		OpeningSaving:       req.OpeningSaving,
		SavingQuotaSnapshot: req.SavingQuotaSnapshot,
		OverdueInterest:     req.OverdueInterest,
		Status:              req.Status,
	}
	if req.Name != nil {
		name := htmlsanitize.PlainText(*req.Name)
		if name == "" {
			apiresp.Error(w, h.Log, "update member", apperr.Invalid("name cannot be empty"))
			return
		}
		upd.Name = &name
	}
	if req.Address != nil {
		addr := htmlsanitize.PlainText(*req.Address)
		upd.Address = &addr
	}
	if req.LoanDetails != nil {
		ld := req.LoanDetails.model()
		upd.LoanDetails = &ld
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update member")
	defer cancel()

	m, err := h.Members.Update(ctx, id, upd)
	if err != nil {
		apiresp.Error(w, h.Log, "update member", err)
		return
	}
	h.AuditLog.Admin(ctx, r, audit.EventMemberUpdated, m.GroupID, &m.ID, m.ID, nil)
	apiresp.OK(w, m)
}

func memberID(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		apiresp.Error(w, log, op, apperr.Invalid("invalid member id"))
		return primitive.NilObjectID, false
	}
	return id, true
}
