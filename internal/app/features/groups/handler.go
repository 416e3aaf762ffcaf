// internal/app/features/groups/handler.go
package groups

import (
	"net/http"
	"strings"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/paging"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	DB    *mongo.Database
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// NewHandler constructs a groups Handler. It is called from the bootstrap
// BuildHandler function, where the DB and logger are already initialized.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:    db,
		Audit: audit,
		Log:   logger,
	}
}

// HandleCreate handles POST /groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "create group", err)
		return
	}
	req.Name = htmlsanitize.PlainText(req.Name)
	req.Code = htmlsanitize.PlainText(req.Code)
	req.Village = htmlsanitize.PlainText(req.Village)
	req.Address = htmlsanitize.PlainText(req.Address)
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "create group", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create group")
	defer cancel()

	gs := groupstore.New(h.DB)
	taken, err := gs.NameTaken(ctx, req.Name, primitive.NilObjectID)
	if err != nil {
		apiresp.Error(w, h.Log, "create group", err)
		return
	}
	if taken {
		apiresp.Error(w, h.Log, "create group", groupstore.ErrDuplicateName)
		return
	}

	g, err := gs.Create(ctx, req.group())
	if err != nil {
		apiresp.Error(w, h.Log, "create group", err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventGroupCreated, g.ID, nil, g.ID, map[string]string{"code": g.Code, "name": g.Name})
	apiresp.Created(w, g)
}

// ServeList handles GET /groups?q=&limit=&after=&before=. Cursors for the
// neighbouring pages come back in the X-Next-Cursor and X-Prev-Cursor
// headers.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	limit, err := paging.ParseLimit(r)
	if err != nil {
		apiresp.Error(w, h.Log, "list groups", err)
		return
	}
	before, after := query.Get(r, "before"), query.Get(r, "after")
	page, err := paging.ConfigureKeyset(before, after)
	if err != nil {
		apiresp.Error(w, h.Log, "list groups", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list groups")
	defer cancel()

	groups, err := groupstore.New(h.DB).List(ctx, query.Search(r, "q"), page, limit)
	if err != nil {
		apiresp.Error(w, h.Log, "list groups", err)
		return
	}
	if page.Direction == paging.Backward {
		paging.Reverse(groups)
	}
	result := paging.TrimPage(&groups, before, after, limit)
	prev, next := paging.BuildCursors(groups,
		func(g models.Group) string { return g.NameCI },
		func(g models.Group) primitive.ObjectID { return g.ID },
	)
	paging.SetCursorHeaders(w, result, prev, next)
	apiresp.OK(w, groups)
}

// ServeGroup handles GET /groups/{id}. The id segment may also be the
// group code or name.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get group")
	defer cancel()

	g, err := groupstore.New(h.DB).Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "get group", err)
		return
	}
	apiresp.OK(w, g)
}

// HandleUpdate handles PATCH /groups/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "update group", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "update group", err)
		return
	}
	if !req.MeetingDay1.valid() || !req.MeetingDay2.valid() {
		apiresp.Error(w, h.Log, "update group", apperr.Invalid("meeting days must be between 1 and 31"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update group")
	defer cancel()

	gs := groupstore.New(h.DB)
	g, err := gs.Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "update group", err)
		return
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) != g.Code {
		apiresp.Error(w, h.Log, "update group", apperr.Invalid("group code cannot be changed"))
		return
	}
	if req.Name != nil {
		name := htmlsanitize.PlainText(*req.Name)
		if name == "" {
			apiresp.Error(w, h.Log, "update group", apperr.Invalid("name cannot be empty"))
			return
		}
		taken, err := gs.NameTaken(ctx, name, g.ID)
		if err != nil {
			apiresp.Error(w, h.Log, "update group", err)
			return
		}
		if taken {
			apiresp.Error(w, h.Log, "update group", groupstore.ErrDuplicateName)
			return
		}
		req.Name = &name
	}

	upd := groupstore.Update{
		Name:             req.Name,
		Village:          sanitized(req.Village),
		Address:          sanitized(req.Address),
		MeetingDay1:      req.MeetingDay1.update(),
		MeetingDay2:      req.MeetingDay2.update(),
		MeetingTime1:     req.MeetingTime1,
		MeetingTime2:     req.MeetingTime2,
		SavingPerMember:  req.SavingPerMember,
		LoanInterestRate: req.LoanInterestRate,
		FDInterestRate:   req.FDInterestRate,
	}
	updated, err := gs.Update(ctx, g.ID, upd)
	if err != nil {
		apiresp.Error(w, h.Log, "update group", err)
		return
	}
	h.Audit.Admin(ctx, r, audit.EventGroupUpdated, g.ID, nil, g.ID, nil)
	apiresp.OK(w, updated)
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := htmlsanitize.PlainText(*s)
	return &v
}
