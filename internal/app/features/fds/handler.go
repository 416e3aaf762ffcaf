// internal/app/features/fds/handler.go
package fds

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	fdstore "github.com/dalemusser/shgledger/internal/app/store/fds"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/money"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/dalemusser/shgledger/internal/app/system/txn"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Loc      *time.Location
	Now      func() time.Time
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(db *mongo.Database, loc *time.Location, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{DB: db, Loc: loc, Now: time.Now, Log: logger, AuditLog: audit}
}

type createRequest struct {
	MemberID   string  `json:"member_id" validate:"required,objectid"`
	Principal  float64 `json:"principal" validate:"gt=0"`
	TimePeriod int     `json:"time_period" validate:"gt=0,lte=240"`
	StartDate  string  `json:"start_date" validate:"omitempty,ledgerdate"`
}

type listQuery struct {
	GroupID  string `json:"group_id" validate:"omitempty,objectid"`
	MemberID string `json:"member_id" validate:"omitempty,objectid"`
}

// HandleCreate handles POST /fds. The group's FD rate is snapshotted and
// the maturity date and amount are fixed at creation. The member's FD
// snapshot grows by the principal in the same transaction.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "create fd", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "create fd", err)
		return
	}
	start := dateparse.StartOfDay(h.Now().In(h.Loc))
	if req.StartDate != "" {
		day, err := dateparse.Parse(req.StartDate, h.Loc)
		if err != nil {
			apiresp.Error(w, h.Log, "create fd", apperr.Wrap(apperr.KindInvalid, "", err))
			return
		}
		start = day
	}
	memberID, _ := primitive.ObjectIDFromHex(req.MemberID)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create fd")
	defer cancel()

	ms := memberstore.New(h.DB)
	m, err := ms.GetByID(ctx, memberID)
	if err != nil {
		apiresp.Error(w, h.Log, "create fd", err)
		return
	}
	g, err := groupstore.New(h.DB).GetByID(ctx, m.GroupID)
	if err != nil {
		apiresp.Error(w, h.Log, "create fd", err)
		return
	}

	principal := money.Round(req.Principal)
	interest := money.SimpleInterest(principal, g.FDInterestRate, req.TimePeriod)
	fd := models.FD{
		GroupID:        g.ID,
		MemberID:       m.ID,
		Principal:      principal,
		TimePeriod:     req.TimePeriod,
		InterestRate:   g.FDInterestRate,
		StartDate:      start.UTC(),
		MaturityDate:   start.AddDate(0, req.TimePeriod, 0).UTC(),
		InterestAmount: interest,
		MaturityAmount: money.F(money.Sum(principal, interest)),
	}

	fs := fdstore.New(h.DB)
	var created models.FD
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		out, err := fs.Create(ctx, fd)
		if err != nil {
			return err
		}
		created = out
		return ms.AddFDAmount(ctx, m.ID, principal)
	})
	if err != nil {
		apiresp.Error(w, h.Log, "create fd", err)
		return
	}
	h.AuditLog.FDStatus(ctx, r, audit.EventFDCreated, created)
	apiresp.Created(w, created)
}

// ServeList handles GET /fds?group_id=&member_id=. Either filter may be
// given alone; member_id alone lists that member's FDs.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := listQuery{GroupID: r.URL.Query().Get("group_id"), MemberID: r.URL.Query().Get("member_id")}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "list fds", err)
		return
	}
	if q.GroupID == "" && q.MemberID == "" {
		apiresp.Error(w, h.Log, "list fds", apperr.Invalid("group_id or member_id is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list fds")
	defer cancel()

	var memberID *primitive.ObjectID
	groupID, _ := primitive.ObjectIDFromHex(q.GroupID)
	if q.MemberID != "" {
		id, _ := primitive.ObjectIDFromHex(q.MemberID)
		memberID = &id
		if groupID.IsZero() {
			m, err := memberstore.New(h.DB).GetByID(ctx, id)
			if err != nil {
				apiresp.Error(w, h.Log, "list fds", err)
				return
			}
			groupID = m.GroupID
		}
	}

	list, err := fdstore.New(h.DB).List(ctx, groupID, memberID)
	if err != nil {
		apiresp.Error(w, h.Log, "list fds", err)
		return
	}
	apiresp.OK(w, list)
}

// ServeFD handles GET /fds/{id}.
func (h *Handler) ServeFD(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "get fd", apperr.Invalid("invalid fd id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get fd")
	defer cancel()

	fd, err := fdstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apiresp.Error(w, h.Log, "get fd", err)
		return
	}
	apiresp.OK(w, fd)
}

// HandleMature handles POST /fds/{id}/mature. Only an active FD whose
// maturity date has been reached can be matured.
func (h *Handler) HandleMature(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "mature fd", apperr.Invalid("invalid fd id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mature fd")
	defer cancel()

	fs := fdstore.New(h.DB)
	fd, err := fs.GetByID(ctx, id)
	if err != nil {
		apiresp.Error(w, h.Log, "mature fd", err)
		return
	}
	if h.Now().Before(fd.MaturityDate) {
		apiresp.Error(w, h.Log, "mature fd", apperr.Invalid("fixed deposit matures on "+dateparse.Display(fd.MaturityDate, h.Loc)))
		return
	}
	fd, err = fs.SetStatus(ctx, id, models.FDActive, models.FDMatured)
	if err != nil {
		apiresp.Error(w, h.Log, "mature fd", err)
		return
	}
	h.AuditLog.FDStatus(ctx, r, audit.EventFDMatured, fd)
	apiresp.OK(w, fd)
}

// HandleMatureDue handles POST /fds/mature-due: every active FD past its
// maturity date is marked matured.
func (h *Handler) HandleMatureDue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "mature due fds")
	defer cancel()

	n, err := fdstore.New(h.DB).MatureDue(ctx, h.Now())
	if err != nil {
		apiresp.Error(w, h.Log, "mature due fds", err)
		return
	}
	if n > 0 {
		h.Log.Info("matured due fixed deposits", zap.Int64("count", n))
	}
	apiresp.OK(w, map[string]int64{"matured": n})
}
