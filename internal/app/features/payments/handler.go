// internal/app/features/payments/handler.go
package payments

import (
	"context"
	"net/http"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	bankstore "github.com/dalemusser/shgledger/internal/app/store/banks"
	fdstore "github.com/dalemusser/shgledger/internal/app/store/fds"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	paymentstore "github.com/dalemusser/shgledger/internal/app/store/payments"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
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
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, AuditLog: audit}
}

type createRequest struct {
	MemberID    string  `json:"member_id" validate:"required,objectid"`
	Kind        string  `json:"kind" validate:"required,oneof=withdrawal fd_maturity"`
	FDID        string  `json:"fd_id" validate:"omitempty,objectid"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	PaymentMode string  `json:"payment_mode" validate:"required,oneof=cash online"`
	BankID      string  `json:"bank_id" validate:"omitempty,objectid"`
	Origin      string  `json:"origin" validate:"required,oneof=admin group"`
	Remarks     string  `json:"remarks" validate:"max=500"`
}

type listQuery struct {
	GroupID string `json:"group_id" validate:"required,objectid"`
	Status  string `json:"status" validate:"omitempty,oneof=pending approved completed rejected"`
}

func oid(s string) primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(s)
	return id
}

// HandleCreate handles POST /payments. Requests raised by a group start
// pending; requests raised by an admin start approved. An fd_maturity
// payment pays out the FD's maturity amount and needs a matured FD with no
// other live payment.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "create payment", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "create payment", err)
		return
	}
	if req.PaymentMode == models.ModeOnline && req.BankID == "" {
		apiresp.Error(w, h.Log, "create payment", apperr.Invalid("online payments need a bank account"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create payment")
	defer cancel()

	m, err := memberstore.New(h.DB).GetByID(ctx, oid(req.MemberID))
	if err != nil {
		apiresp.Error(w, h.Log, "create payment", err)
		return
	}

	p := models.Payment{
		GroupID:     m.GroupID,
		MemberID:    m.ID,
		Kind:        req.Kind,
		Amount:      money.Round(req.Amount),
		PaymentMode: req.PaymentMode,
		Origin:      req.Origin,
		Status:      models.PaymentPending,
		Remarks:     htmlsanitize.PlainText(req.Remarks),
	}
	if req.Origin == models.OriginAdmin {
		p.Status = models.PaymentApproved
	}

	switch req.Kind {
	case models.PaymentFDMaturity:
		if req.FDID == "" {
			apiresp.Error(w, h.Log, "create payment", apperr.Invalid("fd_id is required for an fd_maturity payment"))
			return
		}
		fd, err := fdstore.New(h.DB).GetByID(ctx, oid(req.FDID))
		if err != nil {
			apiresp.Error(w, h.Log, "create payment", err)
			return
		}
		if fd.MemberID != m.ID {
			apiresp.Error(w, h.Log, "create payment", apperr.Invalid("fixed deposit belongs to another member"))
			return
		}
		if fd.Status != models.FDMatured {
			apiresp.Error(w, h.Log, "create payment", apperr.Conflict("fixed deposit has not matured"))
			return
		}
		p.FDID = &fd.ID
		p.Amount = fd.MaturityAmount
	default:
		if req.FDID != "" {
			apiresp.Error(w, h.Log, "create payment", apperr.Invalid("fd_id is only allowed on fd_maturity payments"))
			return
		}
		if p.Amount <= 0 {
			apiresp.Error(w, h.Log, "create payment", apperr.Invalid("amount must be greater than zero"))
			return
		}
	}

	if req.BankID != "" {
		b, err := bankstore.New(h.DB).GetByID(ctx, oid(req.BankID))
		if err != nil {
			apiresp.Error(w, h.Log, "create payment", err)
			return
		}
		if b.GroupID != m.GroupID {
			apiresp.Error(w, h.Log, "create payment", apperr.Invalid("bank account belongs to another group"))
			return
		}
		p.BankID = &b.ID
	}

	created, err := paymentstore.New(h.DB).Create(ctx, p)
	if err != nil {
		apiresp.Error(w, h.Log, "create payment", err)
		return
	}
	h.AuditLog.PaymentTransition(ctx, r, created, "")
	apiresp.Created(w, created)
}

// ServeList handles GET /payments?group_id=&status=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := listQuery{GroupID: r.URL.Query().Get("group_id"), Status: r.URL.Query().Get("status")}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "list payments", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list payments")
	defer cancel()

	list, err := paymentstore.New(h.DB).List(ctx, oid(q.GroupID), q.Status)
	if err != nil {
		apiresp.Error(w, h.Log, "list payments", err)
		return
	}
	apiresp.OK(w, list)
}

// ServePayment handles GET /payments/{id}.
func (h *Handler) ServePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(w, r, h.Log, "get payment")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get payment")
	defer cancel()

	p, err := paymentstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		apiresp.Error(w, h.Log, "get payment", err)
		return
	}
	apiresp.OK(w, p)
}

// HandleApprove handles POST /payments/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve payment", models.PaymentPending, models.PaymentApproved)
}

// HandleReject handles POST /payments/{id}/reject. Rejecting releases the
// FD so a new maturity payment can be raised.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject payment", models.PaymentPending, models.PaymentRejected)
}

// HandleComplete handles POST /payments/{id}/complete. Completing an
// fd_maturity payment closes its FD and takes the principal off the
// member's FD snapshot in the same transaction.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(w, r, h.Log, "complete payment")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "complete payment")
	defer cancel()

	ps := paymentstore.New(h.DB)
	fs := fdstore.New(h.DB)
	ms := memberstore.New(h.DB)

	var (
		done   models.Payment
		closed *models.FD
	)
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		closed = nil
		p, err := ps.Transition(ctx, id, models.PaymentApproved, models.PaymentCompleted)
		if err != nil {
			return err
		}
		done = p
		if p.Kind != models.PaymentFDMaturity || p.FDID == nil {
			return nil
		}
		fd, err := fs.SetStatus(ctx, *p.FDID, models.FDMatured, models.FDClosed)
		if err != nil {
			return err
		}
		closed = &fd
		return ms.AddFDAmount(ctx, fd.MemberID, -fd.Principal)
	})
	if err != nil {
		apiresp.Error(w, h.Log, "complete payment", err)
		return
	}
	h.AuditLog.PaymentTransition(ctx, r, done, models.PaymentApproved)
	if closed != nil {
		h.AuditLog.FDStatus(ctx, r, audit.EventFDClosed, *closed)
	}
	apiresp.OK(w, done)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op, from, to string) {
	id, ok := paymentID(w, r, h.Log, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	p, err := paymentstore.New(h.DB).Transition(ctx, id, from, to)
	if err != nil {
		apiresp.Error(w, h.Log, op, err)
		return
	}
	h.AuditLog.PaymentTransition(ctx, r, p, from)
	apiresp.OK(w, p)
}

func paymentID(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, log, op, apperr.Invalid("invalid payment id"))
		return primitive.NilObjectID, false
	}
	return id, true
}
