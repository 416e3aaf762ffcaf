// internal/app/features/loans/handler.go
package loans

import (
	"errors"
	"net/http"
	"strings"
	"time"

	bankstore "github.com/dalemusser/shgledger/internal/app/store/banks"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	loanstore "github.com/dalemusser/shgledger/internal/app/store/loans"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/money"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Loc      *time.Location
	Log      *zap.Logger
	AuditLog *auditlog.Logger
}

func NewHandler(db *mongo.Database, loc *time.Location, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{DB: db, Loc: loc, Log: logger, AuditLog: audit}
}

type createRequest struct {
	TransactionType string   `json:"transaction_type" validate:"omitempty,oneof=Loan Repayment"`
	Amount          float64  `json:"amount" validate:"gt=0"`
	TimePeriod      int      `json:"time_period" validate:"gte=0,lte=600"`
	Installment     float64  `json:"installment_amount" validate:"gte=0"`
	InterestRate    *float64 `json:"interest_rate" validate:"omitempty,gte=0,lte=100"`
	PaymentMode     string   `json:"payment_mode" validate:"required,oneof=cash online"`
	BankID          string   `json:"bank_id" validate:"omitempty,objectid"`
	Status          string   `json:"status" validate:"omitempty,oneof=approved pending rejected"`
	Date            string   `json:"date" validate:"omitempty,ledgerdate"`
	Remarks         string   `json:"remarks" validate:"max=500"`
}

// HandleCreate handles POST /members/{memberID}/loans. Records default to
// type Loan and status approved. A loan without an installment gets
// amount / time_period; the rate defaults to the group's loan rate.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		apiresp.Error(w, h.Log, "record loan", apperr.Invalid("invalid member id"))
		return
	}
	var req createRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "record loan", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "record loan", err)
		return
	}
	if req.PaymentMode == models.ModeOnline && strings.TrimSpace(req.BankID) == "" {
		apiresp.Error(w, h.Log, "record loan", apperr.Invalid("online loans need a bank account"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "record loan")
	defer cancel()

	m, err := memberstore.New(h.DB).GetByID(ctx, memberID)
	if err != nil {
		apiresp.Error(w, h.Log, "record loan", err)
		return
	}
	g, err := groupstore.New(h.DB).GetByID(ctx, m.GroupID)
	if err != nil {
		apiresp.Error(w, h.Log, "record loan", err)
		return
	}

	loan := models.Loan{
		GroupID:         g.ID,
		MemberID:        m.ID,
		TransactionType: req.TransactionType,
		Amount:          money.Round(req.Amount),
		TimePeriod:      req.TimePeriod,
		Installment:     money.Round(req.Installment),
		InterestRate:    g.LoanInterestRate,
		PaymentMode:     req.PaymentMode,
		Status:          req.Status,
		Remarks:         htmlsanitize.PlainText(req.Remarks),
	}
	if req.InterestRate != nil {
		loan.InterestRate = *req.InterestRate
	}
	if loan.TransactionType != models.LoanTxnRepayment && loan.Installment == 0 && loan.TimePeriod > 0 {
		loan.Installment = money.F(money.D(loan.Amount).Div(decimal.NewFromInt(int64(loan.TimePeriod))))
	}
	if req.Date != "" {
		day, err := dateparse.Parse(req.Date, h.Loc)
		if err != nil {
			apiresp.Error(w, h.Log, "record loan", apperr.Wrap(apperr.KindInvalid, "", err))
			return
		}
		loan.Date = day.UTC()
	}
	if strings.TrimSpace(req.BankID) != "" {
		bankID, _ := primitive.ObjectIDFromHex(req.BankID)
		b, err := bankstore.New(h.DB).GetByID(ctx, bankID)
		if err != nil {
			apiresp.Error(w, h.Log, "record loan", err)
			return
		}
		if b.GroupID != g.ID {
			apiresp.Error(w, h.Log, "record loan", apperr.Invalid("bank account belongs to another group"))
			return
		}
		loan.BankID = &bankID
	}

	created, err := loanstore.New(h.DB).Create(ctx, loan)
	if err != nil {
		apiresp.Error(w, h.Log, "record loan", err)
		return
	}
	h.AuditLog.LoanRecorded(ctx, r, created)
	apiresp.Created(w, created)
}

// ServeList handles GET /members/{memberID}/loans.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		apiresp.Error(w, h.Log, "list loans", apperr.Invalid("invalid member id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list loans")
	defer cancel()

	list, err := loanstore.New(h.DB).ListByMember(ctx, memberID)
	if err != nil {
		apiresp.Error(w, h.Log, "list loans", err)
		return
	}
	apiresp.OK(w, list)
}

// ServeActive handles GET /members/{memberID}/loans/active: the newest
// approved loan, which is the one demand is computed from.
func (h *Handler) ServeActive(w http.ResponseWriter, r *http.Request) {
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "memberID"))
	if err != nil {
		apiresp.Error(w, h.Log, "get active loan", apperr.Invalid("invalid member id"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get active loan")
	defer cancel()

	l, err := loanstore.New(h.DB).ActiveLoan(ctx, memberID)
	if errors.Is(err, loanstore.ErrNotFound) {
		apiresp.Error(w, h.Log, "get active loan", apperr.NotFound("member has no active loan"))
		return
	}
	if err != nil {
		apiresp.Error(w, h.Log, "get active loan", err)
		return
	}
	apiresp.OK(w, l)
}
