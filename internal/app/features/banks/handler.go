// internal/app/features/banks/handler.go
package banks

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	bankstore "github.com/dalemusser/shgledger/internal/app/store/banks"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/auditlog"
	"github.com/dalemusser/shgledger/internal/app/system/htmlsanitize"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/dalemusser/shgledger/internal/app/system/txn"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/go-chi/chi/v5"
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
	BankName       string  `json:"bank_name" validate:"required,max=200"`
	Branch         string  `json:"branch" validate:"max=200"`
	AccountNumber  string  `json:"account_number" validate:"required,alphanum,min=6,max=20"`
	IFSC           string  `json:"ifsc" validate:"omitempty,len=11,alphanum"`
	AccountHolder  string  `json:"account_holder" validate:"max=200"`
	OpeningBalance float64 `json:"opening_balance" validate:"gte=0"`
}

// HandleCreate handles POST /groups/{id}/banks. The account is inserted
// and linked to the group in one transaction.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := apiresp.Decode(r, &req); err != nil {
		apiresp.Error(w, h.Log, "create bank", err)
		return
	}
	if err := inputval.Validate(req); err != nil {
		apiresp.Error(w, h.Log, "create bank", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create bank")
	defer cancel()

	gs := groupstore.New(h.DB)
	g, err := gs.Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "create bank", err)
		return
	}

	bs := bankstore.New(h.DB)
	var created models.Bank
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		b, err := bs.Create(ctx, models.Bank{
			GroupID:        g.ID,
			BankName:       htmlsanitize.PlainText(req.BankName),
			Branch:         htmlsanitize.PlainText(req.Branch),
			AccountNumber:  req.AccountNumber,
			IFSC:           strings.ToUpper(req.IFSC),
			AccountHolder:  htmlsanitize.PlainText(req.AccountHolder),
			OpeningBalance: req.OpeningBalance,
		})
		if err != nil {
			return err
		}
		created = b
		return gs.AddBank(ctx, g.ID, b.ID)
	})
	if err != nil {
		apiresp.Error(w, h.Log, "create bank", err)
		return
	}
	h.AuditLog.Admin(ctx, r, audit.EventBankCreated, g.ID, nil, created.ID, map[string]string{"bank_name": created.BankName})
	apiresp.Created(w, created)
}

// ServeList handles GET /groups/{id}/banks.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list banks")
	defer cancel()

	g, err := groupstore.New(h.DB).Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "list banks", err)
		return
	}
	list, err := bankstore.New(h.DB).ListByGroup(ctx, g.ID)
	if err != nil {
		apiresp.Error(w, h.Log, "list banks", err)
		return
	}
	apiresp.OK(w, list)
}
