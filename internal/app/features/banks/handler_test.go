package banks_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/shgledger/internal/app/features/banks"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	"github.com/dalemusser/shgledger/internal/app/system/indexes"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/shgledger/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func TestBanks_CreateAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	fixtures := testutil.NewFixtures(t, db)
	g := fixtures.CreateGroup(ctx, "Laxmi", "L1")

	router := chi.NewRouter()
	router.Mount("/groups/{id}/banks", banks.Routes(banks.NewHandler(db, nil, zap.NewNop())))

	body := `{"bank_name":"State Bank","branch":"Main","account_number":"00112233","ifsc":"sbin0001234","opening_balance":500}`
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodPost, "/groups/L1/banks", body))
	rec.AssertStatus(t, http.StatusCreated)

	var b models.Bank
	rec.DecodeEnvelope(t, &b)
	if b.GroupID != g.ID || b.IFSC != "SBIN0001234" {
		t.Errorf("bank = %+v", b)
	}

	got, err := groupstore.New(db).GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.BankIDs) != 1 || got.BankIDs[0] != b.ID {
		t.Errorf("group bank ids = %v, want [%s]", got.BankIDs, b.ID.Hex())
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodPost, "/groups/L1/banks", body))
	rec.AssertStatus(t, http.StatusConflict)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewJSONRequest(http.MethodPost, "/groups/L1/banks", `{"bank_name":"X","account_number":"12"}`))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, "/groups/"+g.ID.Hex()+"/banks"))
	rec.AssertStatus(t, http.StatusOK)
	var list []models.Bank
	rec.DecodeEnvelope(t, &list)
	if len(list) != 1 {
		t.Errorf("got %d banks, want 1", len(list))
	}
}
