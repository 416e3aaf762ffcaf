package loanstore_test

import (
	"errors"
	"testing"
	"time"

	loanstore "github.com/dalemusser/shgledger/internal/app/store/loans"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/shgledger/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l, err := store.Create(ctx, models.Loan{GroupID: primitive.NewObjectID(), MemberID: primitive.NewObjectID(), Amount: 5000})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if l.TransactionType != models.LoanTxnLoan {
		t.Errorf("TransactionType = %q, want Loan", l.TransactionType)
	}
	if l.Status != models.LoanApproved {
		t.Errorf("Status = %q, want approved", l.Status)
	}
	if l.Date.IsZero() {
		t.Error("expected Date to default to creation time")
	}

	got, err := store.GetByID(ctx, l.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Amount != 5000 {
		t.Errorf("Amount = %v", got.Amount)
	}
}

func TestStore_ActiveLoan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := loanstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID, memberID := primitive.NewObjectID(), primitive.NewObjectID()
	base := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	if _, err := store.ActiveLoan(ctx, memberID); !errors.Is(err, loanstore.ErrNotFound) {
		t.Fatalf("no loans: got %v, want ErrNotFound", err)
	}

	records := []models.Loan{
		{Amount: 1000, Date: base},
		{Amount: 2000, Date: base.AddDate(0, 1, 0)},
		{Amount: 9000, Date: base.AddDate(0, 2, 0), Status: models.LoanPending},
		{Amount: 300, Date: base.AddDate(0, 3, 0), TransactionType: models.LoanTxnRepayment},
	}
	for _, l := range records {
		l.GroupID, l.MemberID = groupID, memberID
		if _, err := store.Create(ctx, l); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	active, err := store.ActiveLoan(ctx, memberID)
	if err != nil {
		t.Fatalf("ActiveLoan failed: %v", err)
	}
	if active.Amount != 2000 {
		t.Errorf("active amount = %v, want 2000 (newest approved Loan)", active.Amount)
	}

	list, err := store.ListByMember(ctx, memberID)
	if err != nil {
		t.Fatalf("ListByMember failed: %v", err)
	}
	if len(list) != 4 || list[0].Amount != 300 || list[3].Amount != 1000 {
		t.Errorf("list order wrong: %+v", list)
	}
}
