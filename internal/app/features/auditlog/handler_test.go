package auditlog_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/shgledger/internal/app/features/auditlog"
	"github.com/dalemusser/shgledger/internal/app/store/audit"
	"github.com/dalemusser/shgledger/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type page struct {
	Events []audit.Event `json:"events"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
	Total  int64         `json:"total"`
}

func TestServeList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fixtures.CreateGroup(ctx, "Laxmi", "L1")
	other := fixtures.CreateGroup(ctx, "Ganga", "G1")
	memberID := primitive.NewObjectID()
	store := audit.New(db)
	log := func(groupID primitive.ObjectID, category, eventType string, at time.Time, member *primitive.ObjectID) {
		t.Helper()
		if err := store.Log(ctx, audit.Event{
			Timestamp: at,
			Category:  category,
			EventType: eventType,
			GroupID:   &groupID,
			MemberID:  member,
			Success:   true,
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}
	log(g.ID, audit.CategoryAdmin, audit.EventGroupCreated, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), nil)
	log(g.ID, audit.CategoryLedger, audit.EventEntryUpserted, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), &memberID)
	log(g.ID, audit.CategoryLedger, audit.EventLoanRecorded, time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC), &memberID)
	log(other.ID, audit.CategoryLedger, audit.EventEntryUpserted, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), nil)

	r := chi.NewRouter()
	r.Mount("/groups/{id}/audit", auditlog.Routes(auditlog.NewHandler(db, time.UTC, zap.NewNop())))

	get := func(target string, want int) page {
		t.Helper()
		rec := testutil.NewRecorder()
		r.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, target))
		rec.AssertStatus(t, want)
		var p page
		if want == http.StatusOK {
			rec.DecodeEnvelope(t, &p)
		}
		return p
	}

	p := get("/groups/L1/audit", http.StatusOK)
	if p.Total != 3 || len(p.Events) != 3 {
		t.Fatalf("total/events = %d/%d, want 3/3", p.Total, len(p.Events))
	}
	if p.Events[0].EventType != audit.EventLoanRecorded {
		t.Errorf("newest first: got %q", p.Events[0].EventType)
	}

	p = get("/groups/L1/audit?category=ledger&member_id="+memberID.Hex(), http.StatusOK)
	if p.Total != 2 {
		t.Errorf("ledger events for member = %d, want 2", p.Total)
	}

	p = get("/groups/L1/audit?from=02/03/2025&to=05/03/2025", http.StatusOK)
	if p.Total != 1 || p.Events[0].EventType != audit.EventEntryUpserted {
		t.Errorf("date window: got %+v", p.Events)
	}

	p = get("/groups/L1/audit?limit=2&page=2", http.StatusOK)
	if len(p.Events) != 1 || p.Total != 3 || p.Page != 2 {
		t.Errorf("second page: events=%d total=%d page=%d", len(p.Events), p.Total, p.Page)
	}

	get("/groups/L1/audit?category=everything", http.StatusBadRequest)
	get("/groups/L1/audit?page=0", http.StatusBadRequest)
	get("/groups/L1/audit?from=09/03/2025&to=01/03/2025", http.StatusBadRequest)
	get("/groups/NOPE/audit", http.StatusNotFound)
}
