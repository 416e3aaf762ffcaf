package recoverystore_test

import (
	"errors"
	"testing"
	"time"

	recoverystore "github.com/dalemusser/shgledger/internal/app/store/recoveries"
	"github.com/dalemusser/shgledger/internal/app/system/indexes"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/shgledger/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func setup(t *testing.T) *recoverystore.Store {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return recoverystore.New(db)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func session(groupID primitive.ObjectID, date time.Time, members ...primitive.ObjectID) models.RecoverySession {
	rs := models.RecoverySession{
		GroupID: groupID,
		Date:    date,
		DateKey: date.Format("2006-01-02"),
	}
	for _, m := range members {
		rs.Recoveries = append(rs.Recoveries, models.RecoveryEntry{
			MemberID:   m,
			Attendance: models.Present,
			Amounts:    models.Amounts{Saving: 100},
			Total:      100,
		})
	}
	return rs
}

func TestStore_InsertAndFindByDay(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	inserted, err := store.Insert(ctx, session(groupID, day(2025, 3, 5).Add(10*time.Hour)))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inserted.Version != 1 || inserted.Status != models.SessionApproved {
		t.Errorf("version/status: got %d/%q", inserted.Version, inserted.Status)
	}

	got, err := store.FindByDay(ctx, groupID, day(2025, 3, 5), day(2025, 3, 6).Add(-time.Nanosecond))
	if err != nil {
		t.Fatalf("FindByDay failed: %v", err)
	}
	if got.ID != inserted.ID {
		t.Errorf("FindByDay: got %v, want %v", got.ID, inserted.ID)
	}

	_, err = store.FindByDay(ctx, groupID, day(2025, 3, 6), day(2025, 3, 7))
	if !errors.Is(err, recoverystore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Insert_OnePerGroupDay(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	if _, err := store.Insert(ctx, session(groupID, day(2025, 3, 5))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	_, err := store.Insert(ctx, session(groupID, day(2025, 3, 5).Add(15*time.Hour)))
	if !errors.Is(err, recoverystore.ErrDuplicateSession) {
		t.Errorf("expected ErrDuplicateSession, got %v", err)
	}

	// Same day for another group is fine.
	if _, err := store.Insert(ctx, session(primitive.NewObjectID(), day(2025, 3, 5))); err != nil {
		t.Errorf("other group Insert failed: %v", err)
	}
}

func TestStore_Replace_CompareAndSwap(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rs, err := store.Insert(ctx, session(primitive.NewObjectID(), day(2025, 3, 5)))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	stale := rs
	rs.GroupPhoto = "photo.jpg"
	updated, err := store.Replace(ctx, rs)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("version: got %d, want 2", updated.Version)
	}

	stale.GroupPhoto = "other.jpg"
	if _, err := store.Replace(ctx, stale); !errors.Is(err, recoverystore.ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestStore_MemberSessions(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	for _, s := range []models.RecoverySession{
		session(groupID, day(2025, 2, 5), a, b),
		session(groupID, day(2025, 2, 20), b),
		session(groupID, day(2025, 3, 5), a, b),
		session(primitive.NewObjectID(), day(2025, 2, 10), a),
	} {
		if _, err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.MemberSessions(ctx, recoverystore.MemberQuery{
		GroupID:  groupID,
		MemberID: a,
		Before:   day(2025, 3, 5),
	})
	if err != nil {
		t.Fatalf("MemberSessions failed: %v", err)
	}
	if len(got) != 1 || got[0].DateKey != "2025-02-05" {
		t.Fatalf("sessions: got %d", len(got))
	}
	if len(got[0].Recoveries) != 1 || got[0].Recoveries[0].MemberID != a {
		t.Errorf("projection should keep only the member's entry, got %d entries", len(got[0].Recoveries))
	}

	got, err = store.MemberSessions(ctx, recoverystore.MemberQuery{
		GroupID:     groupID,
		MemberID:    b,
		From:        day(2025, 2, 1),
		Before:      day(2025, 4, 1),
		NewestFirst: true,
		Limit:       2,
	})
	if err != nil {
		t.Fatalf("MemberSessions failed: %v", err)
	}
	if len(got) != 2 || got[0].DateKey != "2025-03-05" || got[1].DateKey != "2025-02-20" {
		t.Errorf("newest first: got %v", keys(got))
	}

	// a has no entry on 2025-02-20 but AnySession still returns that session.
	got, err = store.MemberSessions(ctx, recoverystore.MemberQuery{
		GroupID:     groupID,
		MemberID:    a,
		From:        day(2025, 2, 1),
		Before:      day(2025, 3, 1),
		NewestFirst: true,
		Limit:       1,
		AnySession:  true,
	})
	if err != nil {
		t.Fatalf("MemberSessions failed: %v", err)
	}
	if len(got) != 1 || got[0].DateKey != "2025-02-20" {
		t.Fatalf("any session: got %v", keys(got))
	}
	if _, ok := got[0].Entry(a); ok || len(got[0].Recoveries) != 0 {
		t.Errorf("expected no entry for the absent member, got %d entries", len(got[0].Recoveries))
	}
}

func TestStore_ListRange(t *testing.T) {
	store := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	for _, d := range []time.Time{day(2025, 3, 20), day(2025, 3, 5), day(2025, 4, 1)} {
		if _, err := store.Insert(ctx, session(groupID, d)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	got, err := store.ListRange(ctx, groupID, day(2025, 3, 1), day(2025, 4, 1))
	if err != nil {
		t.Fatalf("ListRange failed: %v", err)
	}
	if len(got) != 2 || got[0].DateKey != "2025-03-05" || got[1].DateKey != "2025-03-20" {
		t.Errorf("range: got %v", keys(got))
	}
}

func keys(list []models.RecoverySession) []string {
	out := make([]string, len(list))
	for i, rs := range list {
		out[i] = rs.DateKey
	}
	return out
}
