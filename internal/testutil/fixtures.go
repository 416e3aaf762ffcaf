package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateGroup creates an active group with the given name and code and a
// savings quota of 100. It has no meeting days, so any date is eligible.
func (f *Fixtures) CreateGroup(ctx context.Context, name, code string) models.Group {
	f.t.Helper()
	return f.CreateGroupWith(ctx, models.Group{Name: name, Code: code, SavingPerMember: 100, FDInterestRate: 7})
}

// CreateGroupWith inserts g after filling in id, folded name, status and
// timestamps.
func (f *Fixtures) CreateGroupWith(ctx context.Context, g models.Group) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	if g.Status == "" {
		g.Status = "active"
	}
	g.CreatedAt = now
	g.UpdatedAt = now

	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateMember creates an active member of the group.
func (f *Fixtures) CreateMember(ctx context.Context, groupID primitive.ObjectID, name string) models.Member {
	f.t.Helper()
	return f.CreateMemberWith(ctx, models.Member{GroupID: groupID, Name: name})
}

// CreateMemberWith inserts m after filling in id, folded name, status and
// timestamps.
func (f *Fixtures) CreateMemberWith(ctx context.Context, m models.Member) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.NameCI = text.Fold(m.Name)
	if m.Status == "" {
		m.Status = "active"
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateFD creates an active fixed deposit for the member.
func (f *Fixtures) CreateFD(ctx context.Context, groupID, memberID primitive.ObjectID, principal float64, maturity time.Time) models.FD {
	f.t.Helper()

	now := time.Now().UTC()
	fd := models.FD{
		ID:             primitive.NewObjectID(),
		GroupID:        groupID,
		MemberID:       memberID,
		Principal:      principal,
		TimePeriod:     12,
		InterestRate:   7,
		StartDate:      maturity.AddDate(-1, 0, 0),
		MaturityDate:   maturity,
		InterestAmount: principal * 0.07,
		MaturityAmount: principal * 1.07,
		Status:         models.FDActive,
		Reference:      "FD-TEST",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := f.db.Collection("fds").InsertOne(ctx, fd); err != nil {
		f.t.Fatalf("failed to create test fd: %v", err)
	}
	return fd
}
