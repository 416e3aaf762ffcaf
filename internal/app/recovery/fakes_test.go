package recovery

import (
	"context"
	"sort"
	"sync"
	"time"

	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	loanstore "github.com/dalemusser/shgledger/internal/app/store/loans"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	recoverystore "github.com/dalemusser/shgledger/internal/app/store/recoveries"
	"github.com/dalemusser/shgledger/internal/app/system/locks"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeGroups struct {
	groups []models.Group
}

func (f *fakeGroups) Resolve(_ context.Context, ref string) (models.Group, error) {
	for _, g := range f.groups {
		if g.ID.Hex() == ref || g.Code == ref || g.Name == ref {
			return g, nil
		}
	}
	return models.Group{}, groupstore.ErrNotFound
}

type fakeMembers map[primitive.ObjectID]models.Member

func (f fakeMembers) GetByID(_ context.Context, id primitive.ObjectID) (models.Member, error) {
	m, ok := f[id]
	if !ok {
		return models.Member{}, memberstore.ErrNotFound
	}
	return m, nil
}

type fakeLoans struct {
	active map[primitive.ObjectID]models.Loan
	err    error
}

func (f *fakeLoans) ActiveLoan(_ context.Context, memberID primitive.ObjectID) (models.Loan, error) {
	if f.err != nil {
		return models.Loan{}, f.err
	}
	l, ok := f.active[memberID]
	if !ok {
		return models.Loan{}, loanstore.ErrNotFound
	}
	return l, nil
}

// fakeSessions mimics the Mongo session store: a unique (group, day key)
// constraint, version compare-and-swap, and positional projection of the
// member's entry in MemberSessions.
type fakeSessions struct {
	mu   sync.Mutex
	docs []models.RecoverySession

	conflicts    int    // Replace calls to fail with a version conflict
	beforeInsert func() // runs once, outside the lock, before the next Insert
	memberErr    error
	replaces     int
}

func copySession(rs models.RecoverySession) models.RecoverySession {
	rs.Recoveries = append([]models.RecoveryEntry(nil), rs.Recoveries...)
	return rs
}

func (f *fakeSessions) FindByDay(_ context.Context, groupID primitive.ObjectID, start, end time.Time) (models.RecoverySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.GroupID == groupID && !d.Date.Before(start) && !d.Date.After(end) {
			return copySession(d), nil
		}
	}
	return models.RecoverySession{}, recoverystore.ErrNotFound
}

func (f *fakeSessions) Insert(_ context.Context, rs models.RecoverySession) (models.RecoverySession, error) {
	if hook := f.beforeInsert; hook != nil {
		f.beforeInsert = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.GroupID == rs.GroupID && d.DateKey == rs.DateKey {
			return models.RecoverySession{}, recoverystore.ErrDuplicateSession
		}
	}
	rs.ID = primitive.NewObjectID()
	rs.Version = 1
	f.docs = append(f.docs, copySession(rs))
	return rs, nil
}

func (f *fakeSessions) Replace(_ context.Context, rs models.RecoverySession) (models.RecoverySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces++
	if f.conflicts > 0 {
		f.conflicts--
		return models.RecoverySession{}, recoverystore.ErrVersionConflict
	}
	for i, d := range f.docs {
		if d.ID == rs.ID && d.Version == rs.Version {
			rs.Version++
			f.docs[i] = copySession(rs)
			return rs, nil
		}
	}
	return models.RecoverySession{}, recoverystore.ErrVersionConflict
}

func (f *fakeSessions) MemberSessions(_ context.Context, q recoverystore.MemberQuery) ([]models.RecoverySession, error) {
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RecoverySession
	for _, d := range f.docs {
		if d.GroupID != q.GroupID || !d.Date.Before(q.Before) {
			continue
		}
		if !q.From.IsZero() && d.Date.Before(q.From) {
			continue
		}
		p := d
		p.Recoveries = nil
		if e, ok := d.Entry(q.MemberID); ok {
			p.Recoveries = []models.RecoveryEntry{e}
		} else if !q.AnySession {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.NewestFirst {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	if q.Limit > 0 && int64(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeSessions) ListRange(_ context.Context, groupID primitive.ObjectID, from, before time.Time) ([]models.RecoverySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RecoverySession
	for _, d := range f.docs {
		if d.GroupID == groupID && !d.Date.Before(from) && d.Date.Before(before) {
			out = append(out, copySession(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

type fakeLocker struct {
	err   error
	taken []string
}

func (f *fakeLocker) Obtain(_ context.Context, key string) (locks.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.taken = append(f.taken, key)
	return func() {}, nil
}

// fixture is a group with one member wired into a Manager over fakes.
type fixture struct {
	group    models.Group
	member   models.Member
	members  fakeMembers
	loans    *fakeLoans
	sessions *fakeSessions
	locker   *fakeLocker
	mgr      *Manager
}

func intp(v int) *int { return &v }

func newFixture(day1, day2 *int) *fixture {
	g := models.Group{
		ID:              primitive.NewObjectID(),
		Name:            "Lakshmi SHG",
		Code:            "SHG-001",
		MeetingDay1:     day1,
		MeetingDay2:     day2,
		SavingPerMember: 100,
	}
	mem := models.Member{ID: primitive.NewObjectID(), GroupID: g.ID, Name: "Sita"}
	f := &fixture{
		group:    g,
		member:   mem,
		members:  fakeMembers{mem.ID: mem},
		loans:    &fakeLoans{active: map[primitive.ObjectID]models.Loan{}},
		sessions: &fakeSessions{},
		locker:   &fakeLocker{},
	}
	f.mgr = NewManager(Deps{
		Groups:   &fakeGroups{groups: []models.Group{g}},
		Members:  f.members,
		Loans:    f.loans,
		Sessions: f.sessions,
		Locker:   f.locker,
		Location: time.UTC,
		Retries:  3,
		Now:      func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) },
		Log:      zap.NewNop(),
	})
	return f
}

func (f *fixture) addMember(name string) models.Member {
	m := models.Member{ID: primitive.NewObjectID(), GroupID: f.group.ID, Name: name}
	f.members[m.ID] = m
	return m
}
