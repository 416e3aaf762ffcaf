package recovery

import (
	"context"
	"errors"
	"strings"
	"time"

	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	loanstore "github.com/dalemusser/shgledger/internal/app/store/loans"
	memberstore "github.com/dalemusser/shgledger/internal/app/store/members"
	recoverystore "github.com/dalemusser/shgledger/internal/app/store/recoveries"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/dalemusser/shgledger/internal/app/system/locks"
	"github.com/dalemusser/shgledger/internal/app/system/meetings"
	"github.com/dalemusser/shgledger/internal/app/system/metrics"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Collaborator contracts. The Mongo stores satisfy them; tests use fakes.
type (
	GroupResolver interface {
		Resolve(ctx context.Context, ref string) (models.Group, error)
	}
	MemberGetter interface {
		GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error)
	}
	LoanFinder interface {
		ActiveLoan(ctx context.Context, memberID primitive.ObjectID) (models.Loan, error)
	}
	SessionStore interface {
		MemberSessionFinder
		FindByDay(ctx context.Context, groupID primitive.ObjectID, start, end time.Time) (models.RecoverySession, error)
		Insert(ctx context.Context, rs models.RecoverySession) (models.RecoverySession, error)
		Replace(ctx context.Context, rs models.RecoverySession) (models.RecoverySession, error)
		ListRange(ctx context.Context, groupID primitive.ObjectID, from, before time.Time) ([]models.RecoverySession, error)
	}
)

// Deps wires a Manager. Locker, Metrics and Now are optional.
type Deps struct {
	Groups   GroupResolver
	Members  MemberGetter
	Loans    LoanFinder
	Sessions SessionStore
	Locker   locks.Locker
	Metrics  *metrics.Metrics
	Location *time.Location
	Retries  int
	Now      func() time.Time
	Log      *zap.Logger
}

// Manager owns every read and write of recovery sessions.
type Manager struct {
	groups   GroupResolver
	members  MemberGetter
	loans    LoanFinder
	sessions SessionStore
	history  *History
	locker   locks.Locker
	metrics  *metrics.Metrics
	loc      *time.Location
	retries  int
	now      func() time.Time
	log      *zap.Logger
}

func NewManager(d Deps) *Manager {
	m := &Manager{
		groups:   d.Groups,
		members:  d.Members,
		loans:    d.Loans,
		sessions: d.Sessions,
		history:  NewHistory(d.Sessions),
		locker:   d.Locker,
		metrics:  d.Metrics,
		loc:      d.Location,
		retries:  d.Retries,
		now:      d.Now,
		log:      d.Log,
	}
	if m.locker == nil {
		m.locker = locks.Noop{}
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.retries < 1 {
		m.retries = 3
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// Location is the zone calendar days are computed in.
func (m *Manager) Location() *time.Location { return m.loc }

// History exposes the history lookups.
func (m *Manager) History() *History { return m.history }

// EntryInput is one member's submission for a meeting. Total and demand
// details are always computed, so they are not part of it.
type EntryInput struct {
	MemberID        primitive.ObjectID
	Attendance      string
	RecoveryByOther bool
	Amounts         models.Amounts
	PaymentMode     models.PaymentMode
	Remarks         string
}

// PriorData is what the entry form shows before anything is typed in.
type PriorData struct {
	Prior    PriorEntry           `json:"prior"`
	Balances Balances             `json:"balances"`
	Demand   models.DemandDetails `json:"demand"`
}

// RegisterSession creates the session for a group's meeting day. Each
// initial entry gets its demand computed. A second registration for the
// same day fails with ErrSessionExists.
func (m *Manager) RegisterSession(ctx context.Context, groupRef, date string, entries []EntryInput) (models.RecoverySession, error) {
	g, day, err := m.resolveMeeting(ctx, groupRef, date, true)
	if err != nil {
		return models.RecoverySession{}, err
	}

	seen := make(map[primitive.ObjectID]bool, len(entries))
	rs := models.RecoverySession{
		GroupID:    g.ID,
		Date:       day,
		DateKey:    dateparse.Key(day, m.loc),
		Recoveries: make([]models.RecoveryEntry, 0, len(entries)),
		Status:     models.SessionApproved,
	}
	for _, in := range entries {
		if seen[in.MemberID] {
			return models.RecoverySession{}, invalidf("member %s appears more than once", in.MemberID.Hex())
		}
		seen[in.MemberID] = true
		e, err := m.buildEntry(ctx, g, day, in)
		if err != nil {
			return models.RecoverySession{}, err
		}
		rs.Recoveries = append(rs.Recoveries, e)
	}
	Recompute(&rs)

	saved, err := m.sessions.Insert(ctx, rs)
	if errors.Is(err, recoverystore.ErrDuplicateSession) {
		m.metrics.SessionWrite("register", "exists")
		return models.RecoverySession{}, ErrSessionExists
	}
	if err != nil {
		m.metrics.SessionWrite("register", "error")
		return models.RecoverySession{}, err
	}
	m.metrics.SessionWrite("register", "ok")
	m.log.Info("recovery session registered",
		zap.String("group_id", g.ID.Hex()),
		zap.String("date", saved.DateKey),
		zap.Int("entries", len(saved.Recoveries)))
	return saved, nil
}

// UpsertMemberEntry records one member's entry on the day's session,
// creating the session if it does not exist yet. An existing entry for the
// member is replaced in place; otherwise the entry is appended.
func (m *Manager) UpsertMemberEntry(ctx context.Context, groupRef, date string, in EntryInput) (models.RecoverySession, error) {
	g, day, err := m.resolveMeeting(ctx, groupRef, date, true)
	if err != nil {
		return models.RecoverySession{}, err
	}
	entry, err := m.buildEntry(ctx, g, day, in)
	if err != nil {
		return models.RecoverySession{}, err
	}
	return m.mutate(ctx, "upsert", g, day, true, func(rs *models.RecoverySession) error {
		for i := range rs.Recoveries {
			if rs.Recoveries[i].MemberID == entry.MemberID {
				rs.Recoveries[i] = entry
				return nil
			}
		}
		rs.Recoveries = append(rs.Recoveries, entry)
		return nil
	})
}

// RemoveMemberEntry deletes a member's entry from the day's session.
func (m *Manager) RemoveMemberEntry(ctx context.Context, groupRef, date string, memberID primitive.ObjectID) (models.RecoverySession, error) {
	g, day, err := m.resolveMeeting(ctx, groupRef, date, false)
	if err != nil {
		return models.RecoverySession{}, err
	}
	return m.mutate(ctx, "remove", g, day, false, func(rs *models.RecoverySession) error {
		for i := range rs.Recoveries {
			if rs.Recoveries[i].MemberID == memberID {
				rs.Recoveries = append(rs.Recoveries[:i], rs.Recoveries[i+1:]...)
				return nil
			}
		}
		return ErrEntryNotFound
	})
}

// SetGroupPhoto attaches a photo reference to the day's session. The
// session must already exist.
func (m *Manager) SetGroupPhoto(ctx context.Context, groupRef, date, photoRef string) (models.RecoverySession, error) {
	photoRef = strings.TrimSpace(photoRef)
	if photoRef == "" {
		return models.RecoverySession{}, apperr.Invalid("group photo is required")
	}
	g, day, err := m.resolveMeeting(ctx, groupRef, date, false)
	if err != nil {
		return models.RecoverySession{}, err
	}
	return m.mutate(ctx, "photo", g, day, false, func(rs *models.RecoverySession) error {
		rs.GroupPhoto = photoRef
		return nil
	})
}

// GetSessionByDate returns the group's session for a calendar day.
func (m *Manager) GetSessionByDate(ctx context.Context, groupRef, date string) (models.RecoverySession, error) {
	g, day, err := m.resolveMeeting(ctx, groupRef, date, false)
	if err != nil {
		return models.RecoverySession{}, err
	}
	start, end := dateparse.DayBounds(day, m.loc)
	rs, err := m.sessions.FindByDay(ctx, g.ID, start, end)
	if errors.Is(err, recoverystore.ErrNotFound) {
		return models.RecoverySession{}, ErrSessionNotFound
	}
	return rs, err
}

// ListSessions returns the group's sessions from one day through another,
// oldest first.
func (m *Manager) ListSessions(ctx context.Context, groupRef, from, to string) ([]models.RecoverySession, error) {
	g, err := m.resolveGroup(ctx, groupRef)
	if err != nil {
		return nil, err
	}
	fromDay, err := m.parseDay(from)
	if err != nil {
		return nil, err
	}
	toDay, err := m.parseDay(to)
	if err != nil {
		return nil, err
	}
	if toDay.Before(fromDay) {
		return nil, apperr.Invalid("the end date is before the start date")
	}
	return m.sessions.ListRange(ctx, g.ID, fromDay, toDay.AddDate(0, 0, 1))
}

// GetPriorRecoveryData returns the member's previous entry, cumulative
// balances, and the demand they would face today if nothing were paid.
func (m *Manager) GetPriorRecoveryData(ctx context.Context, groupRef string, memberID primitive.ObjectID, date string) (PriorData, error) {
	g, day, err := m.resolveMeeting(ctx, groupRef, date, false)
	if err != nil {
		return PriorData{}, err
	}
	mem, err := m.member(ctx, g, memberID)
	if err != nil {
		return PriorData{}, err
	}
	in, err := m.demandInput(ctx, g, mem, day, models.Amounts{})
	if err != nil {
		return PriorData{}, err
	}
	return PriorData{Prior: in.Prior, Balances: in.Balances, Demand: Calculate(in)}, nil
}

// mutate runs a read-modify-write on the day's session under the session
// lock, retrying on version conflicts. When create is set and no session
// exists, one is inserted with the change applied to an empty session.
func (m *Manager) mutate(ctx context.Context, op string, g models.Group, day time.Time, create bool, apply func(*models.RecoverySession) error) (models.RecoverySession, error) {
	key := dateparse.Key(day, m.loc)
	release, err := m.lock(ctx, g.ID, key)
	if err != nil {
		m.metrics.SessionWrite(op, "busy")
		return models.RecoverySession{}, err
	}
	defer release()

	start, end := dateparse.DayBounds(day, m.loc)
	for attempt := 0; attempt < m.retries; attempt++ {
		if attempt > 0 {
			m.metrics.WriteRetry()
		}
		rs, err := m.sessions.FindByDay(ctx, g.ID, start, end)
		switch {
		case errors.Is(err, recoverystore.ErrNotFound):
			if !create {
				return models.RecoverySession{}, ErrSessionNotFound
			}
			rs = models.RecoverySession{
				GroupID:    g.ID,
				Date:       day,
				DateKey:    key,
				Recoveries: []models.RecoveryEntry{},
				Status:     models.SessionApproved,
			}
			if err := apply(&rs); err != nil {
				return models.RecoverySession{}, err
			}
			Recompute(&rs)
			saved, err := m.sessions.Insert(ctx, rs)
			if errors.Is(err, recoverystore.ErrDuplicateSession) {
				continue
			}
			if err != nil {
				m.metrics.SessionWrite(op, "error")
				return models.RecoverySession{}, err
			}
			m.written(op, saved)
			return saved, nil
		case err != nil:
			m.metrics.SessionWrite(op, "error")
			return models.RecoverySession{}, err
		}

		if err := apply(&rs); err != nil {
			return models.RecoverySession{}, err
		}
		Recompute(&rs)
		saved, err := m.sessions.Replace(ctx, rs)
		if errors.Is(err, recoverystore.ErrVersionConflict) {
			continue
		}
		if err != nil {
			m.metrics.SessionWrite(op, "error")
			return models.RecoverySession{}, err
		}
		m.written(op, saved)
		return saved, nil
	}

	m.metrics.SessionWrite(op, "conflict")
	m.log.Warn("recovery session write gave up after retries",
		zap.String("op", op),
		zap.String("group_id", g.ID.Hex()),
		zap.String("date", key),
		zap.Int("attempts", m.retries))
	return models.RecoverySession{}, ErrConcurrentUpdate
}

func (m *Manager) written(op string, rs models.RecoverySession) {
	m.metrics.SessionWrite(op, "ok")
	m.log.Debug("recovery session written",
		zap.String("op", op),
		zap.String("session_id", rs.ID.Hex()),
		zap.String("date", rs.DateKey),
		zap.Int64("version", rs.Version))
}

// lock takes the per-(group, day) lock. A busy lock is a conflict; any
// other lock failure is logged and the write goes ahead unlocked, since
// the version check alone keeps the session consistent.
func (m *Manager) lock(ctx context.Context, groupID primitive.ObjectID, dateKey string) (locks.Release, error) {
	started := time.Now()
	release, err := m.locker.Obtain(ctx, "shgledger:recovery:"+groupID.Hex()+":"+dateKey)
	m.metrics.LockWait(time.Since(started))
	if err == nil {
		return release, nil
	}
	if errors.Is(err, locks.ErrBusy) {
		return nil, ErrConcurrentUpdate
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	m.log.Warn("session lock unavailable, continuing without it",
		zap.String("group_id", groupID.Hex()),
		zap.String("date", dateKey),
		zap.Error(err))
	return func() {}, nil
}

// buildEntry validates a submission and computes its demand.
func (m *Manager) buildEntry(ctx context.Context, g models.Group, day time.Time, in EntryInput) (models.RecoveryEntry, error) {
	if in.MemberID.IsZero() {
		return models.RecoveryEntry{}, apperr.Invalid("member_id is required")
	}
	attendance := strings.ToLower(strings.TrimSpace(in.Attendance))
	switch attendance {
	case "":
		attendance = models.Present
	case models.Present, models.Absent:
	default:
		return models.RecoveryEntry{}, invalidf("attendance must be %q or %q", models.Present, models.Absent)
	}
	for _, c := range models.Categories {
		if in.Amounts.Get(c) < 0 {
			return models.RecoveryEntry{}, invalidf("%s amount cannot be negative", c)
		}
	}

	mem, err := m.member(ctx, g, in.MemberID)
	if err != nil {
		return models.RecoveryEntry{}, err
	}
	din, err := m.demandInput(ctx, g, mem, day, in.Amounts)
	if err != nil {
		return models.RecoveryEntry{}, err
	}
	return models.RecoveryEntry{
		MemberID:        mem.ID,
		MemberName:      mem.Name,
		Attendance:      attendance,
		RecoveryByOther: in.RecoveryByOther,
		Amounts:         in.Amounts,
		PaymentMode:     in.PaymentMode,
		DemandDetails:   Calculate(din),
		Total:           EntryTotal(in.Amounts),
		Remarks:         strings.TrimSpace(in.Remarks),
	}, nil
}

func (m *Manager) demandInput(ctx context.Context, g models.Group, mem models.Member, day time.Time, paid models.Amounts) (DemandInput, error) {
	var active *models.Loan
	loan, err := m.loans.ActiveLoan(ctx, mem.ID)
	switch {
	case err == nil:
		active = &loan
	case !errors.Is(err, loanstore.ErrNotFound):
		return DemandInput{}, err
	}

	prior, err := m.history.FindPriorEntry(ctx, g.ID, mem.ID, day)
	if err != nil {
		return DemandInput{}, err
	}
	bal, err := m.history.Balances(ctx, g.ID, mem.ID, day, mem.OpeningSaving)
	if err != nil {
		return DemandInput{}, err
	}
	return DemandInput{
		MonthlyInstallment: MonthlyInstallment(active, mem.LoanDetails),
		TwoMeetings:        meetings.ForGroup(g).MeetingsPerMonth() == 2,
		OverdueInterest:    InterestDemand(mem),
		SavingQuota:        SavingQuota(g, mem),
		FDSnapshot:         mem.FDAmount,
		Paid:               paid,
		Prior:              prior,
		Balances:           bal,
	}, nil
}

func (m *Manager) member(ctx context.Context, g models.Group, id primitive.ObjectID) (models.Member, error) {
	mem, err := m.members.GetByID(ctx, id)
	if errors.Is(err, memberstore.ErrNotFound) {
		return models.Member{}, ErrMemberNotFound
	}
	if err != nil {
		return models.Member{}, err
	}
	if mem.GroupID != g.ID {
		return models.Member{}, ErrMemberNotFound
	}
	return mem, nil
}

func (m *Manager) resolveGroup(ctx context.Context, ref string) (models.Group, error) {
	if strings.TrimSpace(ref) == "" {
		return models.Group{}, apperr.Invalid("group is required")
	}
	g, err := m.groups.Resolve(ctx, ref)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, ErrGroupNotFound
	}
	return g, err
}

func (m *Manager) parseDay(s string) (time.Time, error) {
	day, err := dateparse.Parse(s, m.loc)
	if err != nil {
		return time.Time{}, apperr.Wrap(apperr.KindInvalid, "", err)
	}
	return day, nil
}

// resolveMeeting resolves the group and the calendar day. Writes that can
// create entries also have to land on one of the group's meeting days.
func (m *Manager) resolveMeeting(ctx context.Context, groupRef, date string, gate bool) (models.Group, time.Time, error) {
	g, err := m.resolveGroup(ctx, groupRef)
	if err != nil {
		return models.Group{}, time.Time{}, err
	}
	day, err := m.parseDay(date)
	if err != nil {
		return models.Group{}, time.Time{}, err
	}
	if gate {
		if err := meetings.ForGroup(g).Check(day, m.now().In(m.loc)); err != nil {
			return models.Group{}, time.Time{}, apperr.Wrap(apperr.KindInvalid, "", err)
		}
	}
	return g, day, nil
}
