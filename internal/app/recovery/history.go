package recovery

import (
	"context"
	"time"

	recoverystore "github.com/dalemusser/shgledger/internal/app/store/recoveries"
	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/dalemusser/shgledger/internal/app/system/money"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberSessionFinder is the part of the session store the history lookups use.
type MemberSessionFinder interface {
	MemberSessions(ctx context.Context, q recoverystore.MemberQuery) ([]models.RecoverySession, error)
}

// PriorEntry is the member's entry at the previous meeting. Found is false
// when there was no meeting earlier this month or last month, or when the
// member has no entry in that meeting; both are valid states and mean
// nothing carries forward.
type PriorEntry struct {
	Found     bool                 `json:"found"`
	SessionID primitive.ObjectID   `json:"session_id,omitempty"`
	Date      time.Time            `json:"date,omitempty"`
	Entry     models.RecoveryEntry `json:"entry"`
}

// Balances are a member's cumulative payments before a day. Saving starts
// from the member's opening saving; loan and interest start from zero.
type Balances struct {
	Loan     float64 `json:"loan"`
	Interest float64 `json:"interest"`
	Saving   float64 `json:"saving"`
}

// History answers questions about a member's earlier recovery entries.
type History struct {
	sessions MemberSessionFinder
}

func NewHistory(sessions MemberSessionFinder) *History {
	return &History{sessions: sessions}
}

// FindPriorEntry returns the member's entry from the latest session before
// day in the same calendar month, or failing that, the latest session in
// the previous calendar month. Only that one session is consulted: a member
// absent from it gets a zero entry. day must be the start of a calendar day.
func (h *History) FindPriorEntry(ctx context.Context, groupID, memberID primitive.ObjectID, day time.Time) (PriorEntry, error) {
	monthStart := dateparse.MonthStart(day)
	windows := [][2]time.Time{
		{monthStart, day},
		{monthStart.AddDate(0, -1, 0), monthStart},
	}
	for _, w := range windows {
		found, err := h.sessions.MemberSessions(ctx, recoverystore.MemberQuery{
			GroupID:     groupID,
			MemberID:    memberID,
			From:        w[0],
			Before:      w[1],
			NewestFirst: true,
			Limit:       1,
			AnySession:  true,
		})
		if err != nil {
			return PriorEntry{}, err
		}
		if len(found) == 0 {
			continue
		}
		rs := found[0]
		e, ok := rs.Entry(memberID)
		if !ok {
			return PriorEntry{}, nil
		}
		return PriorEntry{Found: true, SessionID: rs.ID, Date: rs.Date, Entry: e}, nil
	}
	return PriorEntry{}, nil
}

// CumulativeBefore sums one category over every session before day, oldest
// first, starting from opening.
func (h *History) CumulativeBefore(ctx context.Context, groupID, memberID primitive.ObjectID, day time.Time, cat models.Category, opening float64) (float64, error) {
	sessions, err := h.earlier(ctx, groupID, memberID, day)
	if err != nil {
		return 0, err
	}
	sum := money.D(opening)
	for _, rs := range sessions {
		if e, ok := rs.Entry(memberID); ok {
			sum = sum.Add(money.D(e.Amounts.Get(cat)))
		}
	}
	return money.F(sum), nil
}

// Balances computes the loan, interest and saving cumulatives in one scan.
func (h *History) Balances(ctx context.Context, groupID, memberID primitive.ObjectID, day time.Time, openingSaving float64) (Balances, error) {
	sessions, err := h.earlier(ctx, groupID, memberID, day)
	if err != nil {
		return Balances{}, err
	}
	loan, interest, saving := decimal.Zero, decimal.Zero, money.D(openingSaving)
	for _, rs := range sessions {
		e, ok := rs.Entry(memberID)
		if !ok {
			continue
		}
		loan = loan.Add(money.D(e.Amounts.Loan))
		interest = interest.Add(money.D(e.Amounts.Interest))
		saving = saving.Add(money.D(e.Amounts.Saving))
	}
	return Balances{Loan: money.F(loan), Interest: money.F(interest), Saving: money.F(saving)}, nil
}

func (h *History) earlier(ctx context.Context, groupID, memberID primitive.ObjectID, day time.Time) ([]models.RecoverySession, error) {
	return h.sessions.MemberSessions(ctx, recoverystore.MemberQuery{
		GroupID:  groupID,
		MemberID: memberID,
		Before:   day,
	})
}
