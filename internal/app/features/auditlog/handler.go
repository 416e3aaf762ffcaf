// internal/app/features/auditlog/handler.go
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/shgledger/internal/app/store/audit"
	groupstore "github.com/dalemusser/shgledger/internal/app/store/groups"
	"github.com/dalemusser/shgledger/internal/app/system/apiresp"
	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/dateparse"
	"github.com/dalemusser/shgledger/internal/app/system/inputval"
	"github.com/dalemusser/shgledger/internal/app/system/paging"
	"github.com/dalemusser/shgledger/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB  *mongo.Database
	Loc *time.Location
	Log *zap.Logger
}

// NewHandler constructs an audit trail handler. Dates in filters are read
// as calendar days in loc.
func NewHandler(db *mongo.Database, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{DB: db, Loc: loc, Log: logger}
}

type listQuery struct {
	Category  string `json:"category" validate:"omitempty,oneof=ledger admin"`
	EventType string `json:"event_type" validate:"max=64"`
	MemberID  string `json:"member_id" validate:"omitempty,objectid"`
	SubjectID string `json:"subject_id" validate:"omitempty,objectid"`
	From      string `json:"from" validate:"omitempty,ledgerdate"`
	To        string `json:"to" validate:"omitempty,ledgerdate"`
}

// listResult is one page of a group's audit trail, newest first.
type listResult struct {
	Events []audit.Event `json:"events"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
	Total  int64         `json:"total"`
}

// ServeList handles GET /groups/{id}/audit with optional category,
// event_type, member_id, subject_id, from, to (DD/MM/YYYY), page and limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := listQuery{
		Category:  query.Get(r, "category"),
		EventType: query.Get(r, "event_type"),
		MemberID:  query.Get(r, "member_id"),
		SubjectID: query.Get(r, "subject_id"),
		From:      query.Get(r, "from"),
		To:        query.Get(r, "to"),
	}
	if err := inputval.Validate(q); err != nil {
		apiresp.Error(w, h.Log, "list audit events", err)
		return
	}
	limit, err := paging.ParseLimit(r)
	if err != nil {
		apiresp.Error(w, h.Log, "list audit events", err)
		return
	}
	page := 1
	if s := query.Get(r, "page"); s != "" {
		if page, err = strconv.Atoi(s); err != nil || page < 1 {
			apiresp.Error(w, h.Log, "list audit events", apperr.Invalid("page must be a positive number"))
			return
		}
	}

	filter := audit.QueryFilter{
		Category:  q.Category,
		EventType: q.EventType,
		Limit:     int64(limit),
		Offset:    int64((page - 1) * limit),
	}
	if q.MemberID != "" {
		id, _ := primitive.ObjectIDFromHex(q.MemberID)
		filter.MemberID = &id
	}
	if q.SubjectID != "" {
		id, _ := primitive.ObjectIDFromHex(q.SubjectID)
		filter.SubjectID = &id
	}
	if q.From != "" {
		d, _ := dateparse.Parse(q.From, h.Loc)
		start, _ := dateparse.DayBounds(d, h.Loc)
		filter.StartTime = &start
	}
	if q.To != "" {
		d, _ := dateparse.Parse(q.To, h.Loc)
		_, end := dateparse.DayBounds(d, h.Loc)
		filter.EndTime = &end
	}
	if filter.StartTime != nil && filter.EndTime != nil && filter.EndTime.Before(*filter.StartTime) {
		apiresp.Error(w, h.Log, "list audit events", apperr.Invalid("from must not be after to"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list audit events")
	defer cancel()

	g, err := groupstore.New(h.DB).Resolve(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apiresp.Error(w, h.Log, "list audit events", err)
		return
	}
	filter.GroupID = &g.ID

	store := audit.New(h.DB)
	events, err := store.Query(ctx, filter)
	if err != nil {
		apiresp.Error(w, h.Log, "list audit events", err)
		return
	}
	total, err := store.Count(ctx, filter)
	if err != nil {
		apiresp.Error(w, h.Log, "list audit events", err)
		return
	}
	apiresp.OK(w, listResult{Events: events, Page: page, Limit: limit, Total: total})
}
