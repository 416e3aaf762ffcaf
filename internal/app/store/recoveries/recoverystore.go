// internal/app/store/recoveries/recoverystore.go
package recoverystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/shgledger/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = errors.New("recovery session not found")
	ErrDuplicateSession = errors.New("recovery session already exists for this group and day")
	ErrVersionConflict  = errors.New("recovery session was modified by another writer")
)

// Store persists recovery sessions. One document per (group_id, date_key),
// guarded by the uniq_recoveries_group_datekey index; every write after the
// first is a compare-and-swap on version.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("recoveries")}
}

// FindByDay returns the group's session whose date falls in [start, end].
func (s *Store) FindByDay(ctx context.Context, groupID primitive.ObjectID, start, end time.Time) (models.RecoverySession, error) {
	var rs models.RecoverySession
	err := s.c.FindOne(ctx, bson.M{
		"group_id": groupID,
		"date":     bson.M{"$gte": start, "$lte": end},
	}).Decode(&rs)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.RecoverySession{}, ErrNotFound
		}
		return models.RecoverySession{}, err
	}
	return rs, nil
}

// Insert creates a session at version 1.
func (s *Store) Insert(ctx context.Context, rs models.RecoverySession) (models.RecoverySession, error) {
	now := time.Now().UTC()
	rs.ID = primitive.NewObjectID()
	rs.Version = 1
	rs.CreatedAt = now
	rs.UpdatedAt = now
	if rs.Status == "" {
		rs.Status = models.SessionApproved
	}
	if _, err := s.c.InsertOne(ctx, rs); err != nil {
		if wafflemongo.IsDup(err) {
			return models.RecoverySession{}, ErrDuplicateSession
		}
		return models.RecoverySession{}, err
	}
	return rs, nil
}

// Replace writes the whole session if its stored version still equals
// rs.Version, and bumps the version. Otherwise it returns ErrVersionConflict.
func (s *Store) Replace(ctx context.Context, rs models.RecoverySession) (models.RecoverySession, error) {
	expected := rs.Version
	rs.Version = expected + 1
	rs.UpdatedAt = time.Now().UTC()
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": rs.ID, "version": expected}, rs)
	if err != nil {
		return models.RecoverySession{}, err
	}
	if res.MatchedCount == 0 {
		return models.RecoverySession{}, ErrVersionConflict
	}
	return rs, nil
}

// MemberQuery selects sessions holding an entry for one member.
// A zero From means no lower bound. Before is exclusive. With AnySession
// set, sessions without an entry for the member match too and come back
// with no Recoveries.
type MemberQuery struct {
	GroupID     primitive.ObjectID
	MemberID    primitive.ObjectID
	From        time.Time
	Before      time.Time
	NewestFirst bool
	Limit       int64
	AnySession  bool
}

// MemberSessions returns the sessions matching q. Only the member's own
// entry is projected into Recoveries.
func (s *Store) MemberSessions(ctx context.Context, q MemberQuery) ([]models.RecoverySession, error) {
	dateCond := bson.M{"$lt": q.Before}
	if !q.From.IsZero() {
		dateCond["$gte"] = q.From
	}
	filter := bson.M{
		"group_id": q.GroupID,
		"date":     dateCond,
	}
	if !q.AnySession {
		filter["recoveries.member_id"] = q.MemberID
	}
	dir := 1
	if q.NewestFirst {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: dir}, {Key: "_id", Value: dir}}).
		SetProjection(bson.M{
			"group_id":   1,
			"date":       1,
			"date_key":   1,
			"status":     1,
			"version":    1,
			"recoveries": bson.M{"$elemMatch": bson.M{"member_id": q.MemberID}},
		})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return s.find(ctx, filter, opts)
}

// ListRange returns a group's sessions with from <= date < before, oldest first.
func (s *Store) ListRange(ctx context.Context, groupID primitive.ObjectID, from, before time.Time) ([]models.RecoverySession, error) {
	filter := bson.M{
		"group_id": groupID,
		"date":     bson.M{"$gte": from, "$lt": before},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, filter, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.RecoverySession, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.RecoverySession, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
