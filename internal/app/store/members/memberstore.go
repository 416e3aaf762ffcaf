// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const StatusActive = "active"

var ErrNotFound = apperr.NotFound("member not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

func (s *Store) Create(ctx context.Context, m models.Member) (models.Member, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.NameCI = text.Fold(m.Name)
	if m.Status == "" {
		m.Status = StatusActive
	}
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// ListByGroup returns a group's members ordered by name.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.Member, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update carries the mutable member fields. Nil fields are left unchanged.
type Update struct {
	Name                *string
	Phone               *string
	Address             *string
	OpeningSaving       *float64
	SavingQuotaSnapshot *float64
	LoanDetails         *models.LoanDetails
	OverdueInterest     *float64
	FDAmount            *float64
	Status              *string
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Member, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
		set["name_ci"] = text.Fold(*u.Name)
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.OpeningSaving != nil {
		set["opening_saving"] = *u.OpeningSaving
	}
	if u.SavingQuotaSnapshot != nil {
		set["saving_quota_snapshot"] = *u.SavingQuotaSnapshot
	}
	if u.LoanDetails != nil {
		set["loan_details"] = *u.LoanDetails
	}
	if u.OverdueInterest != nil {
		set["overdue_interest"] = *u.OverdueInterest
	}
	if u.FDAmount != nil {
		set["fd_amount"] = *u.FDAmount
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.Member
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// AddFDAmount adjusts the member's FD snapshot by delta (negative on payout).
func (s *Store) AddFDAmount(ctx context.Context, id primitive.ObjectID, delta float64) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"fd_amount": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByGroup returns the number of members in a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}
