// internal/app/store/banks/bankstore.go
package bankstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound         = apperr.NotFound("bank account not found")
	ErrDuplicateAccount = apperr.Conflict("this bank account is already registered for the group")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("banks")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Bank, error) {
	var b models.Bank
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Bank{}, ErrNotFound
		}
		return models.Bank{}, err
	}
	return b, nil
}

func (s *Store) Create(ctx context.Context, b models.Bank) (models.Bank, error) {
	now := time.Now().UTC()
	b.ID = primitive.NewObjectID()
	b.CreatedAt = now
	b.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, b); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Bank{}, ErrDuplicateAccount
		}
		return models.Bank{}, err
	}
	return b, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Bank, error) {
	opts := options.Find().SetSort(bson.D{{Key: "bank_name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.Bank, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
