// internal/app/store/payments/paymentstore.go
package paymentstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound          = apperr.NotFound("payment not found")
	ErrFDPaymentExists   = apperr.Conflict("a payment for this fixed deposit already exists")
	ErrInvalidTransition = apperr.Conflict("payment cannot move to that status")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payments")}
}

// Create inserts a payment. For FD payments it first checks for a live
// (non-rejected) payment on the same FD; the unique fd_claim index catches
// the race the check leaves open.
func (s *Store) Create(ctx context.Context, p models.Payment) (models.Payment, error) {
	if p.FDID != nil {
		live, err := s.c.CountDocuments(ctx, bson.M{"fd_claim": *p.FDID})
		if err != nil {
			return models.Payment{}, err
		}
		if live > 0 {
			return models.Payment{}, ErrFDPaymentExists
		}
		claim := *p.FDID
		p.FDClaim = &claim
	}
	now := time.Now().UTC()
	p.ID = primitive.NewObjectID()
	if p.Reference == "" {
		p.Reference = "PAY-" + strings.ToUpper(uuid.NewString()[:8])
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Payment{}, ErrFDPaymentExists
		}
		return models.Payment{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Payment{}, ErrNotFound
		}
		return models.Payment{}, err
	}
	return p, nil
}

// List returns a group's payments, newest first, optionally by status.
func (s *Store) List(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.Payment, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.Payment, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transition moves a payment from -> to atomically. Rejecting a payment
// releases its FD claim so a new request can be raised.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from, to string) (models.Payment, error) {
	if !models.CanTransition(from, to) {
		return models.Payment{}, ErrInvalidTransition
	}
	upd := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}
	if to == models.PaymentRejected {
		upd["$unset"] = bson.M{"fd_claim": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Payment
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, upd, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.Payment{}, gerr
		}
		return models.Payment{}, ErrInvalidTransition
	}
	if err != nil {
		return models.Payment{}, err
	}
	return p, nil
}
