// internal/app/store/loans/loanstore.go
package loanstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = apperr.NotFound("loan not found")

// Store holds loan transactions. Records are insert-only.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("loans")}
}

func (s *Store) Create(ctx context.Context, l models.Loan) (models.Loan, error) {
	l.ID = primitive.NewObjectID()
	l.CreatedAt = time.Now().UTC()
	if l.Date.IsZero() {
		l.Date = l.CreatedAt
	}
	if l.TransactionType == "" {
		l.TransactionType = models.LoanTxnLoan
	}
	if l.Status == "" {
		l.Status = models.LoanApproved
	}
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.Loan{}, err
	}
	return l, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Loan, error) {
	var l models.Loan
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Loan{}, ErrNotFound
		}
		return models.Loan{}, err
	}
	return l, nil
}

// ActiveLoan returns the member's newest approved record of type "Loan".
func (s *Store) ActiveLoan(ctx context.Context, memberID primitive.ObjectID) (models.Loan, error) {
	filter := bson.M{
		"member_id":        memberID,
		"status":           models.LoanApproved,
		"transaction_type": models.LoanTxnLoan,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	var l models.Loan
	if err := s.c.FindOne(ctx, filter, opts).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Loan{}, ErrNotFound
		}
		return models.Loan{}, err
	}
	return l, nil
}

// ListByMember returns a member's loan transactions, newest first.
func (s *Store) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]models.Loan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"member_id": memberID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.Loan, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
