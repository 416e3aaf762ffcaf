// internal/app/store/fds/fdstore.go
package fdstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound    = apperr.NotFound("fixed deposit not found")
	ErrWrongStatus = apperr.Conflict("fixed deposit is not in the expected status")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("fds")}
}

func (s *Store) Create(ctx context.Context, fd models.FD) (models.FD, error) {
	now := time.Now().UTC()
	fd.ID = primitive.NewObjectID()
	if fd.Reference == "" {
		fd.Reference = "FD-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if fd.Status == "" {
		fd.Status = models.FDActive
	}
	fd.CreatedAt = now
	fd.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, fd); err != nil {
		return models.FD{}, err
	}
	return fd, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.FD, error) {
	var fd models.FD
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&fd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.FD{}, ErrNotFound
		}
		return models.FD{}, err
	}
	return fd, nil
}

// List returns FDs for a group, optionally narrowed to one member.
func (s *Store) List(ctx context.Context, groupID primitive.ObjectID, memberID *primitive.ObjectID) ([]models.FD, error) {
	filter := bson.M{"group_id": groupID}
	if memberID != nil {
		filter["member_id"] = *memberID
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.FD, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus moves an FD from one status to another. It fails with
// ErrWrongStatus when the FD is not currently in from.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) (models.FD, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var fd models.FD
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&fd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return models.FD{}, gerr
		}
		return models.FD{}, ErrWrongStatus
	}
	if err != nil {
		return models.FD{}, err
	}
	return fd, nil
}

// MatureDue marks every active FD whose maturity date is at or before now
// as matured and returns how many changed.
func (s *Store) MatureDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"status": models.FDActive, "maturity_date": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"status": models.FDMatured, "updated_at": now.UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
