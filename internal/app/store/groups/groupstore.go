// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"github.com/dalemusser/shgledger/internal/app/system/paging"
	"github.com/dalemusser/shgledger/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const StatusActive = "active"

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound      = apperr.NotFound("group not found")
	ErrDuplicateCode = apperr.Conflict("a group with this code already exists")
	ErrDuplicateName = apperr.Conflict("a group with this name already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByCode looks a group up by its registration code.
func (s *Store) GetByCode(ctx context.Context, code string) (models.Group, error) {
	return s.findOne(ctx, bson.M{"code": strings.TrimSpace(code)})
}

// GetByName looks a group up by case/diacritic-insensitive name. When names
// collide the oldest group wins.
func (s *Store) GetByName(ctx context.Context, name string) (models.Group, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{"name_ci": text.Fold(name)}, opts).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	return g, err
}

// Resolve accepts a group reference in any of the forms clients send:
// an ObjectID hex string, the group code, or the group name.
func (s *Store) Resolve(ctx context.Context, ref string) (models.Group, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Group{}, ErrNotFound
	}
	if oid, err := primitive.ObjectIDFromHex(ref); err == nil {
		g, err := s.GetByID(ctx, oid)
		if !errors.Is(err, ErrNotFound) {
			return g, err
		}
	}
	g, err := s.GetByCode(ctx, ref)
	if !errors.Is(err, ErrNotFound) {
		return g, err
	}
	return s.GetByName(ctx, ref)
}

// NameTaken reports whether another group already uses name. except may be
// the zero ObjectID.
func (s *Store) NameTaken(ctx context.Context, name string, except primitive.ObjectID) (bool, error) {
	filter := bson.M{"name_ci": text.Fold(name)}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, filter).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.Code = strings.TrimSpace(g.Code)
	g.NameCI = text.Fold(g.Name)
	if g.Status == "" {
		g.Status = StatusActive
	}
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateCode
		}
		return models.Group{}, err
	}
	return g, nil
}

// Update carries the mutable group fields. Nil fields are left unchanged.
// The code is not part of it: codes are fixed at registration.
type Update struct {
	Name             *string
	Village          *string
	Address          *string
	MeetingDay1      **int
	MeetingDay2      **int
	MeetingTime1     *string
	MeetingTime2     *string
	SavingPerMember  *float64
	LoanInterestRate *float64
	FDInterestRate   *float64
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Group, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		set["name"] = *u.Name
		set["name_ci"] = text.Fold(*u.Name)
	}
	if u.Village != nil {
		set["village"] = *u.Village
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	setDay := func(field string, v **int) {
		if v == nil {
			return
		}
		if *v == nil {
			unset[field] = ""
			return
		}
		set[field] = **v
	}
	setDay("meeting_date_1_day", u.MeetingDay1)
	setDay("meeting_date_2_day", u.MeetingDay2)
	if u.MeetingTime1 != nil {
		set["meeting_time_1"] = *u.MeetingTime1
	}
	if u.MeetingTime2 != nil {
		set["meeting_time_2"] = *u.MeetingTime2
	}
	if u.SavingPerMember != nil {
		set["saving_per_member"] = *u.SavingPerMember
	}
	if u.LoanInterestRate != nil {
		set["loan_interest_rate"] = *u.LoanInterestRate
	}
	if u.FDInterestRate != nil {
		set["fd_interest_rate"] = *u.FDInterestRate
	}

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var g models.Group
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, upd, opts).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// AddBank links a bank account to the group.
func (s *Store) AddBank(ctx context.Context, groupID, bankID primitive.ObjectID) error {
	res, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"bank_ids": bankID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of groups ordered by folded name. A non-empty q
// filters by name prefix. The caller trims the limit+1 look-ahead row.
func (s *Store) List(ctx context.Context, q string, page paging.KeysetConfig, limit int) ([]models.Group, error) {
	filter := bson.M{}
	if q = strings.TrimSpace(q); q != "" {
		filter["name_ci"] = bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(q))}
	}
	if window := page.KeysetWindow("name_ci"); window != nil {
		filter["$or"] = window["$or"]
	}
	opts := options.Find()
	page.ApplyToFind(opts, "name_ci", limit)
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]models.Group, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
