// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"groups", ensureGroups},
		{"members", ensureMembers},
		{"banks", ensureBanks},
		{"loans", ensureLoans},
		{"fds", ensureFDs},
		{"payments", ensurePayments},
		{"recoveries", ensureRecoveries},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
	Sparse *bool  `bson:"sparse,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// ensureIndexSet makes coll carry every index in models. An index with the
// same keys but a different name is renamed; one with different unique or
// sparse options is dropped and recreated.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string
	existing := listIndexes(ctx, coll)

	for _, m := range models {
		var name string
		var unique, sparse bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = boolOf(m.Options.Unique)
			sparse = boolOf(m.Options.Sparse)
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		if ex, ok := existing[sig]; ok {
			sameOpts := boolOf(ex.Unique) == unique && boolOf(ex.Sparse) == sparse
			if sameOpts && (name == "" || ex.Name == name) {
				log.Debug("reusing existing index", zap.String("took", time.Since(start).String()))
				continue
			}
			// Name or options differ: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
			log.Info("dropped index to realign", zap.String("existing", ex.Name))
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			if isDuplicateKeyErr(err) && unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed", zap.String("took", time.Since(start).String()), zap.Error(err))
			continue
		}
		log.Info("index ensured",
			zap.String("created_name", created),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		// Group codes are the registration identity.
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_groups_code"),
		},
		// Name lookup / prefix search + stable sort
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_nameci__id"),
		},
	})
}

func ensureMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("members"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_members_group_nameci__id"),
		},
	})
}

func ensureBanks(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("banks"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "account_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_banks_group_account"),
		},
	})
}

func ensureLoans(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("loans"), []mongo.IndexModel{
		// Active-loan lookup: newest approved "Loan" per member.
		{
			Keys: bson.D{
				{Key: "member_id", Value: 1},
				{Key: "transaction_type", Value: 1},
				{Key: "status", Value: 1},
				{Key: "date", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("idx_loans_member_type_status_date"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "date", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_loans_member_date"),
		},
	})
}

func ensureFDs(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("fds"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "member_id", Value: 1}, {Key: "start_date", Value: -1}},
			Options: options.Index().SetName("idx_fds_group_member_start"),
		},
		// Maturity sweep
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "maturity_date", Value: 1}},
			Options: options.Index().SetName("idx_fds_status_maturity"),
		},
	})
}

func ensurePayments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("payments"), []mongo.IndexModel{
		// At most one live (non-rejected) payment per FD. fd_claim is unset
		// on rejection and absent on withdrawals, hence sparse.
		{
			Keys:    bson.D{{Key: "fd_claim", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_payments_fdclaim"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_payments_group_status_created"),
		},
	})
}

func ensureRecoveries(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("recoveries"), []mongo.IndexModel{
		// One session per group per calendar day.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "date_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_recoveries_group_datekey"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("idx_recoveries_group_date"),
		},
		// Member history scans (prior entry, cumulative balances).
		{
			Keys: bson.D{
				{Key: "group_id", Value: 1},
				{Key: "recoveries.member_id", Value: 1},
				{Key: "date", Value: 1},
			},
			Options: options.Index().SetName("idx_recoveries_group_member_date"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_group_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "subject_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_subject_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
