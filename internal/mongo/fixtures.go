package mongo

import (
	"context"
	"errors"

	"VectorInit/internal/errs"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertFixtures writes every record as a new document in one ordered
// insertMany. Records without _id get one from the driver. On failure the
// returned *errs.InsertError says how many records were written first.
func (c *Client) InsertFixtures(ctx context.Context, collection string, records []bson.D) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	col := c.DB.Collection(collection)
	docs := make([]interface{}, len(records))
	for i, r := range records {
		docs[i] = r
	}

	res, err := col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		n := writtenBeforeFault(err, len(records))
		return n, &errs.InsertError{
			Collection: collection,
			Inserted:   n,
			Total:      len(records),
			Err:        errs.ClassifyWrite(err),
		}
	}
	log.Info().Str("collection", collection).Int("inserted", len(res.InsertedIDs)).Msg("fixtures-inserted")
	return len(res.InsertedIDs), nil
}

// writtenBeforeFault is the index of the first failed record. Inserts are
// ordered, so everything before it is in the collection. A write concern
// error alone means every record was applied but not acknowledged.
func writtenBeforeFault(err error, total int) int {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return 0
	}
	if len(bwe.WriteErrors) == 0 {
		if bwe.WriteConcernError != nil {
			return total
		}
		return 0
	}
	first := bwe.WriteErrors[0].Index
	for _, we := range bwe.WriteErrors[1:] {
		if we.Index < first {
			first = we.Index
		}
	}
	return first
}

type UpsertResult struct {
	Matched  int64
	Modified int64
	Upserted int64
	Inserted int64
	Skipped  int
}

// Written counts records that changed the collection. Matched records whose
// content was already identical are in Matched only.
func (r UpsertResult) Written() int64 { return r.Upserted + r.Inserted + r.Modified }

// UpsertFixtures replaces-or-inserts each record keyed on key (falling back
// to _id). Keyless records are only inserted into an empty collection, so a
// second run never duplicates them.
func (c *Client) UpsertFixtures(ctx context.Context, collection, key string, records []bson.D) (UpsertResult, error) {
	var out UpsertResult
	if len(records) == 0 {
		return out, nil
	}
	col := c.DB.Collection(collection)

	writes := make([]mongo.WriteModel, 0, len(records))
	var keyless []bson.D
	for _, r := range records {
		k, v, ok := recordKey(r, key)
		if !ok {
			keyless = append(keyless, r)
			continue
		}
		w := mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: k, Value: v}}).
			SetReplacement(r).
			SetUpsert(true)
		writes = append(writes, w)
	}

	if len(keyless) > 0 {
		empty, err := c.isEmpty(ctx, col)
		if err != nil {
			return out, errs.ClassifyWrite(err)
		}
		if empty {
			for _, r := range keyless {
				writes = append(writes, mongo.NewInsertOneModel().SetDocument(r))
			}
		} else {
			out.Skipped = len(keyless)
		}
	}
	if len(writes) == 0 {
		log.Info().Str("collection", collection).Int("skipped", out.Skipped).Msg("fixtures-upsert-noop")
		return out, nil
	}

	res, err := col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if res != nil {
		out.Matched, out.Modified = res.MatchedCount, res.ModifiedCount
		out.Upserted, out.Inserted = res.UpsertedCount, res.InsertedCount
	}
	if err != nil {
		return out, &errs.InsertError{
			Collection: collection,
			Inserted:   int(out.Written()),
			Total:      len(records),
			Err:        errs.ClassifyWrite(err),
		}
	}
	log.Info().Str("collection", collection).
		Int64("matched", out.Matched).Int64("modified", out.Modified).
		Int64("upserted", out.Upserted).Int64("inserted", out.Inserted).
		Int("skipped", out.Skipped).Msg("fixtures-bulkwrite")
	return out, nil
}

func (c *Client) isEmpty(ctx context.Context, col *mongo.Collection) (bool, error) {
	n, err := col.CountDocuments(ctx, bson.D{}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func recordKey(r bson.D, key string) (string, interface{}, bool) {
	var id interface{}
	hasID := false
	for _, e := range r {
		if e.Key == key && key != "" {
			return e.Key, e.Value, true
		}
		if e.Key == "_id" {
			id, hasID = e.Value, true
		}
	}
	if hasID {
		return "_id", id, true
	}
	return "", nil, false
}
