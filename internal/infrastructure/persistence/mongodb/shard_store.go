package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kartal788/dftest/internal/domain/media"
	"github.com/kartal788/dftest/internal/domain/specification"
)

const latestReleaseField = "_latest_release"

// ShardStore is one storage shard: a database with a movie and a tv collection.
type ShardStore struct {
	index   int
	db      *mongo.Database
	timeout time.Duration
}

// NewShardStore wraps db as the shard with the given index.
func NewShardStore(index int, db *mongo.Database, timeout time.Duration) *ShardStore {
	return &ShardStore{index: index, db: db, timeout: timeout}
}

var _ media.ShardStore = (*ShardStore)(nil)

func (s *ShardStore) Index() int {
	return s.index
}

func (s *ShardStore) coll(mediaType media.MediaType) *mongo.Collection {
	return s.db.Collection(mediaType.Collection())
}

// EnsureIndexes creates the unique tmdb_id index and the sort indexes.
func (s *ShardStore) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tmdb_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "updated_on", Value: -1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}}},
		{Keys: bson.D{{Key: "genres", Value: 1}}},
	}
	for _, mt := range []media.MediaType{media.MediaTypeMovie, media.MediaTypeSeries} {
		if _, err := s.coll(mt).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("shard %d %s indexes: %w", s.index, mt.Collection(), err)
		}
	}
	return nil
}

func (s *ShardStore) FindByTMDB(ctx context.Context, mediaType media.MediaType, tmdbID int) (*media.MediaItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var item media.MediaItem
	err := s.coll(mediaType).FindOne(ctx, byTMDB(tmdbID)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, media.ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.stamp(&item, mediaType), nil
}

func (s *ShardStore) Insert(ctx context.Context, item *media.MediaItem) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	doc := item.Clone()
	doc.ShardIndex = s.index
	if _, err := s.coll(item.MediaType).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("duplicate key tmdb_id %d in shard %d: %w", item.TMDBID, s.index, err)
		}
		return err
	}
	return nil
}

func (s *ShardStore) Replace(ctx context.Context, item *media.MediaItem) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	doc := item.Clone()
	doc.ShardIndex = s.index
	res, err := s.coll(item.MediaType).ReplaceOne(ctx, byTMDB(item.TMDBID), doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return media.ErrMediaNotFound
	}
	return nil
}

func (s *ShardStore) Delete(ctx context.Context, mediaType media.MediaType, tmdbID int) (*media.MediaItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var item media.MediaItem
	err := s.coll(mediaType).FindOneAndDelete(ctx, byTMDB(tmdbID)).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, media.ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.stamp(&item, mediaType), nil
}

// Find runs the pushable filters on the server. latest_release needs a
// computed field, so that sort goes through an aggregation.
func (s *ShardStore) Find(ctx context.Context, q media.FindQuery) ([]*media.MediaItem, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	filter := pushdownFilter(q.Filters)

	var (
		cursor *mongo.Cursor
		err    error
	)
	if q.Sort == media.SortLatestRelease {
		cursor, err = s.coll(q.MediaType).Aggregate(ctx, latestReleasePipeline(filter, q.Skip, q.Limit))
	} else {
		opts := options.Find().SetSort(sortDocument(q.Sort))
		if q.Skip > 0 {
			opts.SetSkip(int64(q.Skip))
		}
		if q.Limit > 0 {
			opts.SetLimit(int64(q.Limit))
		}
		cursor, err = s.coll(q.MediaType).Find(ctx, filter, opts)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]*media.MediaItem, 0)
	for cursor.Next(ctx) {
		var item media.MediaItem
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, s.stamp(&item, q.MediaType))
	}
	return items, cursor.Err()
}

func (s *ShardStore) Iterate(ctx context.Context, mediaType media.MediaType, fn func(*media.MediaItem) error) error {
	cursor, err := s.coll(mediaType).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "tmdb_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var item media.MediaItem
		if err := cursor.Decode(&item); err != nil {
			return err
		}
		if err := fn(s.stamp(&item, mediaType)); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (s *ShardStore) Count(ctx context.Context, mediaType media.MediaType) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.coll(mediaType).CountDocuments(ctx, bson.M{})
}

func (s *ShardStore) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.Client().Ping(ctx, readpref.Primary())
}

// stamp sets fields the stored document may lack or carry stale. The
// collection a document was read from decides its media type.
func (s *ShardStore) stamp(item *media.MediaItem, mediaType media.MediaType) *media.MediaItem {
	item.ShardIndex = s.index
	item.MediaType = mediaType
	return item
}

func byTMDB(tmdbID int) bson.M {
	return pushdownFilter([]media.ItemSpecification{&media.TMDBSpecification{TMDBID: tmdbID}})
}

func pushdownFilter(filters []media.ItemSpecification) bson.M {
	pushdown, _ := specification.Split(filters...)
	if len(pushdown) == 0 {
		return bson.M{}
	}
	f, ok := specification.And(pushdown...).ToFilter()
	if !ok {
		return bson.M{}
	}
	return bson.M(f)
}

// sortDocument mirrors media.SortKey.Before: descending key, tmdb_id ascending.
func sortDocument(key media.SortKey) bson.D {
	field := "updated_on"
	if key == media.SortRating {
		field = "rating"
	}
	return bson.D{{Key: field, Value: -1}, {Key: "tmdb_id", Value: 1}}
}

// latestReleasePipeline sorts by the newest episode release of each series.
func latestReleasePipeline(filter bson.M, skip, limit int) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$addFields", Value: bson.M{
			latestReleaseField: bson.M{"$max": bson.M{
				"$reduce": bson.M{
					"input":        bson.M{"$ifNull": bson.A{"$seasons.episodes.released", bson.A{}}},
					"initialValue": bson.A{},
					"in":           bson.M{"$concatArrays": bson.A{"$$value", "$$this"}},
				},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: latestReleaseField, Value: -1}, {Key: "tmdb_id", Value: 1}}}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(skip)}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}
	return append(pipeline, bson.D{{Key: "$project", Value: bson.M{latestReleaseField: 0}}})
}
