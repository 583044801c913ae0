package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestsocial/nest/backend/internal/apperrors"
	"github.com/nestsocial/nest/backend/internal/models"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mutator edits a post inside an atomic read-modify-write. Returning an error aborts the write.
type Mutator func(post *models.Post) error

// PostRepository is the durable keyed store of posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (string, error)
	Get(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id string, mutate Mutator) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	QueryRecent(ctx context.Context, kinds []models.PostKind, limit int) ([]models.Post, error)
	FindRetweet(ctx context.Context, authorID, originalPostID string) (*models.Post, error)
}

// MongoPostRepository implements PostRepository for MongoDB.
// Update is a compare-and-swap on the version field.
type MongoPostRepository struct {
	collection *mongo.Collection
	logger     *log.Entry
}

// NewMongoPostRepository creates a new MongoPostRepository
func NewMongoPostRepository(db *mongo.Database) *MongoPostRepository {
	return &MongoPostRepository{
		collection: db.Collection("posts"),
		logger:     log.WithField("component", "mongo_post_repository"),
	}
}

// EnsureIndexes creates the feed ordering indexes and the retweet uniqueness index.
func (r *MongoPostRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "original_post_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_retweet_author_original").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"kind": models.KindRetweet}),
		},
	})
	return mapMongoError(err)
}

// Create inserts a validated post and returns its id
func (r *MongoPostRepository) Create(ctx context.Context, post *models.Post) (string, error) {
	if err := post.Validate(); err != nil {
		return "", err
	}
	if post.ID == "" {
		post.ID = models.NewPostID()
	}
	post.Reconcile()
	post.Version = 0
	if _, err := r.collection.InsertOne(ctx, post); err != nil {
		return "", fmt.Errorf("insert post: %w", mapMongoError(err))
	}
	return post.ID, nil
}

// Get retrieves a post by ID, repairing count drift on the way out
func (r *MongoPostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, mapMongoError(err))
	}
	repairOnRead(r.logger, &post)
	return &post, nil
}

// Update applies mutate to the current document and writes it back only if nobody
// else wrote in between. A lost race returns ErrConflict.
func (r *MongoPostRepository) Update(ctx context.Context, id string, mutate Mutator) (*models.Post, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.Reconcile()
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()

	filter := bson.M{"_id": id, "version": current.Version}
	if current.Version == 0 {
		// documents written before versioning have no version field at all
		filter = bson.M{"_id": id, "$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}
	update := bson.M{"$set": bson.M{
		"liked_by":      next.LikedBy,
		"retweeted_by":  next.RetweetedBy,
		"like_count":    next.LikeCount,
		"retweet_count": next.RetweetCount,
		"reply_count":   next.ReplyCount,
		"view_count":    next.ViewCount,
		"version":       next.Version,
		"updated_at":    next.UpdatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("update post %s: %w", id, mapMongoError(err))
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("update post %s at version %d: %w", id, current.Version, apperrors.ErrConflict)
	}
	return next, nil
}

// Delete deletes a post by ID from MongoDB
func (r *MongoPostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, mapMongoError(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete post %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// QueryRecent returns up to limit posts of the given kinds, newest first, ties by id
func (r *MongoPostRepository) QueryRecent(ctx context.Context, kinds []models.PostKind, limit int) ([]models.Post, error) {
	filter := bson.M{}
	if len(kinds) > 0 {
		filter["kind"] = bson.M{"$in": kinds}
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("query recent posts: %w", mapMongoError(err))
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err = cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode recent posts: %w", mapMongoError(err))
	}
	for i := range posts {
		repairOnRead(r.logger, &posts[i])
	}
	return posts, nil
}

// FindRetweet looks up the retweet shell userID created for originalPostID
func (r *MongoPostRepository) FindRetweet(ctx context.Context, authorID, originalPostID string) (*models.Post, error) {
	var post models.Post
	filter := bson.M{"author_id": authorID, "original_post_id": originalPostID, "kind": models.KindRetweet}
	if err := r.collection.FindOne(ctx, filter).Decode(&post); err != nil {
		return nil, fmt.Errorf("find retweet of %s by %s: %w", originalPostID, authorID, mapMongoError(err))
	}
	return &post, nil
}

// DeleteAll empties the collection; only the seed command uses it.
func (r *MongoPostRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return mapMongoError(err)
}

func mapMongoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(apperrors.ErrConflict, err)
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return errors.Join(apperrors.ErrUnavailable, err)
	}
	return apperrors.FromContext(err)
}

// repairOnRead recomputes counts from the sets. Drift is a bug elsewhere, so it is
// logged and counted but never trusted.
func repairOnRead(logger *log.Entry, post *models.Post) {
	storedLikes, storedRetweets := post.LikeCount, post.RetweetCount
	if !post.Reconcile() {
		return
	}
	invariantRepairs.Inc()
	logger.WithFields(log.Fields{
		"post_id":         post.ID,
		"stored_likes":    storedLikes,
		"stored_retweets": storedRetweets,
		"like_set":        post.LikeCount,
		"retweet_set":     post.RetweetCount,
	}).Warn(apperrors.ErrInvariantViolation.Error() + ": counts diverged from membership sets")
}
