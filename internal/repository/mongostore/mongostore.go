// Package mongostore implements the repository interfaces on MongoDB.
//
// Each aggregate is one document in its own collection, encoded through the
// model's bson tags. Unique invariants are unique indexes created on Open,
// and optimistic concurrency is a ReplaceOne filtered on {_id, version}.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store owns the client and one collection handle per aggregate.
type Store struct {
	client *mongo.Client

	users       collection[model.User]
	teams       collection[model.Team]
	projects    collection[model.Project]
	tasks       collection[model.Task]
	submissions collection[model.Submission]
	judges      collection[model.Judge]
}

// Open connects to uri, selects database and ensures the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{NilSliceAsEmpty: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: pinging: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:      client,
		users:       collection[model.User]{c: db.Collection("users"), resource: "user"},
		teams:       collection[model.Team]{c: db.Collection("teams"), resource: "team"},
		projects:    collection[model.Project]{c: db.Collection("projects"), resource: "project"},
		tasks:       collection[model.Task]{c: db.Collection("tasks"), resource: "task"},
		submissions: collection[model.Submission]{c: db.Collection("submissions"), resource: "submission"},
		judges:      collection[model.Judge]{c: db.Collection("judges"), resource: "judge"},
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes every collection. Tests use it to start from a clean database.
func (s *Store) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.users.c, s.teams.c, s.projects.c, s.tasks.c, s.submissions.c, s.judges.c} {
		if err := c.Drop(ctx); err != nil {
			return fmt.Errorf("mongostore: dropping %s: %w", c.Name(), err)
		}
	}
	return s.ensureIndexes(ctx)
}

// Index names double as the key reported through repository.Duplicate.
func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(name string) *options.IndexOptions {
		return options.Index().SetUnique(true).SetName(name)
	}

	plan := []struct {
		c      *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique(repository.KeyEmail)},
			{Keys: bson.D{{Key: "githubId", Value: 1}}, Options: unique(repository.KeyGitHubID).
				SetPartialFilterExpression(bson.M{"githubId": bson.M{"$exists": true}})},
			{Keys: bson.D{{Key: "resetPasswordToken", Value: 1}}, Options: options.Index().SetSparse(true)},
		}},
		{s.teams.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "inviteCode", Value: 1}}, Options: unique(repository.KeyInviteCode)},
			{Keys: bson.D{{Key: "members.userId", Value: 1}}},
		}},
		{s.projects.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "team", Value: 1}}},
			{Keys: bson.D{{Key: "showcase.isPublic", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{s.tasks.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "project", Value: 1}}},
		}},
		{s.submissions.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "project", Value: 1}}, Options: unique(repository.KeyProject)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "finalScore", Value: -1}}},
		}},
		{s.judges.c, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique(repository.KeyEmail)},
			{Keys: bson.D{{Key: "judgeCode", Value: 1}}, Options: unique(repository.KeyJudgeCode)},
		}},
	}

	for _, p := range plan {
		if _, err := p.c.Indexes().CreateMany(ctx, p.models); err != nil {
			return fmt.Errorf("mongostore: creating indexes on %s: %w", p.c.Name(), err)
		}
	}
	return nil
}

// =========================================================================
// GENERIC COLLECTION
// =========================================================================

type collection[T any] struct {
	c        *mongo.Collection
	resource string
}

// translate maps a duplicate key error onto repository.Duplicate, naming the
// index that fired.
func translate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	for _, key := range []string{repository.KeyEmail, repository.KeyGitHubID, repository.KeyInviteCode,
		repository.KeyProject, repository.KeyJudgeCode} {
		if strings.Contains(msg, "index: "+key+" ") {
			return repository.Duplicate(key)
		}
	}
	return repository.Duplicate("id")
}

func (c collection[T]) insert(ctx context.Context, id string, v *T) error {
	if _, err := c.c.InsertOne(ctx, v); err != nil {
		return fmt.Errorf("mongostore: inserting %s %s: %w", c.resource, id, translate(err))
	}
	return nil
}

func (c collection[T]) byID(ctx context.Context, id string) (*T, error) {
	v, err := c.one(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound(c.resource, id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting %s %s: %w", c.resource, id, err)
	}
	return v, nil
}

func (c collection[T]) one(ctx context.Context, filter any) (*T, error) {
	var v T
	if err := c.c.FindOne(ctx, filter).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c collection[T]) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongostore: finding %s: %w", c.resource, err)
	}
	result := []T{}
	if err := cur.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("mongostore: decoding %s: %w", c.resource, err)
	}
	return result, nil
}

// replace saves next over the document only if it still has version expected.
func (c collection[T]) replace(ctx context.Context, id string, expected int64, next *T) error {
	res, err := c.c.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, next)
	if err != nil {
		return fmt.Errorf("mongostore: replacing %s %s: %w", c.resource, id, translate(err))
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := c.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: checking %s %s: %w", c.resource, id, err)
	}
	if n == 0 {
		return apperror.NotFound(c.resource, id)
	}
	return repository.ErrStale
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	res, err := c.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongostore: deleting %s %s: %w", c.resource, id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound(c.resource, id)
	}
	return nil
}

// containsFold matches a case-insensitive substring.
func containsFold(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(strings.TrimSpace(q)), "$options": "i"}
}
