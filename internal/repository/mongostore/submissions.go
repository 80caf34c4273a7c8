package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

var oldestFirst = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

func (s *Store) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	now := time.Now().UTC()
	sub.ID = xid.New().String()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	sub.Version = 1
	return s.submissions.insert(ctx, sub.ID, sub)
}

func (s *Store) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	return s.submissions.byID(ctx, id)
}

func (s *Store) GetSubmissionByProject(ctx context.Context, projectID string) (*model.Submission, error) {
	sub, err := s.submissions.one(ctx, bson.M{"project": projectID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("submission for project", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting submission of project %s: %w", projectID, err)
	}
	return sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	return s.submissions.find(ctx, bson.M{}, options.Find().SetSort(oldestFirst))
}

func (s *Store) ListScoredSubmissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	filter := bson.M{"scores.0": bson.M{"$exists": true}}
	if status != "" {
		filter["status"] = status
	}
	return s.submissions.find(ctx, filter, options.Find().SetSort(oldestFirst))
}

// FirstSubmission goes by createdAt. Two submissions stamped within the same
// instant but committed in reverse order can both believe they are first;
// a monotonic sequence (counter document with $inc) would close that gap.
func (s *Store) FirstSubmission(ctx context.Context) (*model.Submission, error) {
	subs, err := s.submissions.find(ctx, bson.M{}, options.Find().SetSort(oldestFirst).SetLimit(1))
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, apperror.NotFound("submission", "first")
	}
	return &subs[0], nil
}

func (s *Store) UpdateSubmission(ctx context.Context, sub *model.Submission) error {
	next := *sub
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := s.submissions.replace(ctx, sub.ID, sub.Version, &next); err != nil {
		return err
	}
	*sub = next
	return nil
}

func (s *Store) DeleteSubmission(ctx context.Context, id string) error {
	return s.submissions.delete(ctx, id)
}
