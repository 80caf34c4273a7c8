package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/hackhub/internal/apperror"
	"github.com/sakif/hackhub/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1
	return s.users.insert(ctx, user.ID, user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.byID(ctx, id)
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return s.users.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := s.users.one(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFoundMessage("no user with that email")
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting user by email: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, err := s.users.one(ctx, bson.M{"githubId": githubID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("user", fmt.Sprintf("github:%d", githubID))
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting user by github id %d: %w", githubID, err)
	}
	return u, nil
}

func (s *Store) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	notFound := apperror.NotFoundMessage("invalid or expired reset token")
	if token == "" {
		return nil, notFound
	}
	u, err := s.users.one(ctx, bson.M{
		"resetPasswordToken":     token,
		"resetPasswordExpiresAt": bson.M{"$gt": now},
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting user by reset token: %w", err)
	}
	return u, nil
}

func (s *Store) SearchUsers(ctx context.Context, query string, exclude []string, limit int) ([]model.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"name": containsFold(query)},
		bson.M{"email": containsFold(query)},
	}}
	if len(exclude) > 0 {
		filter["_id"] = bson.M{"$nin": exclude}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(int64(limit))
	return s.users.find(ctx, filter, opts)
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	next := *user
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	next.Email = strings.ToLower(strings.TrimSpace(next.Email))
	if err := s.users.replace(ctx, user.ID, user.Version, &next); err != nil {
		return err
	}
	*user = next
	return nil
}

// =========================================================================
// JUDGES
// =========================================================================

func (s *Store) CreateJudge(ctx context.Context, judge *model.Judge) error {
	now := time.Now().UTC()
	judge.ID = xid.New().String()
	judge.Email = strings.ToLower(strings.TrimSpace(judge.Email))
	judge.CreatedAt = now
	judge.UpdatedAt = now
	judge.Version = 1
	return s.judges.insert(ctx, judge.ID, judge)
}

func (s *Store) GetJudgeByID(ctx context.Context, id string) (*model.Judge, error) {
	return s.judges.byID(ctx, id)
}

func (s *Store) GetJudgeByEmail(ctx context.Context, email string) (*model.Judge, error) {
	j, err := s.judges.one(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFoundMessage("no judge with that email")
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting judge by email: %w", err)
	}
	return j, nil
}

func (s *Store) UpdateJudge(ctx context.Context, judge *model.Judge) error {
	next := *judge
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := s.judges.replace(ctx, judge.ID, judge.Version, &next); err != nil {
		return err
	}
	*judge = next
	return nil
}

func (s *Store) CountActiveJudges(ctx context.Context) (int, error) {
	n, err := s.judges.c.CountDocuments(ctx, bson.M{"isActive": true})
	if err != nil {
		return 0, fmt.Errorf("mongostore: counting active judges: %w", err)
	}
	return int(n), nil
}
