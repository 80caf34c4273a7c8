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

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) CreateTeam(ctx context.Context, team *model.Team) error {
	now := time.Now().UTC()
	if team.ID == "" {
		team.ID = xid.New().String()
	}
	team.CreatedAt = now
	team.UpdatedAt = now
	team.Version = 1
	return s.teams.insert(ctx, team.ID, team)
}

func (s *Store) GetTeamByID(ctx context.Context, id string) (*model.Team, error) {
	return s.teams.byID(ctx, id)
}

func (s *Store) GetTeamByInviteCode(ctx context.Context, code string) (*model.Team, error) {
	t, err := s.teams.one(ctx, bson.M{"inviteCode": code})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFoundMessage("invalid invite code")
	}
	if err != nil {
		return nil, fmt.Errorf("mongostore: getting team by invite code: %w", err)
	}
	return t, nil
}

func (s *Store) ListTeamsByMember(ctx context.Context, userID string) ([]model.Team, error) {
	return s.teams.find(ctx, bson.M{"members.userId": userID}, options.Find().SetSort(newestFirst))
}

func (s *Store) SearchTeams(ctx context.Context, query string, limit int) ([]model.Team, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"name": containsFold(query)},
		bson.M{"description": containsFold(query)},
	}}
	return s.teams.find(ctx, filter, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (s *Store) UpdateTeam(ctx context.Context, team *model.Team) error {
	next := *team
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	if err := s.teams.replace(ctx, team.ID, team.Version, &next); err != nil {
		return err
	}
	*team = next
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	return s.teams.delete(ctx, id)
}
