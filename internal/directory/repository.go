// Package directory reads the resource containment relations the authorization
// core walks during scope resolution. It owns no data: channels, messages, and
// DM groups belong to their own services; this package only looks up who
// contains what.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/shared"
)

// PGRepository implements authz.Directory using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ authz.Directory = (*PGRepository)(nil)

// ChannelCommunity returns the id of the community owning a channel.
func (r *PGRepository) ChannelCommunity(ctx context.Context, channelID string) (string, error) {
	var communityID string
	err := r.pool.QueryRow(ctx,
		`SELECT community_id FROM channels WHERE id = $1`, channelID,
	).Scan(&communityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("channel %s: %w", channelID, shared.ErrNotFound)
		}
		return "", err
	}
	return communityID, nil
}

// MessageContainer returns where a message lives. The channel join resolves
// the owning community in the same round trip when the message is not a DM.
func (r *PGRepository) MessageContainer(ctx context.Context, messageID string) (authz.MessageContainer, error) {
	var channelID, dmGroupID, communityID *string
	err := r.pool.QueryRow(ctx, `
		SELECT m.channel_id, m.dm_group_id, c.community_id
		FROM messages m
		LEFT JOIN channels c ON c.id = m.channel_id
		WHERE m.id = $1`,
		messageID,
	).Scan(&channelID, &dmGroupID, &communityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.MessageContainer{}, fmt.Errorf("message %s: %w", messageID, shared.ErrNotFound)
		}
		return authz.MessageContainer{}, err
	}

	var container authz.MessageContainer
	if channelID != nil {
		container.ChannelID = *channelID
	}
	if dmGroupID != nil {
		container.DMGroupID = *dmGroupID
	}
	if communityID != nil {
		container.CommunityID = *communityID
	}
	return container, nil
}

// DMGroupMember reports whether the user belongs to the DM group.
func (r *PGRepository) DMGroupMember(ctx context.Context, userID, groupID string) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM dm_group_members WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID,
	).Scan(&member)
	if err != nil {
		return false, err
	}
	return member, nil
}
