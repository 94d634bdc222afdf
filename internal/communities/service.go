package communities

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harborchat/harbor/internal/authz"
	"github.com/harborchat/harbor/internal/roles"
	"github.com/harborchat/harbor/internal/shared"
)

// Service handles community creation and membership.
type Service struct {
	repo   Repository
	roles  *roles.Service
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo Repository, roleService *roles.Service, logger *slog.Logger) *Service {
	return &Service{repo: repo, roles: roleService, logger: logger}
}

// Create provisions a community: the record itself, the three default role
// tiers, and the creator's Admin assignment. Role bootstrap is atomic; if it
// fails the community record is removed again so no community ever exists
// with a partial role set.
func (s *Service) Create(ctx context.Context, name, ownerID string) (*Community, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: community name is required", shared.ErrValidation)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", shared.ErrValidation)
	}

	community := Community{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
	}
	if err := s.repo.Create(ctx, community); err != nil {
		return nil, fmt.Errorf("create community: %w", err)
	}

	adminRoleID, err := s.roles.BootstrapCommunityRoles(ctx, community.ID)
	if err != nil {
		s.rollbackCreate(ctx, community.ID)
		return nil, fmt.Errorf("bootstrap roles: %w", err)
	}

	if _, err := s.roles.Assign(ctx, ownerID, adminRoleID, authz.Community(community.ID)); err != nil {
		s.rollbackCreate(ctx, community.ID)
		return nil, fmt.Errorf("assign creator admin role: %w", err)
	}

	s.logger.Info("community created",
		slog.String("community", community.ID),
		slog.String("owner", ownerID),
	)
	return &community, nil
}

// Join adds a user to a community by assigning the default Member role.
func (s *Service) Join(ctx context.Context, communityID, userID string) error {
	if _, err := s.repo.ByID(ctx, communityID); err != nil {
		return fmt.Errorf("community %s: %w", communityID, err)
	}

	scope := authz.Community(communityID)
	member, err := s.roles.RoleByName(ctx, scope, roles.NameMember)
	if err != nil {
		return fmt.Errorf("member role for %s: %w", communityID, err)
	}
	if _, err := s.roles.Assign(ctx, userID, member.ID, scope); err != nil {
		return err
	}
	return nil
}

// Leave removes a user's default Member assignment.
func (s *Service) Leave(ctx context.Context, communityID, userID string) error {
	scope := authz.Community(communityID)
	member, err := s.roles.RoleByName(ctx, scope, roles.NameMember)
	if err != nil {
		return fmt.Errorf("member role for %s: %w", communityID, err)
	}
	return s.roles.Unassign(ctx, userID, member.ID, scope)
}

// Get returns a community by id.
func (s *Service) Get(ctx context.Context, id string) (*Community, error) {
	return s.repo.ByID(ctx, id)
}

// rollbackCreate compensates a failed provisioning step. The role bootstrap
// may already have committed, so its roles are purged along with the community
// record; otherwise the purge is a no-op.
func (s *Service) rollbackCreate(ctx context.Context, communityID string) {
	if err := s.roles.PurgeCommunityRoles(ctx, communityID); err != nil {
		s.logger.Error("rollback community roles",
			slog.String("community", communityID),
			slog.Any("error", err),
		)
	}
	if err := s.repo.Delete(ctx, communityID); err != nil {
		s.logger.Error("rollback community create",
			slog.String("community", communityID),
			slog.Any("error", err),
		)
	}
}
