package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/harborchat/harbor/internal/shared"
)

// ResourceKind tags what sort of entity a resource id refers to.
type ResourceKind string

const (
	KindInstance  ResourceKind = "instance"
	KindCommunity ResourceKind = "community"
	KindChannel   ResourceKind = "channel"
	KindMessage   ResourceKind = "message"
	KindDMGroup   ResourceKind = "dm_group"
)

// MessageContainer describes where a message lives. Exactly one of ChannelID
// and DMGroupID is set for a well-formed message; CommunityID is filled when
// the store can resolve the owning community in the same lookup.
type MessageContainer struct {
	ChannelID   string
	DMGroupID   string
	CommunityID string
}

// Directory exposes the read-only containment relations of the resource store.
// Implementations return shared.ErrNotFound for missing resources.
type Directory interface {
	ChannelCommunity(ctx context.Context, channelID string) (string, error)
	MessageContainer(ctx context.Context, messageID string) (MessageContainer, error)
	DMGroupMember(ctx context.Context, userID, groupID string) (bool, error)
}

// Resolution is the outcome of resolving a resource reference. When DMGroupID
// is set, authorization is the DM membership check and role grants are
// irrelevant; otherwise Scope governs the resource.
type Resolution struct {
	Scope     Scope
	DMGroupID string
}

// Resolver translates a resource reference into the scope whose roles govern
// it, walking the containment hierarchy through the Directory. It performs
// read-only lookups and never mutates anything.
type Resolver struct {
	dir Directory
}

// NewResolver builds a Resolver over the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// ResolveScope resolves (resourceID, kind) to its authorization scope. Any
// missing intermediate resource and any unknown kind yields shared.ErrNotFound;
// callers must treat that as a denial, never as "no restriction".
func (r *Resolver) ResolveScope(ctx context.Context, resourceID string, kind ResourceKind) (Resolution, error) {
	if resourceID == "" || kind == KindInstance {
		return Resolution{Scope: Instance}, nil
	}

	switch kind {
	case KindCommunity:
		return Resolution{Scope: Community(resourceID)}, nil

	case KindChannel:
		communityID, err := r.dir.ChannelCommunity(ctx, resourceID)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolve channel %s: %w", resourceID, err)
		}
		return Resolution{Scope: Community(communityID)}, nil

	case KindMessage:
		container, err := r.dir.MessageContainer(ctx, resourceID)
		if err != nil {
			return Resolution{}, fmt.Errorf("resolve message %s: %w", resourceID, err)
		}
		switch {
		case container.DMGroupID != "":
			return Resolution{DMGroupID: container.DMGroupID}, nil
		case container.CommunityID != "":
			return Resolution{Scope: Community(container.CommunityID)}, nil
		case container.ChannelID != "":
			communityID, err := r.dir.ChannelCommunity(ctx, container.ChannelID)
			if err != nil {
				return Resolution{}, fmt.Errorf("resolve message %s channel: %w", resourceID, err)
			}
			return Resolution{Scope: Community(communityID)}, nil
		default:
			// A message with neither a channel nor a DM group is orphaned.
			return Resolution{}, fmt.Errorf("resolve message %s: no container: %w", resourceID, shared.ErrNotFound)
		}

	case KindDMGroup:
		return Resolution{DMGroupID: resourceID}, nil

	default:
		return Resolution{}, fmt.Errorf("resolve %s: unknown resource kind %q: %w", resourceID, kind, shared.ErrNotFound)
	}
}

// IsNotFound reports whether the resolution error means the resource does not
// exist, as opposed to a store failure.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
