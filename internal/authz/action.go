// Package authz implements the authorization core: the action catalog, scope
// resolution over the resource containment hierarchy, and set-membership
// permission evaluation. Every decision in this package is deny-by-default.
package authz

import (
	"fmt"
	"strings"

	"github.com/harborchat/harbor/internal/shared"
)

// Action is an atomic permission symbol, e.g. "message.delete".
type Action string

// Message actions.
const (
	ActionMessageCreate Action = "message.create"
	ActionMessageRead   Action = "message.read"
	ActionMessageUpdate Action = "message.update"
	ActionMessageDelete Action = "message.delete"
	ActionMessagePin    Action = "message.pin"
)

// Channel actions.
const (
	ActionChannelRead   Action = "channel.read"
	ActionChannelCreate Action = "channel.create"
	ActionChannelUpdate Action = "channel.update"
	ActionChannelDelete Action = "channel.delete"
)

// Voice actions.
const (
	ActionVoiceConnect Action = "voice.connect"
	ActionVoiceSpeak   Action = "voice.speak"
	ActionVoiceMute    Action = "voice.mute"
)

// Community management actions.
const (
	ActionCommunityUpdate       Action = "community.update"
	ActionCommunityDelete       Action = "community.delete"
	ActionCommunityInviteCreate Action = "community.invite.create"
	ActionCommunityInviteRevoke Action = "community.invite.revoke"
	ActionMemberKick            Action = "member.kick"
	ActionMemberBan             Action = "member.ban"
	ActionMemberTimeout         Action = "member.timeout"
	ActionMemberRoleAssign      Action = "member.role.assign"
)

// Instance actions.
const (
	ActionCommunityCreate       Action = "community.create"
	ActionInstanceSettingsEdit  Action = "instance.settings.update"
	ActionUserView              Action = "user.view"
	ActionUserSuspend           Action = "user.suspend"
	ActionUserDelete            Action = "user.delete"
	ActionInstanceInviteCreate  Action = "instance.invite.create"
	ActionInstanceInviteRevoke  Action = "instance.invite.revoke"
	ActionInstanceRoleManage    Action = "instance.role.manage"
)

var knownActions = func() map[Action]struct{} {
	all := []Action{
		ActionMessageCreate, ActionMessageRead, ActionMessageUpdate, ActionMessageDelete, ActionMessagePin,
		ActionChannelRead, ActionChannelCreate, ActionChannelUpdate, ActionChannelDelete,
		ActionVoiceConnect, ActionVoiceSpeak, ActionVoiceMute,
		ActionCommunityUpdate, ActionCommunityDelete, ActionCommunityInviteCreate, ActionCommunityInviteRevoke,
		ActionMemberKick, ActionMemberBan, ActionMemberTimeout, ActionMemberRoleAssign,
		ActionCommunityCreate, ActionInstanceSettingsEdit,
		ActionUserView, ActionUserSuspend, ActionUserDelete,
		ActionInstanceInviteCreate, ActionInstanceInviteRevoke, ActionInstanceRoleManage,
	}
	set := make(map[Action]struct{}, len(all))
	for _, a := range all {
		set[a] = struct{}{}
	}
	return set
}()

// KnownAction reports whether the action belongs to the catalog.
func KnownAction(a Action) bool {
	_, ok := knownActions[a]
	return ok
}

// ValidateActions checks a proposed action set against the catalog. It rejects
// empty sets and reports every unknown entry, so the caller sees the full
// problem at once.
func ValidateActions(actions []Action) error {
	if len(actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", shared.ErrValidation)
	}
	var unknown []string
	for _, a := range actions {
		if !KnownAction(a) {
			unknown = append(unknown, string(a))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown actions: %s", shared.ErrValidation, strings.Join(unknown, ", "))
	}
	return nil
}

// ActionSet is a membership view over a list of actions.
type ActionSet map[Action]struct{}

// NewActionSet builds a set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	set := make(ActionSet, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Add inserts actions into the set.
func (s ActionSet) Add(actions ...Action) {
	for _, a := range actions {
		s[a] = struct{}{}
	}
}

// ContainsAll reports whether every required action is present. An empty
// required list is trivially satisfied.
func (s ActionSet) ContainsAll(required []Action) bool {
	for _, a := range required {
		if _, ok := s[a]; !ok {
			return false
		}
	}
	return true
}
