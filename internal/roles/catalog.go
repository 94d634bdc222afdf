package roles

import "github.com/harborchat/harbor/internal/authz"

// Default role names. Names are stored identity: renaming a default role is
// rejected so these literals stay valid lookup keys.
const (
	NameMember    = "Member"
	NameModerator = "Moderator"
	NameAdmin     = "Admin"

	NameInstanceAdmin    = "Instance Admin"
	NameCommunityCreator = "Community Creator"
	NameUserManager      = "User Manager"
	NameInviteManager    = "Invite Manager"
)

// Template is an immutable default-role definition consulted at role-creation
// time and never mutated.
type Template struct {
	Name    string
	Actions []authz.Action
}

var memberActions = []authz.Action{
	authz.ActionChannelRead,
	authz.ActionMessageRead,
	authz.ActionMessageCreate,
	authz.ActionMessageUpdate,
	authz.ActionVoiceConnect,
	authz.ActionVoiceSpeak,
}

var moderatorActions = append(append([]authz.Action{}, memberActions...),
	authz.ActionMessageDelete,
	authz.ActionMessagePin,
	authz.ActionMemberKick,
	authz.ActionMemberTimeout,
	authz.ActionVoiceMute,
	authz.ActionCommunityInviteCreate,
)

var adminActions = append(append([]authz.Action{}, moderatorActions...),
	authz.ActionChannelCreate,
	authz.ActionChannelUpdate,
	authz.ActionChannelDelete,
	authz.ActionCommunityUpdate,
	authz.ActionCommunityDelete,
	authz.ActionCommunityInviteRevoke,
	authz.ActionMemberBan,
	authz.ActionMemberRoleAssign,
)

// communityTemplates are the tiers created for every new community. The action
// sets form a chain: Member ⊂ Moderator ⊂ Admin.
var communityTemplates = []Template{
	{Name: NameAdmin, Actions: adminActions},
	{Name: NameModerator, Actions: moderatorActions},
	{Name: NameMember, Actions: memberActions},
}

// instanceTemplates are the instance-wide defaults, created once at startup.
var instanceTemplates = []Template{
	{Name: NameInstanceAdmin, Actions: []authz.Action{
		authz.ActionInstanceSettingsEdit,
		authz.ActionInstanceRoleManage,
		authz.ActionCommunityCreate,
		authz.ActionUserView,
		authz.ActionUserSuspend,
		authz.ActionUserDelete,
		authz.ActionInstanceInviteCreate,
		authz.ActionInstanceInviteRevoke,
	}},
	{Name: NameCommunityCreator, Actions: []authz.Action{
		authz.ActionCommunityCreate,
	}},
	{Name: NameUserManager, Actions: []authz.Action{
		authz.ActionUserView,
		authz.ActionUserSuspend,
		authz.ActionUserDelete,
	}},
	{Name: NameInviteManager, Actions: []authz.Action{
		authz.ActionInstanceInviteCreate,
		authz.ActionInstanceInviteRevoke,
	}},
}

// CommunityTemplates returns the default templates for a new community,
// Admin tier first. Callers must treat the result as read-only.
func CommunityTemplates() []Template {
	return communityTemplates
}

// InstanceTemplates returns the default instance-wide templates. Callers must
// treat the result as read-only.
func InstanceTemplates() []Template {
	return instanceTemplates
}
