package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborchat/harbor/internal/authz"
)

func TestCommunityTemplatesFormTieredHierarchy(t *testing.T) {
	templates := CommunityTemplates()
	require.Len(t, templates, 3)

	byName := make(map[string][]authz.Action, len(templates))
	for _, tmpl := range templates {
		byName[tmpl.Name] = tmpl.Actions
	}
	require.Contains(t, byName, NameMember)
	require.Contains(t, byName, NameModerator)
	require.Contains(t, byName, NameAdmin)

	moderator := authz.NewActionSet(byName[NameModerator]...)
	admin := authz.NewActionSet(byName[NameAdmin]...)
	assert.True(t, moderator.ContainsAll(byName[NameMember]), "Moderator must include every Member action")
	assert.True(t, admin.ContainsAll(byName[NameModerator]), "Admin must include every Moderator action")

	// Each tier adds something over the previous one.
	assert.Greater(t, len(byName[NameModerator]), len(byName[NameMember]))
	assert.Greater(t, len(byName[NameAdmin]), len(byName[NameModerator]))
}

func TestInstanceTemplates(t *testing.T) {
	templates := InstanceTemplates()
	require.Len(t, templates, 4)

	names := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		names = append(names, tmpl.Name)
	}
	assert.ElementsMatch(t, []string{NameInstanceAdmin, NameCommunityCreator, NameUserManager, NameInviteManager}, names)
}

func TestTemplateActionsAreKnown(t *testing.T) {
	all := append(append([]Template{}, CommunityTemplates()...), InstanceTemplates()...)
	for _, tmpl := range all {
		require.NotEmpty(t, tmpl.Actions, tmpl.Name)
		assert.NoError(t, authz.ValidateActions(tmpl.Actions), tmpl.Name)
	}
}
