package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
)

func TestActivityService_CreateAndList(t *testing.T) {
	env, auth := setupDealEnv(t)
	deal := env.createDeal(t, auth, "Deal", models.StageQualified)

	_, err := env.activities.CreateActivity(auth, CreateActivityInput{DealID: deal.ID, ActivityType: "stage_change", Content: "sneaky"})
	assert.ErrorIs(t, err, ErrInvalidActivityType)
	_, err = env.activities.CreateActivity(auth, CreateActivityInput{DealID: deal.ID, ActivityType: "note", Content: "   "})
	assert.ErrorIs(t, err, ErrActivityContentEmpty)
	_, err = env.activities.CreateActivity(auth, CreateActivityInput{DealID: 999, ActivityType: "note", Content: "hi"})
	assert.ErrorIs(t, err, ErrDealNotFound)

	call, err := env.activities.CreateActivity(auth, CreateActivityInput{DealID: deal.ID, ActivityType: "Call", Content: "Intro call"})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCall, call.ActivityType)

	activities, err := env.activities.ListActivities(auth, deal.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "Intro call", activities[0].Content)
}

func TestActivityService_AuthorOrManager(t *testing.T) {
	env, auth := setupDealEnv(t)
	deal := env.createDeal(t, auth, "Deal", models.StageQualified)
	note, err := env.activities.CreateActivity(auth, CreateActivityInput{DealID: deal.ID, ActivityType: "note", Content: "Draft"})
	require.NoError(t, err)

	colleague := env.createUser(t, "colleague")
	colleagueAuth := &authz.AuthContext{OrganizationID: auth.OrganizationID, UserID: colleague.ID, Role: models.RoleMember}
	_, err = env.activities.UpdateActivity(colleagueAuth, note.ID, UpdateActivityInput{Content: ptr("Edited")})
	assert.ErrorIs(t, err, ErrActivityNotAuthor)

	updated, err := env.activities.UpdateActivity(auth, note.ID, UpdateActivityInput{Content: ptr("Final"), ActivityType: ptr("meeting")})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Content)
	assert.Equal(t, models.ActivityMeeting, updated.ActivityType)

	adminAuth := &authz.AuthContext{OrganizationID: auth.OrganizationID, UserID: colleague.ID, Role: models.RoleAdmin}
	require.NoError(t, env.activities.DeleteActivity(adminAuth, note.ID))
	assert.ErrorIs(t, env.activities.DeleteActivity(adminAuth, note.ID), ErrActivityNotFound)
}

func TestActivityService_StageChangesAreImmutable(t *testing.T) {
	env, auth := setupDealEnv(t)
	deal := env.createDeal(t, auth, "Deal", models.StageQualified)

	_, _, err := env.deals.UpdateDealStage(auth, deal.ID, "proposal", pipeline.TransitionPayload{})
	require.NoError(t, err)

	activities, err := env.activities.ListActivities(auth, deal.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	ownerAuth := &authz.AuthContext{OrganizationID: auth.OrganizationID, UserID: auth.UserID, Role: models.RoleOwner}
	_, err = env.activities.UpdateActivity(ownerAuth, activities[0].ID, UpdateActivityInput{Content: ptr("rewrite history")})
	assert.ErrorIs(t, err, ErrStageChangeImmutable)
	assert.ErrorIs(t, env.activities.DeleteActivity(ownerAuth, activities[0].ID), ErrStageChangeImmutable)
	assert.Equal(t, int64(1), env.countActivities(t, deal.ID))
}
