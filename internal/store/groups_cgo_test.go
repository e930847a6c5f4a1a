//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndGetGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "production", "customer-facing fleet", "#ff0000")
	require.NoError(t, err)
	require.NotEmpty(t, group.ID)

	byName, err := s.GetGroup(ctx, "production")
	require.NoError(t, err)
	require.Equal(t, group.ID, byName.ID)

	byID, err := s.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, "production", byID.Name)

	missing, err := s.GetGroup(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCreateGroupRejectsDuplicateName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateGroup(ctx, "production", "", "")
	require.NoError(t, err)

	_, err = s.CreateGroup(ctx, "production", "", "")
	ge, ok := AsGroupError(err)
	require.True(t, ok)
	require.Equal(t, CodeDuplicateName, ge.Code)
}

func TestAddServersToGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "production", "", "")
	require.NoError(t, err)

	updated, err := s.AddServersToGroup(ctx, group.ID, "srv-1", "srv-2")
	require.NoError(t, err)
	require.Equal(t, []string{"srv-1", "srv-2"}, updated.ServerIDs)

	// adding an existing member again is a no-op
	updated, err = s.AddServersToGroup(ctx, group.ID, "srv-1")
	require.NoError(t, err)
	require.Equal(t, []string{"srv-1", "srv-2"}, updated.ServerIDs)
}

func TestServerBelongsToOneGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.CreateGroup(ctx, "production", "", "")
	require.NoError(t, err)
	second, err := s.CreateGroup(ctx, "staging", "", "")
	require.NoError(t, err)

	_, err = s.AddServersToGroup(ctx, first.ID, "srv-1")
	require.NoError(t, err)

	_, err = s.AddServersToGroup(ctx, second.ID, "srv-1")
	ge, ok := AsGroupError(err)
	require.True(t, ok)
	require.Equal(t, CodeServerAlreadyGrouped, ge.Code)

	// the failed call must not have written anything
	fetched, err := s.GetGroup(ctx, second.ID)
	require.NoError(t, err)
	require.Empty(t, fetched.ServerIDs)
}

func TestOperationsOnMissingGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddServersToGroup(ctx, "missing", "srv-1")
	ge, ok := AsGroupError(err)
	require.True(t, ok)
	require.Equal(t, CodeInvalidGroup, ge.Code)

	err = s.DeleteGroup(ctx, "missing")
	ge, ok = AsGroupError(err)
	require.True(t, ok)
	require.Equal(t, CodeInvalidGroup, ge.Code)
}

func TestRemoveServersFromGroup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "production", "", "")
	require.NoError(t, err)

	_, err = s.AddServersToGroup(ctx, group.ID, "srv-1", "srv-2")
	require.NoError(t, err)

	updated, err := s.RemoveServersFromGroup(ctx, group.ID, "srv-1", "srv-unknown")
	require.NoError(t, err)
	require.Equal(t, []string{"srv-2"}, updated.ServerIDs)
}

func TestDeleteGroupReleasesServers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "production", "", "")
	require.NoError(t, err)
	_, err = s.AddServersToGroup(ctx, group.ID, "srv-1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteGroup(ctx, group.ID))

	owner, err := s.GroupForServer(ctx, "srv-1")
	require.NoError(t, err)
	require.Nil(t, owner)
}

func TestGroupForServer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "production", "", "")
	require.NoError(t, err)
	_, err = s.AddServersToGroup(ctx, group.ID, "srv-1")
	require.NoError(t, err)

	owner, err := s.GroupForServer(ctx, "srv-1")
	require.NoError(t, err)
	require.NotNil(t, owner)
	require.Equal(t, group.ID, owner.ID)
}

func TestUpdateGroupKeepsUnsetFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, "production", "original", "#ff0000")
	require.NoError(t, err)

	updated, err := s.UpdateGroup(ctx, group.ID, "", "renovated", "")
	require.NoError(t, err)
	require.Equal(t, "production", updated.Name)
	require.Equal(t, "renovated", updated.Description)
	require.Equal(t, "#ff0000", updated.Color)
}

func TestListGroupsIncludesMembers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.CreateGroup(ctx, "alpha", "", "")
	require.NoError(t, err)
	_, err = s.CreateGroup(ctx, "beta", "", "")
	require.NoError(t, err)
	_, err = s.AddServersToGroup(ctx, first.ID, "srv-1")
	require.NoError(t, err)

	groups, err := s.ListGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "alpha", groups[0].Name)
	require.Equal(t, []string{"srv-1"}, groups[0].ServerIDs)
	require.Empty(t, groups[1].ServerIDs)
}
