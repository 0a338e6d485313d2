package shortlist_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/service/shortlist"
	"github.com/oggyb/vivah/internal/testutil"
)

func TestShortlistLifecycle(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	testutil.NewUser(t, appCtx.DB, "u2", testutil.WithGender(db.GenderFemale))
	svc := shortlist.NewShortlistService(appCtx)

	entry, err := svc.AddShortlist(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", entry.Profile.ID)
	assert.Equal(t, "User u2", entry.Profile.Name)

	_, err = svc.AddShortlist(ctx, "u1", "u2")
	assert.True(t, svcErr.IsKind(err, svcErr.KindConflict))

	ok, err := svc.IsShortlisted(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, ok)

	// one-way
	ok, err = svc.IsShortlisted(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := svc.ListShortlist(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entry.ID, list[0].ID)

	removed, err := svc.RemoveShortlist(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, removed.ID)
	assert.Equal(t, "User u2", removed.Profile.Name)

	ok, err = svc.IsShortlisted(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.RemoveShortlist(ctx, "u1", "u2")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
	assert.Equal(t, "not in shortlist", svcErr.PublicMessage(err))

	list, err = svc.ListShortlist(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddShortlist_Rejects(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	testutil.NewUser(t, appCtx.DB, "gone", testutil.Inactive())
	svc := shortlist.NewShortlistService(appCtx)

	_, err := svc.AddShortlist(ctx, "u1", "u1")
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	_, err = svc.AddShortlist(ctx, "u1", "missing")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	_, err = svc.AddShortlist(ctx, "u1", "gone")
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}

func TestListShortlist_HidesDeactivatedTargets(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	testutil.NewUser(t, appCtx.DB, "u2")
	testutil.NewUser(t, appCtx.DB, "u3")
	svc := shortlist.NewShortlistService(appCtx)

	_, err := svc.AddShortlist(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = svc.AddShortlist(ctx, "u1", "u3")
	require.NoError(t, err)

	require.NoError(t, appCtx.DB.Model(&db.User{}).Where("id = ?", "u2").Update("is_active", false).Error)

	list, err := svc.ListShortlist(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u3", list[0].Profile.ID)
}
