package profile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/db"
	svcErr "github.com/oggyb/vivah/internal/errors"
	"github.com/oggyb/vivah/internal/service/profile"
	"github.com/oggyb/vivah/internal/testutil"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n0000IHDR")

type memStorage struct {
	mu      sync.Mutex
	n       int
	objects map[string][]byte
	deleted []string
	failUp  bool
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Upload(_ context.Context, ownerID, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUp {
		return "", errors.New("bucket unavailable")
	}
	m.n++
	ref := fmt.Sprintf("https://cdn.test/%s/%d.png", ownerID, m.n)
	m.objects[ref] = data
	return ref, nil
}

func (m *memStorage) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	m.deleted = append(m.deleted, ref)
	return nil
}

func str(s string) *string { return &s }

func TestPhotoCap(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u4")
	store := newMemStorage()
	svc := profile.NewProfileService(appCtx, store)

	var first string
	for i := 0; i < profile.MaxPhotos; i++ {
		p, err := svc.AddPhoto(ctx, "u4", "photo.png", pngHeader)
		require.NoError(t, err)
		if i == 0 {
			first = p.Photos[0]
			assert.Equal(t, first, p.ProfilePicture, "first photo becomes the profile picture")
		}
	}

	_, err := svc.AddPhoto(ctx, "u4", "sixth.png", pngHeader)
	require.Error(t, err)
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	own, err := svc.GetOwnProfile(ctx, "u4")
	require.NoError(t, err)
	assert.Len(t, own.Photos, 5)
	assert.Len(t, store.objects, 5, "rejected upload leaves no binary behind")
}

func TestAddPhoto_RejectsNonImagesAndUploadFailures(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	store := newMemStorage()
	svc := profile.NewProfileService(appCtx, store)

	_, err := svc.AddPhoto(ctx, "u1", "notes.txt", []byte("plain text, not an image"))
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	store.failUp = true
	_, err = svc.AddPhoto(ctx, "u1", "photo.png", pngHeader)
	assert.True(t, svcErr.IsKind(err, svcErr.KindInternal))

	own, err := svc.GetOwnProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, own.Photos)
}

func TestAddPhoto_DisabledStorage(t *testing.T) {
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	svc := profile.NewProfileService(appCtx, nil)

	_, err := svc.AddPhoto(context.Background(), "u1", "photo.png", pngHeader)
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
	assert.Equal(t, "photo uploads unavailable", svcErr.PublicMessage(err))
}

func TestRemovePhoto_PromotesNext(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	store := newMemStorage()
	svc := profile.NewProfileService(appCtx, store)

	_, err := svc.AddPhoto(ctx, "u1", "a.png", pngHeader)
	require.NoError(t, err)
	p, err := svc.AddPhoto(ctx, "u1", "b.png", pngHeader)
	require.NoError(t, err)
	first, second := p.Photos[0], p.Photos[1]

	p, err = svc.RemovePhoto(ctx, "u1", first)
	require.NoError(t, err)
	assert.Equal(t, []string{second}, p.Photos)
	assert.Equal(t, second, p.ProfilePicture)
	assert.Contains(t, store.deleted, first)

	_, err = svc.RemovePhoto(ctx, "u1", first)
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))

	p, err = svc.RemovePhoto(ctx, "u1", second)
	require.NoError(t, err)
	assert.Empty(t, p.Photos)
	assert.Empty(t, p.ProfilePicture)
}

func TestUpdateOwnProfile(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "u1")
	svc := profile.NewProfileService(appCtx, newMemStorage())

	p, err := svc.UpdateOwnProfile(ctx, "u1", profile.Patch{
		City:        str("Mumbai"),
		Bio:         str("  loves hiking  "),
		Education:   str("masters"),
		DateOfBirth: str("1990-01-31"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", p.City)
	assert.Equal(t, "loves hiking", p.Bio)
	assert.Equal(t, "masters", p.Education)
	assert.Equal(t, "1990-01-31", p.DateOfBirth)
	assert.Equal(t, "Maharashtra", p.State, "untouched fields are kept")

	_, err = svc.UpdateOwnProfile(ctx, "u1", profile.Patch{Education: str("wizardry")})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	young := time.Now().UTC().AddDate(-17, 0, 0).Format(time.DateOnly)
	_, err = svc.UpdateOwnProfile(ctx, "u1", profile.Patch{DateOfBirth: &young})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	_, err = svc.UpdateOwnProfile(ctx, "u1", profile.Patch{ProfilePicture: str("https://elsewhere/x.png")})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	_, err = svc.UpdateOwnProfile(ctx, "missing", profile.Patch{City: str("Goa")})
	assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound))
}

func TestGetPublicProfile(t *testing.T) {
	ctx := context.Background()
	appCtx, mr := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "viewer")
	testutil.NewUser(t, appCtx.DB, "target", testutil.WithGender(db.GenderFemale))
	testutil.NewUser(t, appCtx.DB, "unverified", testutil.Unverified())
	testutil.NewUser(t, appCtx.DB, "inactive", testutil.Inactive())
	svc := profile.NewProfileService(appCtx, newMemStorage())

	require.NoError(t, appCtx.DB.Create(&db.Shortlist{UserID: "viewer", ShortlistedUserID: "target"}).Error)
	require.NoError(t, mr.Set(appCtx.RedisCache.KeyForPresence("target"), "1"))

	p, err := svc.GetPublicProfile(ctx, "viewer", "target")
	require.NoError(t, err)
	assert.Equal(t, "User target", p.Name)
	assert.True(t, p.IsShortlisted)
	assert.True(t, p.Online)
	assert.Nil(t, p.LastSeenAt)

	// once the member disconnects the profile shows when they were last seen
	require.NoError(t, appCtx.RedisCache.MarkOffline(ctx, "target"))
	p, err = svc.GetPublicProfile(ctx, "viewer", "target")
	require.NoError(t, err)
	assert.False(t, p.Online)
	require.NotNil(t, p.LastSeenAt)
	assert.WithinDuration(t, time.Now(), *p.LastSeenAt, time.Minute)

	// never connected: no presence at all
	p, err = svc.GetPublicProfile(ctx, "target", "viewer")
	require.NoError(t, err)
	assert.False(t, p.Online)
	assert.Nil(t, p.LastSeenAt)

	for _, id := range []string{"unverified", "inactive", "missing"} {
		_, err := svc.GetPublicProfile(ctx, "viewer", id)
		assert.True(t, svcErr.IsKind(err, svcErr.KindNotFound), id)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	testutil.NewUser(t, appCtx.DB, "viewer")
	testutil.NewUser(t, appCtx.DB, "m2")
	for i := 0; i < 3; i++ {
		testutil.NewUser(t, appCtx.DB, fmt.Sprintf("f%d", i), testutil.WithGender(db.GenderFemale))
	}
	testutil.NewUser(t, appCtx.DB, "f-hidden", testutil.WithGender(db.GenderFemale), testutil.Unverified())
	svc := profile.NewProfileService(appCtx, newMemStorage())

	res, err := svc.Search(ctx, "viewer", profile.SearchInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Profiles, 2)
	require.NotNil(t, res.NextCursor)
	for _, c := range res.Profiles {
		assert.Equal(t, db.GenderFemale, c.Gender, "defaults to the opposite gender")
	}

	res2, err := svc.Search(ctx, "viewer", profile.SearchInput{Limit: 2, Cursor: *res.NextCursor})
	require.NoError(t, err)
	require.Len(t, res2.Profiles, 1)
	assert.Nil(t, res2.NextCursor)

	males, err := svc.Search(ctx, "viewer", profile.SearchInput{Gender: db.GenderMale})
	require.NoError(t, err)
	require.Len(t, males.Profiles, 1)
	assert.Equal(t, "m2", males.Profiles[0].ID, "viewer never appears in results")

	_, err = svc.Search(ctx, "viewer", profile.SearchInput{Cursor: "%%%"})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))

	_, err = svc.Search(ctx, "viewer", profile.SearchInput{MinAge: 40, MaxAge: 30})
	assert.True(t, svcErr.IsKind(err, svcErr.KindValidation))
}
