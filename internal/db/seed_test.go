package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/db"
	"github.com/oggyb/vivah/internal/testutil"
)

func TestSeedTestData(t *testing.T) {
	database := testutil.NewDB(t)
	logger := testutil.DiscardLogger()

	require.NoError(t, db.SeedTestData(database, logger))
	// reseeding starts from scratch
	require.NoError(t, db.SeedTestData(database, logger))

	var users int64
	require.NoError(t, database.Model(&db.User{}).Count(&users).Error)
	assert.Equal(t, int64(21), users)

	var interests []db.Interest
	require.NoError(t, database.Find(&interests).Error)
	assert.NotEmpty(t, interests)

	genders := map[string]string{}
	var all []db.User
	require.NoError(t, database.Find(&all).Error)
	for _, u := range all {
		genders[u.ID] = u.Gender
	}
	accepted := map[[2]string]bool{}
	for _, in := range interests {
		assert.NotEqual(t, in.SenderID, in.ReceiverID)
		assert.NotEqual(t, genders[in.SenderID], genders[in.ReceiverID])
		if in.Status == db.InterestAccepted {
			accepted[[2]string{in.SenderID, in.ReceiverID}] = true
		}
	}

	// messages only flow between accepted pairs
	var messages []db.Message
	require.NoError(t, database.Find(&messages).Error)
	for _, m := range messages {
		assert.True(t, accepted[[2]string{m.SenderID, m.ReceiverID}] || accepted[[2]string{m.ReceiverID, m.SenderID}])
	}
}
