package flipdata

import (
	"encoding/json"
	"testing"
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersAdd(t *testing.T) {
	f := newFixture(t)

	u, err := f.repos.Users.Add(f.ctx, schema.Data{"name": "  Ada Lovelace ", "username": "ada", "password": testPassword})
	requireFail(t, err, fail.Invalid, "Username must contain at least 4 characters.")
	assert.Nil(t, u)

	u, err = f.repos.Users.Add(f.ctx, schema.Data{"name": "  Ada Lovelace ", "username": "ada_l", "password": testPassword})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)
	assert.Equal(t, "ada_l", u.Username)
	assert.Empty(t, u.Password)
	assert.Equal(t, f.now, u.Timestamps.Created)
	assert.Nil(t, u.Timestamps.Signed)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "password")

	stored, err := f.store.FindUsers(f.ctx, storeUserQuery(u.ID))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEqual(t, testPassword, stored[0].Password)
	assert.Contains(t, stored[0].Password, "argon2id$")

	_, err = f.repos.Users.Add(f.ctx, schema.Data{"name": "Someone Else", "username": "ada_l", "password": "0therPass"})
	requireFail(t, err, fail.Conflict, "User already exists.")

	_, err = f.repos.Users.Add(f.ctx, schema.Data{"name": "Same Same", "username": "Passw0rd", "password": "Passw0rd"})
	requireFail(t, err, fail.Invalid, "Password and email must be different.")

	_, err = f.repos.Users.Add(f.ctx, schema.Data{"name": "   ", "username": "blank", "password": testPassword})
	requireFail(t, err, fail.Invalid, "Missing required post-filter property: name.")

	_, err = f.repos.Users.Add(f.ctx, schema.Data{"name": "No Password", "username": "nopass"})
	requireFail(t, err, fail.Invalid, "Missing required property: password.")
}

func TestUsersValidateCredentials(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.repos.Users.ValidateCredentials("Grace", "grace", testPassword))
	err := f.repos.Users.ValidateCredentials("Grace", "grace", "password")
	requireFail(t, err, fail.Invalid, "Password must contain at least one (1) Arabic numeral (0-9).")
}

func TestUsersGet(t *testing.T) {
	f := newFixture(t)
	u := f.user("grace")

	byID, err := f.repos.Users.Get(f.ctx, schema.Data{"id": u.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, u.ID, byID.ID)

	byUsername, err := f.repos.Users.Get(f.ctx, schema.Data{"username": "grace"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, byUsername.ID)

	signedIn, err := f.repos.Users.Get(f.ctx, schema.Data{"username": "grace", "password": testPassword})
	require.NoError(t, err)
	assert.Equal(t, u.ID, signedIn.ID)
	assert.Empty(t, signedIn.Password)

	_, err = f.repos.Users.Get(f.ctx, schema.Data{"username": "grace", "password": "Wr0ngPass"})
	requireFail(t, err, fail.BadCredentials, "Invalid credentials.")

	_, err = f.repos.Users.Get(f.ctx, schema.Data{"username": "nobody", "password": testPassword})
	requireFail(t, err, fail.BadCredentials, "Invalid credentials.")

	_, err = f.repos.Users.Get(f.ctx, schema.Data{"id": uuid.New()})
	requireFail(t, err, fail.NotFound, "User not found.")

	_, err = f.repos.Users.Get(f.ctx, schema.Data{"id": "not-an-id"})
	requireFail(t, err, fail.Invalid, "Invalid identifier for property: id.")

	_, err = f.repos.Users.Get(f.ctx, schema.Data{})
	requireFail(t, err, fail.Invalid, "Invalid parameters.")

	projected, err := f.repos.Users.Get(f.ctx, schema.Data{"id": u.ID, "projection": map[string]any{"timestamps": false}})
	require.NoError(t, err)
	b, err := json.Marshal(projected)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "timestamps")

	_, err = f.repos.Users.Get(f.ctx, schema.Data{"id": u.ID, "projection": map[string]any{"timestamps": true}})
	requireFail(t, err, fail.Invalid, "Invalid projection value.")
}

func TestUsersExists(t *testing.T) {
	f := newFixture(t)
	u := f.user("grace")

	exists, err := f.repos.Users.Exists(f.ctx, schema.Data{"id": u.ID})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.repos.Users.Exists(f.ctx, schema.Data{"username": "hopper"})
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.repos.Users.Exists(f.ctx, schema.Data{})
	requireFail(t, err, fail.Invalid, "Invalid parameters.")
}

func TestUsersSignAndActive(t *testing.T) {
	f := newFixture(t)
	u := f.user("grace")

	first := f.now
	signed, err := f.repos.Users.Sign(f.ctx, schema.Data{"id": u.ID})
	require.NoError(t, err)
	assert.Nil(t, signed.Timestamps.LastSigned)
	require.NotNil(t, signed.Timestamps.Signed)
	assert.Equal(t, first, *signed.Timestamps.Signed)
	assert.Equal(t, first, *signed.Timestamps.Active)

	f.advance(time.Hour)
	active, err := f.repos.Users.Active(f.ctx, schema.Data{"id": u.ID})
	require.NoError(t, err)
	assert.Equal(t, first, *active.Timestamps.Signed)
	assert.Equal(t, f.now, *active.Timestamps.Active)

	f.advance(time.Hour)
	signed, err = f.repos.Users.Sign(f.ctx, schema.Data{"id": u.ID})
	require.NoError(t, err)
	require.NotNil(t, signed.Timestamps.LastSigned)
	assert.Equal(t, first, *signed.Timestamps.LastSigned)
	assert.Equal(t, f.now, *signed.Timestamps.Signed)

	_, err = f.repos.Users.Sign(f.ctx, schema.Data{"id": uuid.New()})
	requireFail(t, err, fail.NotFound, "User not found.")

	_, err = f.repos.Users.Active(f.ctx, schema.Data{})
	requireFail(t, err, fail.Invalid, "Missing required property: id.")
}

func TestUsersList(t *testing.T) {
	f := newFixture(t)
	for _, username := range []string{"mallory", "alice", "bob_b"} {
		f.user(username)
	}

	users, total, err := f.repos.Users.List(f.ctx, schema.Data{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob_b", users[1].Username)
	assert.Equal(t, "mallory", users[2].Username)
	for _, u := range users {
		assert.Empty(t, u.Password)
	}

	users, total, err = f.repos.Users.List(f.ctx, schema.Data{"sort": "-username", "offset": 1, "limit": "1"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob_b", users[0].Username)

	users, total, err = f.repos.Users.List(f.ctx, schema.Data{"search": "ALI"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	users, _, err = f.repos.Users.List(f.ctx, schema.Data{"search": "b.b"})
	require.NoError(t, err)
	assert.Empty(t, users, "search terms are literal")

	_, _, err = f.repos.Users.List(f.ctx, schema.Data{"sort": "password"})
	requireFail(t, err, fail.Invalid, "Cannot sort by property: password.")
}
