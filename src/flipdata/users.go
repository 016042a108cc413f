package flipdata

import (
	"context"
	"errors"
	"time"

	"git.flipper.school/flipper/flipper/src/auth"
	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/store"
	"github.com/google/uuid"
)

type Users struct {
	*deps
	policy *auth.Policy
}

var (
	userListSchema = schema.Schema{
		{Key: "search", Type: schema.String, Filter: schema.CaseInsensitiveRegex},
	}.With(schema.Paging(store.UserSortKeys, models.UserProjectable...)...)

	userKeySchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference},
		{Key: "username", Type: schema.String, Filter: schema.Trim},
	}

	userGetSchema = userKeySchema.With(
		schema.Field{Key: "password", Type: schema.String},
		schema.Field{Key: "projection", Type: schema.Object, Filter: schema.ProjectionMask, Fields: schema.Exclude(models.UserProjectable...)},
	)

	userAddSchema = schema.Schema{
		{Key: "name", Type: schema.String, Filter: schema.Trim, Required: true},
		{Key: "username", Type: schema.String, Filter: schema.Trim, Required: true},
		{Key: "password", Type: schema.String, Filter: schema.Trim, Required: true},
	}

	userIDSchema = schema.Schema{
		{Key: "id", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}
)

var errInvalidCredentials = fail.New(fail.BadCredentials, "Invalid credentials.")

// List returns one page of users sorted by username, and the total number of
// users matching the search.
func (r *Users) List(ctx context.Context, data schema.Data) (users []*models.User, total int, err error) {
	defer observe("user", "list", &err)

	in, err := schema.Validate(data, userListSchema)
	if err != nil {
		return nil, 0, err
	}

	q := store.UserQuery{
		NameMatch: in.Regexp("search"),
		Sort:      in.Sort("sort", schema.Asc("username")),
		Page:      store.Page{Offset: in.Int("offset"), Limit: in.Int("limit")},
	}
	total, err = r.store.CountUsers(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to count users")
	}
	users, err = r.store.FindUsers(ctx, q)
	if err != nil {
		return nil, 0, oops.New(err, "failed to fetch users")
	}

	p := in.Projection("projection")
	for i, u := range users {
		users[i] = u.Public()
		users[i].Project(p)
	}
	return users, total, nil
}

// Exists looks a user up by id or, failing that, by username.
func (r *Users) Exists(ctx context.Context, data schema.Data) (exists bool, err error) {
	defer observe("user", "exists", &err)

	in, err := schema.Validate(data, userKeySchema)
	if err != nil {
		return false, err
	}

	var q store.UserQuery
	switch {
	case in.Has("id"):
		q.IDs = []uuid.UUID{in.ID("id")}
	case in.Has("username"):
		q.Usernames = []string{in.String("username")}
	default:
		return false, fail.Invalidf("Invalid parameters.")
	}

	n, err := r.store.CountUsers(ctx, q)
	if err != nil {
		return false, oops.New(err, "failed to count users")
	}
	return n > 0, nil
}

/*
Get finds a user by id, by username, or by username and password. With a
password, an unknown username and a wrong password both fail with the same
credential error.
*/
func (r *Users) Get(ctx context.Context, data schema.Data) (user *models.User, err error) {
	defer observe("user", "get", &err)

	in, err := schema.Validate(data, userGetSchema)
	if err != nil {
		return nil, err
	}

	var q store.UserQuery
	checkPassword := false
	switch {
	case in.Has("id"):
		q.IDs = []uuid.UUID{in.ID("id")}
	case in.Has("username"):
		q.Usernames = []string{in.String("username")}
		checkPassword = in.Has("password")
	default:
		return nil, fail.Invalidf("Invalid parameters.")
	}

	user, err = store.FindOne(r.store.FindUsers(ctx, q))
	if checkPassword && isNotFound(err) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, orNotFound(err, "User not found.")
	}

	if checkPassword {
		ok, err := auth.CheckPasswordString(in.String("password"), user.Password)
		if err != nil {
			return nil, oops.New(err, "failed to check password")
		}
		if !ok {
			return nil, errInvalidCredentials
		}
	}

	user = user.Public()
	user.Project(in.Projection("projection"))
	return user, nil
}

func (r *Users) getByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.Get(ctx, schema.Data{"id": id})
}

// ValidateCredentials checks registration input against the policy.
func (r *Users) ValidateCredentials(name, username, password string) error {
	return r.policy.Check(name, username, password)
}

// Add registers a user. Usernames are unique.
func (r *Users) Add(ctx context.Context, data schema.Data) (user *models.User, err error) {
	defer observe("user", "add", &err)

	in, err := schema.Validate(data, userAddSchema)
	if err != nil {
		return nil, err
	}
	name, username, password := in.String("name"), in.String("username"), in.String("password")

	if err := r.ValidateCredentials(name, username, password); err != nil {
		return nil, err
	}

	exists, err := r.Exists(ctx, schema.Data{"username": username})
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fail.Conflictf("User already exists.")
	}

	u := &models.User{
		ID:       uuid.New(),
		Name:     name,
		Username: username,
		Password: auth.HashPassword(password).String(),
		Timestamps: models.UserTimestamps{
			Created: r.now(),
		},
	}
	if err := r.store.InsertUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fail.Conflictf("User already exists.")
		}
		return nil, oops.New(err, "failed to insert user")
	}

	return r.getByID(ctx, u.ID)
}

// Sign records a successful login: the previous sign-in moves to
// last_signed, and signed and active become now.
func (r *Users) Sign(ctx context.Context, data schema.Data) (user *models.User, err error) {
	defer observe("user", "sign", &err)
	return r.stamp(ctx, data, r.store.SetUserSigned)
}

// Active marks the user as active now.
func (r *Users) Active(ctx context.Context, data schema.Data) (user *models.User, err error) {
	defer observe("user", "active", &err)
	return r.stamp(ctx, data, r.store.TouchUser)
}

func (r *Users) stamp(
	ctx context.Context,
	data schema.Data,
	update func(ctx context.Context, id uuid.UUID, now time.Time) (bool, error),
) (*models.User, error) {
	in, err := schema.Validate(data, userIDSchema)
	if err != nil {
		return nil, err
	}
	id := in.ID("id")

	if _, err := r.getByID(ctx, id); err != nil {
		return nil, err
	}
	updated, err := update(ctx, id, r.now())
	if err != nil {
		return nil, oops.New(err, "failed to update user timestamps")
	}
	if !updated {
		return nil, fail.NotFoundf("User not found.")
	}
	return r.getByID(ctx, id)
}
