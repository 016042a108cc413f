package flipdata

import (
	"context"
	"crypto/subtle"
	"time"

	"git.flipper.school/flipper/flipper/src/auth"
	"git.flipper.school/flipper/flipper/src/config"
	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/jobs"
	"git.flipper.school/flipper/flipper/src/logging"
	"git.flipper.school/flipper/flipper/src/metrics"
	"git.flipper.school/flipper/flipper/src/models"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
	"git.flipper.school/flipper/flipper/src/utils"
)

type Sessions struct {
	*deps
	cfg config.SessionConfig
}

var (
	sessionIDSchema = schema.Schema{
		{Key: "id", Type: schema.String, Required: true},
	}

	sessionAddSchema = schema.Schema{
		{Key: "value", Type: schema.Any, Filter: schema.IDReference, Required: true},
	}

	sessionVerifySchema = schema.Schema{
		{Key: "id", Type: schema.String, Required: true},
		{Key: "token", Type: schema.String, Required: true},
	}
)

// Get returns a live session. Expired sessions are treated as missing.
func (r *Sessions) Get(ctx context.Context, data schema.Data) (session *models.Session, err error) {
	defer observe("session", "get", &err)

	in, err := schema.Validate(data, sessionIDSchema)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, in.String("id"))
}

func (r *Sessions) get(ctx context.Context, id string) (*models.Session, error) {
	session, err := r.store.FindSession(ctx, id)
	if err != nil {
		return nil, orNotFound(err, "Session not found.")
	}
	if session.IsExpired(r.now()) {
		return nil, fail.NotFoundf("Session not found.")
	}
	return session, nil
}

// Add opens a session for the user in value, with a fresh id and token.
func (r *Sessions) Add(ctx context.Context, data schema.Data) (session *models.Session, err error) {
	defer observe("session", "add", &err)

	in, err := schema.Validate(data, sessionAddSchema)
	if err != nil {
		return nil, err
	}
	userID := in.ID("value")

	if _, err := r.repos.Users.getByID(ctx, userID); err != nil {
		return nil, err
	}

	now := r.now()
	s := &models.Session{
		ID:      auth.NewSecret(),
		Value:   userID,
		Token:   auth.NewSecret(),
		Created: now,
	}
	if r.cfg.Lifetime > 0 {
		expires := now.Add(r.cfg.Lifetime)
		s.Expires = &expires
	}
	if err := r.store.InsertSession(ctx, s); err != nil {
		return nil, oops.New(err, "failed to insert session")
	}

	return r.get(ctx, s.ID)
}

// Remove ends a session and returns it as it was.
func (r *Sessions) Remove(ctx context.Context, data schema.Data) (session *models.Session, err error) {
	defer observe("session", "remove", &err)

	in, err := schema.Validate(data, sessionIDSchema)
	if err != nil {
		return nil, err
	}

	session, err = r.get(ctx, in.String("id"))
	if err != nil {
		return nil, err
	}
	if _, err := r.store.DeleteSession(ctx, session.ID); err != nil {
		return nil, oops.New(err, "failed to delete session")
	}
	return session, nil
}

// VerifyToken checks the write token of a session.
func (r *Sessions) VerifyToken(ctx context.Context, data schema.Data) (session *models.Session, err error) {
	defer observe("session", "verify_token", &err)

	in, err := schema.Validate(data, sessionVerifySchema)
	if err != nil {
		return nil, err
	}

	session, err = r.get(ctx, in.String("id"))
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(session.Token), []byte(in.String("token"))) != 1 {
		return nil, fail.Forbiddenf("Invalid session token.")
	}
	return session, nil
}

func (r *Sessions) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteExpiredSessions(ctx, r.now())
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}
	metrics.ExpiredSessionsDeleted.Add(float64(n))
	return n, nil
}

// PeriodicallyDeleteExpired purges expired sessions in the background. With
// no session lifetime configured nothing ever expires, and the job is a no-op.
func (r *Sessions) PeriodicallyDeleteExpired() *jobs.Job {
	if r.cfg.Lifetime <= 0 {
		return jobs.Noop()
	}

	return jobs.Periodic("delete expired sessions", utils.OrDefault(r.cfg.CleanupInterval, time.Hour), func(ctx context.Context) error {
		n, err := r.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logging.ExtractLogger(ctx).Info().Int64("num_deleted", n).Msg("deleted expired sessions")
		}
		return nil
	})
}
