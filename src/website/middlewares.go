package website

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/flipdata"
	"git.flipper.school/flipper/flipper/src/metrics"
	"git.flipper.school/flipper/flipper/src/oops"
	"git.flipper.school/flipper/flipper/src/schema"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(error)
				var err error
				if ok {
					err = oops.New(maybeError, "recovered from panic")
				} else {
					err = oops.New(nil, "Recovered from panic with value: %v", recovered)
				}
				res = c.ErrorResponse(err)
			}
		}()

		return h(c)
	}
}

func withRepositories(repos *flipdata.Repositories) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Repos = repos
			return h(c)
		}
	}
}

func trackRequestMetrics(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		start := time.Now()
		res := h(c)

		status := res.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(c.Route, c.Req.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Route).Observe(time.Since(start).Seconds())
		c.Logger.Debug().
			Str("method", c.Req.Method).
			Str("path", c.Req.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("Served request")
		return res
	}
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return ""
}

/*
loadCurrentUser resolves the bearer session, if any, and marks its user as
active. Unknown or expired sessions leave the request anonymous.
*/
func loadCurrentUser(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		sessionID := bearerToken(c.Req)
		if sessionID == "" {
			return h(c)
		}

		session, err := c.Repos.Sessions.Get(c.Context(), schema.Data{"id": sessionID})
		if fail.KindOf(err) == fail.NotFound {
			return h(c)
		} else if err != nil {
			return c.ErrorResponse(oops.New(err, "failed to load session"))
		}

		user, err := c.Repos.Users.Active(c.Context(), schema.Data{"id": session.Value})
		if fail.KindOf(err) == fail.NotFound {
			return h(c)
		} else if err != nil {
			return c.ErrorResponse(oops.New(err, "failed to mark user active"))
		}

		c.CurrentSession = session
		c.CurrentUser = user
		logger := c.Logger.With().Str("username", user.Username).Logger()
		c.Logger = &logger

		return h(c)
	}
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.ErrorResponse(errNotSignedIn)
		}

		return h(c)
	}
}

const SessionTokenHeader = "X-Session-Token"

// Writes must present the session's token alongside its id.
func needsSessionToken(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentSession == nil {
			return c.ErrorResponse(errNotSignedIn)
		}
		_, err := c.Repos.Sessions.VerifyToken(c.Context(), schema.Data{
			"id":    c.CurrentSession.ID,
			"token": c.Req.Header.Get(SessionTokenHeader),
		})
		if err != nil {
			c.Logger.Warn().Msg("user failed session token validation")
			return c.ErrorResponse(err)
		}

		return h(c)
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.Req.URL.String()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
