/*
Package flipdata holds the repositories that every Flipper surface goes
through. Each operation takes an untyped data bag, validates it with a
schema, works out how the caller relates to the course that owns the
entity, and only then reads or writes the store.

Mutations always follow the same shape: a scoped read that checks the
caller's rights, the write, and a fresh read for the response.
*/
package flipdata

import (
	"errors"
	"time"

	"git.flipper.school/flipper/flipper/src/auth"
	"git.flipper.school/flipper/flipper/src/config"
	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/metrics"
	"git.flipper.school/flipper/flipper/src/store"
	"git.flipper.school/flipper/flipper/src/utils"
)

type Options struct {
	// Defaults to time.Now.
	Now func() time.Time

	Sessions     config.SessionConfig
	Registration config.RegistrationPolicy

	// Concurrent user lookups per reference expansion. Defaults to 8.
	ExpandLimit int
}

type Repositories struct {
	Users       *Users
	Sessions    *Sessions
	Courses     *Courses
	Minilessons *Minilessons
	Pages       *Pages
	Mcqs        *Mcqs
	Submissions *Submissions
}

// deps is shared by every repository so they can call into each other.
type deps struct {
	store       store.Store
	now         func() time.Time
	expandLimit int
	repos       *Repositories
}

func New(s store.Store, opts Options) (*Repositories, error) {
	policy, err := auth.NewPolicy(opts.Registration)
	if err != nil {
		return nil, err
	}

	d := &deps{
		store:       s,
		now:         opts.Now,
		expandLimit: utils.OrDefault(opts.ExpandLimit, 8),
	}
	if d.now == nil {
		d.now = time.Now
	}
	repos := &Repositories{
		Users:       &Users{deps: d, policy: policy},
		Sessions:    &Sessions{deps: d, cfg: opts.Sessions},
		Courses:     &Courses{deps: d},
		Minilessons: &Minilessons{deps: d},
		Pages:       &Pages{deps: d},
		Mcqs:        &Mcqs{deps: d},
		Submissions: &Submissions{deps: d},
	}
	d.repos = repos
	return repos, nil
}

// observe records the outcome of an operation. Call it deferred with a
// pointer to the named error result.
func observe(entity, operation string, err *error) {
	metrics.ObserveOperation(entity, operation, *err)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// orNotFound replaces a store miss with a user-facing message.
func orNotFound(err error, msg string) error {
	if isNotFound(err) {
		return fail.NotFoundf("%s", msg)
	}
	return err
}
