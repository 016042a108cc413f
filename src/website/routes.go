package website

import (
	"net/http"
	"regexp"
	"strings"

	"git.flipper.school/flipper/flipper/src/flipdata"
)

// path compiles a route, with {id} standing for one path segment.
func path(p string) *regexp.Regexp {
	return regexp.MustCompile("^" + strings.ReplaceAll(p, "{id}", `(?P<id>[^/]+)`) + "$")
}

func NewWebsiteRoutes(repos *flipdata.Repositories) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			trackRequestMetrics,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			withRepositories(repos),
			loadCurrentUser,
		},
	}

	routes.GET(path("/metrics"), Metrics)

	api := routes.Group(regexp.MustCompile("^/api"))
	api.POST(path("/register"), Register)
	api.POST(path("/login"), Login)

	authed := api.WithMiddleware(needsAuth)
	writes := authed.WithMiddleware(needsSessionToken)

	authed.GET(path("/user"), CurrentUser)
	writes.POST(path("/logout"), Logout)

	authed.GET(path("/courses"), ListCourses)
	writes.POST(path("/courses"), AddCourse)
	authed.GET(path("/courses/{id}"), GetCourse)
	writes.POST(path("/courses/{id}/join"), JoinCourse)
	writes.POST(path("/courses/{id}/approve"), AcceptStudent)
	writes.POST(path("/courses/{id}/decline"), DeclineStudent)

	authed.GET(path("/courses/{id}/minilessons"), ListMinilessons)
	writes.POST(path("/courses/{id}/minilessons"), AddMinilesson)
	authed.GET(path("/minilessons/{id}"), GetMinilesson)
	writes.DELETE(path("/minilessons/{id}"), RemoveMinilesson)
	writes.POST(path("/minilessons/{id}/publish"), PublishMinilesson)
	writes.POST(path("/minilessons/{id}/edit"), EditMinilesson)

	authed.GET(path("/minilessons/{id}/pages"), ListPages)
	writes.POST(path("/minilessons/{id}/pages"), AddPage)
	authed.GET(path("/pages/{id}"), GetPage)
	writes.DELETE(path("/pages/{id}"), RemovePage)

	authed.GET(path("/pages/{id}/mcqs"), ListMcqs)
	writes.POST(path("/pages/{id}/mcqs"), AddMcq)
	authed.GET(path("/mcqs/{id}"), GetMcq)
	writes.DELETE(path("/mcqs/{id}"), RemoveMcq)

	authed.GET(path("/mcqs/{id}/submissions"), ListSubmissions)
	writes.POST(path("/mcqs/{id}/submissions"), AddSubmission)
	authed.GET(path("/mcqs/{id}/grades"), Grades)
	authed.GET(path("/submissions/{id}"), GetSubmission)

	routes.AnyMethod(regexp.MustCompile("^"), FourOhFour)

	return router
}
