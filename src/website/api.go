package website

import (
	"context"

	"git.flipper.school/flipper/flipper/src/fail"
	"git.flipper.school/flipper/flipper/src/schema"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type operation[T any] func(ctx context.Context, data schema.Data) (T, error)
type listOperation[T any] func(ctx context.Context, data schema.Data) ([]T, int, error)

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// input merges the request's arguments with fixed ones taken from the path
// and the session. The fixed ones win.
func input(c *RequestContext, fixed schema.Data) (schema.Data, error) {
	data, err := c.Input()
	if err != nil {
		return nil, err
	}
	for key, val := range fixed {
		data[key] = val
	}
	return data, nil
}

func call[T any](c *RequestContext, op operation[T], fixed schema.Data) ResponseData {
	data, err := input(c, fixed)
	if err != nil {
		return c.ErrorResponse(err)
	}
	res, err := op(c.Context(), data)
	if err != nil {
		return c.ErrorResponse(err)
	}
	return jsonResponse(res)
}

func callList[T any](c *RequestContext, op listOperation[T], fixed schema.Data) ResponseData {
	data, err := input(c, fixed)
	if err != nil {
		return c.ErrorResponse(err)
	}
	items, total, err := op(c.Context(), data)
	if err != nil {
		return c.ErrorResponse(err)
	}
	if items == nil {
		items = []T{}
	}
	return jsonResponse(listResponse[T]{Items: items, Total: total})
}

func pick(data schema.Data, keys ...string) schema.Data {
	res := schema.Data{}
	for _, key := range keys {
		if val, ok := data[key]; ok {
			res[key] = val
		}
	}
	return res
}

func (c *RequestContext) me() schema.Data {
	return schema.Data{"user_id": c.CurrentUser.ID}
}

// withPath adds the path's id under key to the caller's identity.
func (c *RequestContext) withPath(key string) schema.Data {
	data := c.me()
	data[key] = c.PathParams["id"]
	return data
}

var metricsHandler = promhttp.Handler()

func Metrics(c *RequestContext) ResponseData {
	var res ResponseData
	metricsHandler.ServeHTTP(&res, c.Req)
	return res
}

func Register(c *RequestContext) ResponseData {
	data, err := c.Input()
	if err != nil {
		return c.ErrorResponse(err)
	}
	user, err := c.Repos.Users.Add(c.Context(), pick(data, "name", "username", "password"))
	if err != nil {
		return c.ErrorResponse(err)
	}
	c.Logger.Info().Str("username", user.Username).Msg("Registered user")
	return jsonResponse(user)
}

type loginResponse struct {
	Session any `json:"session"`
	User    any `json:"user"`
}

/*
Login checks a username and password and opens a session. The session id
goes in the Authorization header of later requests, and its token in the
X-Session-Token header of writes.
*/
func Login(c *RequestContext) ResponseData {
	data, err := c.Input()
	if err != nil {
		return c.ErrorResponse(err)
	}
	if _, ok := data["password"]; !ok {
		return c.ErrorResponse(fail.Invalidf("Missing required property: password."))
	}

	user, err := c.Repos.Users.Get(c.Context(), pick(data, "username", "password"))
	if err != nil {
		return c.ErrorResponse(err)
	}
	session, err := c.Repos.Sessions.Add(c.Context(), schema.Data{"value": user.ID})
	if err != nil {
		return c.ErrorResponse(err)
	}
	user, err = c.Repos.Users.Sign(c.Context(), schema.Data{"id": user.ID})
	if err != nil {
		return c.ErrorResponse(err)
	}

	return jsonResponse(loginResponse{Session: session, User: user})
}

func Logout(c *RequestContext) ResponseData {
	session, err := c.Repos.Sessions.Remove(c.Context(), schema.Data{"id": c.CurrentSession.ID})
	if err != nil {
		return c.ErrorResponse(err)
	}
	return jsonResponse(struct {
		ID string `json:"id"`
	}{session.ID})
}

func CurrentUser(c *RequestContext) ResponseData {
	return jsonResponse(c.CurrentUser)
}

func ListCourses(c *RequestContext) ResponseData {
	return call(c, c.Repos.Courses.List, c.me())
}

func AddCourse(c *RequestContext) ResponseData {
	return call(c, c.Repos.Courses.Add, schema.Data{"teacher_id": c.CurrentUser.ID})
}

func GetCourse(c *RequestContext) ResponseData {
	return call(c, c.Repos.Courses.Get, c.withPath("id"))
}

func JoinCourse(c *RequestContext) ResponseData {
	return call(c, c.Repos.Courses.Join, schema.Data{"id": c.PathParams["id"], "student_id": c.CurrentUser.ID})
}

func AcceptStudent(c *RequestContext) ResponseData {
	return call(c, c.Repos.Courses.AcceptStudent, schema.Data{"id": c.PathParams["id"], "teacher_id": c.CurrentUser.ID})
}

func DeclineStudent(c *RequestContext) ResponseData {
	return call(c, c.Repos.Courses.DeclineStudent, schema.Data{"id": c.PathParams["id"], "teacher_id": c.CurrentUser.ID})
}

func ListMinilessons(c *RequestContext) ResponseData {
	return callList(c, c.Repos.Minilessons.List, c.withPath("course_id"))
}

func AddMinilesson(c *RequestContext) ResponseData {
	return call(c, c.Repos.Minilessons.Add, c.withPath("course_id"))
}

func GetMinilesson(c *RequestContext) ResponseData {
	return call(c, c.Repos.Minilessons.Get, c.withPath("id"))
}

func PublishMinilesson(c *RequestContext) ResponseData {
	return call(c, c.Repos.Minilessons.Publish, c.withPath("id"))
}

func EditMinilesson(c *RequestContext) ResponseData {
	return call(c, c.Repos.Minilessons.Edit, c.withPath("id"))
}

func RemoveMinilesson(c *RequestContext) ResponseData {
	return call(c, c.Repos.Minilessons.Remove, c.withPath("id"))
}

func ListPages(c *RequestContext) ResponseData {
	return callList(c, c.Repos.Pages.List, c.withPath("minilesson_id"))
}

func AddPage(c *RequestContext) ResponseData {
	return call(c, c.Repos.Pages.Add, c.withPath("minilesson_id"))
}

func GetPage(c *RequestContext) ResponseData {
	return call(c, c.Repos.Pages.Get, c.withPath("id"))
}

func RemovePage(c *RequestContext) ResponseData {
	return call(c, c.Repos.Pages.Remove, c.withPath("id"))
}

func ListMcqs(c *RequestContext) ResponseData {
	return callList(c, c.Repos.Mcqs.List, c.withPath("page_id"))
}

func AddMcq(c *RequestContext) ResponseData {
	return call(c, c.Repos.Mcqs.Add, c.withPath("page_id"))
}

func GetMcq(c *RequestContext) ResponseData {
	return call(c, c.Repos.Mcqs.Get, c.withPath("id"))
}

func RemoveMcq(c *RequestContext) ResponseData {
	return call(c, c.Repos.Mcqs.Remove, c.withPath("id"))
}

func ListSubmissions(c *RequestContext) ResponseData {
	return callList(c, c.Repos.Submissions.List, c.withPath("mcq_id"))
}

func AddSubmission(c *RequestContext) ResponseData {
	return call(c, c.Repos.Submissions.Add, c.withPath("mcq_id"))
}

func Grades(c *RequestContext) ResponseData {
	return call(c, c.Repos.Submissions.Grades, c.withPath("mcq_id"))
}

func GetSubmission(c *RequestContext) ResponseData {
	return call(c, c.Repos.Submissions.Get, c.withPath("id"))
}
