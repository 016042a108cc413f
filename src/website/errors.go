package website

import (
	"net/http"

	"git.flipper.school/flipper/flipper/src/fail"
)

type errorBody struct {
	Err string `json:"err"`
}

var errNotSignedIn = fail.New(fail.BadCredentials, "You must be signed in.")

func errorStatus(err error) int {
	switch fail.KindOf(err) {
	case fail.Invalid:
		return http.StatusBadRequest
	case fail.BadCredentials:
		return http.StatusUnauthorized
	case fail.Forbidden:
		return http.StatusForbidden
	case fail.NotFound:
		return http.StatusNotFound
	case fail.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func FourOhFour(c *RequestContext) ResponseData {
	res := jsonResponse(errorBody{Err: "Not found."})
	res.StatusCode = http.StatusNotFound
	return res
}
