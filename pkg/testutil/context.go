package testutil

import (
	"net/http"

	id "arisan/pkg/domain"
	"arisan/pkg/requestcontext"
)

// WithCaller adds a caller address to the request context.
// This simulates what the auth middleware does for authenticated requests.
// An address that fails to parse is not added.
func WithCaller(req *http.Request, caller string) *http.Request {
	if addr, err := id.ParseAddress(caller); err == nil {
		return req.WithContext(requestcontext.WithCaller(req.Context(), addr))
	}
	return req
}
