package testutil

import (
	"net/http"

	id "creditdesk/pkg/domain"
	"creditdesk/pkg/requestcontext"
)

// WithUser injects an authenticated identity into the request context,
// simulating what RequireAuth does for real requests.
func WithUser(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}
