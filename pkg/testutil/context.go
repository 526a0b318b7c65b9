package testutil

import (
	"net/http"

	id "communitylink/pkg/domain"
	"communitylink/pkg/requestcontext"
)

// WithActor adds an authenticated user ID (and optional role) to the request
// context, simulating what the auth middleware does for authenticated
// requests.
func WithActor(req *http.Request, userID id.UserID, role string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	if role != "" {
		ctx = requestcontext.WithUserRole(ctx, role)
	}
	return req.WithContext(ctx)
}
