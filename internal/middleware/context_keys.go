package middleware

import "context"

// userIDKey is the key used to store the authenticated user's ID in the
// request context.
const userIDKey = contextKey("userID")

// GetUserIDFromContext retrieves the authenticated user ID from a standard
// context. It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userIDVal := ctx.Value(userIDKey)
	if userIDVal == nil {
		return "", false
	}
	userID, ok := userIDVal.(string)
	if !ok {
		return "", false
	}
	return userID, true
}
