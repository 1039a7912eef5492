package contextkeys

type contextKey string

const (
	ActorIDKey   contextKey = "ActorID"
	ActorRoleKey contextKey = "ActorRole"
	RequestIDKey contextKey = "RequestID"
)
