package auth

// UnauthorizedError signals that a request failed authentication. The
// message is safe to surface to clients; it never distinguishes between
// an unknown account and a known account with bad credentials.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}
