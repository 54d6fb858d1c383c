package domain

// TokenVerifier validates a bearer token issued by the external identity
// collaborator and returns the subject user ID. Token issuance is not part
// of this service.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
