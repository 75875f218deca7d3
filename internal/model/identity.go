package model

// LoadState is the resolution state of the session.
type LoadState int

const (
	Loading LoadState = iota
	SignedIn
	SignedOut
)

func (s LoadState) String() string {
	switch s {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	default:
		return "loading"
	}
}

// Identity is returned by the identity probe endpoint.
type Identity struct {
	SubjectID int64  `json:"subjectId"`
	Role      string `json:"role"`
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the bearer token when the server issues one.
type LoginResponse struct {
	Token string `json:"token,omitempty"`
}
