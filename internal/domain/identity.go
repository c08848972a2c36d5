package domain

// Identity is the authenticated caller resolved from a bearer token.
// Token issuance lives outside this service; only validation happens here.
type Identity struct {
	UserID  string `json:"userId"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}
