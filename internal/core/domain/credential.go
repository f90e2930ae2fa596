package domain

// TokenPair is an OAuth2 access/refresh token pair returned by the
// identity provider. After a successful refresh the previous access
// token is invalid and must not be reused.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CredentialPair binds a token pair to the social account that owns it.
// A refresh token always belongs to exactly one account.
type CredentialPair struct {
	AccountID    string `json:"account_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
