package oauth

// Tokens is the access/refresh token pair persisted between invocations.
//
// A refresh token, once obtained, is never dropped: refreshes that do not
// rotate it keep the previous one.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenSaver persists a token pair. It is called after every change.
type TokenSaver interface {
	SaveTokens(Tokens) error
}
