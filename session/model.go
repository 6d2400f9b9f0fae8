package session

import "time"

// RefreshRecord is the server-side state behind one refresh token.
type RefreshRecord struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	RecordKey string `json:"recordKey"`
	IssuedAt  int64  `json:"issuedAt"`
}

// TokenPair is returned by Issue.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
