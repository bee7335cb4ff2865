package domain

// CodeClaim reserves a verification code for a single pending account.
// PK: code. The item is deleted when the owning account is verified.
type CodeClaim struct {
	Code   string `json:"code" dynamodbav:"code"`
	UserID string `json:"user_id" dynamodbav:"user_id"`
}

// EmailClaim reserves an email address for exactly one account.
// PK: email.
type EmailClaim struct {
	Email  string `json:"email" dynamodbav:"email"`
	UserID string `json:"user_id" dynamodbav:"user_id"`
}
