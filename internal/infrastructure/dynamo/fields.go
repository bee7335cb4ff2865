package dynamo

// DynamoDB attribute names used in keys, conditions and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	attrUserID           = "user_id"
	attrEmail            = "email"
	attrCode             = "code"
	attrVerificationCode = "verification_code"
	attrIsVerified       = "is_verified"
	attrUpdatedAt        = "updated_at"
)
