package utils

// ResponseCode business response code
type ResponseCode int

// Response codes
const (
	CodeSuccess ResponseCode = 0

	// Parameter errors (1xxx)
	CodeInvalidParam ResponseCode = 1001

	// Entity errors (2xxx)
	CodeNotFound ResponseCode = 2001
	CodeConflict ResponseCode = 2002

	// Auth errors (3xxx)
	CodeUnauthorized ResponseCode = 3001
	CodeForbidden    ResponseCode = 3002

	// Stock errors (4xxx)
	CodeInsufficientStock ResponseCode = 4001

	// System errors (5xxx)
	CodeInternalError ResponseCode = 5001
	CodeDatabaseError ResponseCode = 5002
	CodeRedisError    ResponseCode = 5003
	CodeRateLimit     ResponseCode = 5004
)
