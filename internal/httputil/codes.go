package httputil

// Machine-readable error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidFileType    = "INVALID_FILE_TYPE"
	CodeInvalidFileSize    = "INVALID_FILE_SIZE"
	CodeInvalidFileContent = "INVALID_FILE_CONTENT"
	CodeInvalidPeriod      = "INVALID_PERIOD"
	CodeInvalidAccountType = "INVALID_ACCOUNT_TYPE"
	CodeInvalidIdentifier  = "INVALID_IDENTIFIER"

	CodeMissingAuth       = "MISSING_AUTH"
	CodeInvalidAuthHeader = "INVALID_AUTH_HEADER"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeMissingCustomerID = "MISSING_CUSTOMER_ID"

	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternalError   = "INTERNAL_ERROR"
)
