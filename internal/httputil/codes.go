package httputil

// Machine-readable error codes attached to error responses so clients do
// not have to parse messages.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeEmailRequired      = "EMAIL_REQUIRED"
	CodePasswordRequired   = "PASSWORD_REQUIRED"
	CodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeMissingAuth        = "MISSING_AUTH"
	CodeTokenConsumed      = "TOKEN_CONSUMED"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInputAmbiguous     = "INPUT_AMBIGUOUS"
	CodeGeocodeFailed      = "GEOCODE_FAILED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)
