package dto

const (
	CodeValidationFailed          = "VALIDATION_FAILED"
	CodeWeakPassword              = "WEAK_PASSWORD"
	CodeUserExists                = "USER_EXISTS"
	CodeIncorrectEmailOrPassword  = "INCORRECT_EMAIL_OR_PASSWORD"
	CodeUserNotActivated          = "USER_NOT_ACTIVATED"
	CodeTokenMissing              = "TOKEN_MISSING"
	CodeTokenInvalid              = "TOKEN_INVALID"
	CodeActivationTokenInvalid    = "ACTIVATION_TOKEN_EXPIRED_OR_INVALID"
	CodePasswordResetTokenInvalid = "PASSWORD_RESET_TOKEN_EXPIRED_OR_INVALID"
	CodeEntityAccessForbidden     = "ENTITY_ACCESS_FORBIDDEN"
	CodeUnknownRelation           = "UNKNOWN_RELATION"
	CodeNotFound                  = "NOT_FOUND"
	CodeInternalError             = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Code: code, Error: message}
}
