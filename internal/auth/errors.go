package auth

import "errors"

// Code identifies an authentication failure.
type Code string

// Failure codes reported by providers.
const (
	CodeEmailInUse          Code = "auth/email-already-in-use"
	CodeInvalidEmail        Code = "auth/invalid-email"
	CodeOperationNotAllowed Code = "auth/operation-not-allowed"
	CodeWeakPassword        Code = "auth/weak-password"
	CodeUserDisabled        Code = "auth/user-disabled"
	CodeUserNotFound        Code = "auth/user-not-found"
	CodeWrongPassword       Code = "auth/wrong-password"
	CodeInvalidCredential   Code = "auth/invalid-credential"
	CodeTooManyRequests     Code = "auth/too-many-requests"
)

// fallbackMessage is shown for codes without a dedicated message.
const fallbackMessage = "An error occurred. Please try again."

var messages = map[Code]string{
	CodeEmailInUse:          "This email is already registered.",
	CodeInvalidEmail:        "Invalid email address.",
	CodeOperationNotAllowed: "Email/password accounts are not enabled.",
	CodeWeakPassword:        "Password should be at least 6 characters.",
	CodeUserDisabled:        "This account has been disabled.",
	CodeUserNotFound:        "No account found with this email.",
	CodeWrongPassword:       "Incorrect password.",
	CodeInvalidCredential:   "Invalid email or password.",
	CodeTooManyRequests:     "Too many failed attempts. Please try again later.",
}

// Message returns the user-facing text for code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return fallbackMessage
}

// Error is an authentication failure. Err carries the underlying cause
// for logging; it is never shown to the user.
type Error struct {
	Code Code
	Err  error
}

func newError(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

func (e *Error) Error() string {
	return Message(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err is or wraps an *Error.
func IsError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}

// CodeOf returns the code of an *Error in err's chain, or "".
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// UserMessage returns the text to display for any sign-in failure.
func UserMessage(err error) string {
	return Message(CodeOf(err))
}
