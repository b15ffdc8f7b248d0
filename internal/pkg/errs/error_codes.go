/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006
)

// 2xxx: Pairing, Session and Content Business Logic Errors
const (
	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrFileSizeTooLarge indicates that an attachment exceeds the size limit.
	ErrFileSizeTooLarge = 2202

	// ErrAttachmentCountInvalid indicates a message carried no attachments or too many.
	ErrAttachmentCountInvalid = 2203

	// ErrAttachmentKeyInvalid indicates an attachment key that the sender does not own.
	ErrAttachmentKeyInvalid = 2204

	// ErrInvalidTransition indicates the user is not in a state that allows this action.
	ErrInvalidTransition = 2301

	// ErrNotWaiting indicates a cancel request from a user who is not searching.
	ErrNotWaiting = 2302

	// ErrNotPaired indicates a session command from a user who has no partner.
	ErrNotPaired = 2303

	// ErrPairingConflict indicates a concurrent change won the race; retrying is safe.
	ErrPairingConflict = 2304

	// ErrNotInSession indicates a relayed message from a user who has no partner.
	ErrNotInSession = 2305

	// ErrPartnerGone indicates the partner could not be reached and the session was ended.
	ErrPartnerGone = 2306

	// ErrPartnerBusy indicates the partner's connection is not keeping up; resending later is safe.
	ErrPartnerBusy = 2307
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrSessionKicked indicates that the current client connection has been terminated.
	ErrSessionKicked = 3004

	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3005

	// ErrUserNotFound indicates the identity in the token is not registered.
	ErrUserNotFound = 3010

	// ErrInvalidGender indicates a gender value outside the allowed set.
	ErrInvalidGender = 3011
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates the attachment store failed or is not configured.
	ErrFileStorageFailed = 5001

	// ErrDirectoryUnavailable indicates the user directory could not be reached.
	ErrDirectoryUnavailable = 5002
)
