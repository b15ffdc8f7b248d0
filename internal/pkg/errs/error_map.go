/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},

	// 2xxx: Pairing, Session and Content Business Logic Errors
	ErrMessageContentTooLong:  {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrFileSizeTooLarge:       {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrAttachmentCountInvalid: {Code: ErrAttachmentCountInvalid, Message: "A message can carry 1 to %d attachments."},
	ErrAttachmentKeyInvalid:   {Code: ErrAttachmentKeyInvalid, Message: "Invalid attachment."},
	ErrInvalidTransition:      {Code: ErrInvalidTransition, Message: "You are not in a state that allows this action.", Status: http.StatusConflict},
	ErrNotWaiting:             {Code: ErrNotWaiting, Message: "You are not searching for a partner.", Status: http.StatusConflict},
	ErrNotPaired:              {Code: ErrNotPaired, Message: "You are not in a conversation.", Status: http.StatusConflict},
	ErrPairingConflict:        {Code: ErrPairingConflict, Message: "Your state changed meanwhile. Please try again.", Status: http.StatusConflict},
	ErrNotInSession:           {Code: ErrNotInSession, Message: "You have no partner to send this to.", Status: http.StatusConflict},
	ErrPartnerGone:            {Code: ErrPartnerGone, Message: "Your partner is gone. The conversation has ended."},
	ErrPartnerBusy:            {Code: ErrPartnerBusy, Message: "Your partner is not keeping up. Please resend in a moment.", Status: http.StatusServiceUnavailable},

	// 3xxx: User, Session, and Security Errors
	ErrSessionKicked: {Code: ErrSessionKicked, Message: "You were signed in on another device."},
	ErrUnauthorized:  {Code: ErrUnauthorized, Message: "Please register to continue.", Status: http.StatusUnauthorized},
	ErrUserNotFound:  {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrInvalidGender: {Code: ErrInvalidGender, Message: "Gender must be male, female or other."},

	// 5xxx: Internal System Errors
	ErrUnknown:              {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:    {Code: ErrFileStorageFailed, Message: "File storage is unavailable. Please try again."},
	ErrDirectoryUnavailable: {Code: ErrDirectoryUnavailable, Message: "Service is temporarily unavailable. Please try again.", Status: http.StatusServiceUnavailable},
}
