package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is user-facing and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("incorrect email address or password")

	// ErrUserInactive is returned when a deactivated account tries to act.
	ErrUserInactive = errors.New("user account is inactive")

	ErrEmailAlreadyExists = errors.New("email already registered")

	ErrUserNotFound   = errors.New("user not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrTopicNotFound  = errors.New("topic not found")
	ErrReplyNotFound  = errors.New("reply not found")

	// ErrPermissionDenied covers every ownership guard: only the author of a
	// topic or reply may modify it, and only the topic author manages solutions.
	ErrPermissionDenied = errors.New("operation not allowed for this user")

	ErrTopicClosed    = errors.New("topic is closed")
	ErrTopicNotClosed = errors.New("topic is not closed")
	ErrCourseInactive = errors.New("course is not active")
)
