package server

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLength    = 200
	maxMessageLength  = 2000
	maxNameLength     = 100
	maxEmailLength    = 150
	minPasswordLength = 6
	maxPasswordLength = 72
)

type fieldErrors map[string]string

func (f fieldErrors) add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

func (f fieldErrors) ok() bool {
	return len(f) == 0
}

func validateRegisterRequest(req registerRequest) fieldErrors {
	errs := fieldErrors{}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs.add("name", "name is required")
	} else if utf8.RuneCountInString(name) > maxNameLength {
		errs.add("name", "name must be at most 100 characters")
	}
	validateEmail(errs, req.Email)
	validatePassword(errs, req.Password)
	return errs
}

func validateLoginRequest(req loginRequest) fieldErrors {
	errs := fieldErrors{}
	validateEmail(errs, req.Email)
	if req.Password == "" {
		errs.add("password", "password is required")
	}
	return errs
}

func validateEmail(errs fieldErrors, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.add("email", "email is required")
		return
	}
	if utf8.RuneCountInString(email) > maxEmailLength {
		errs.add("email", "email must be at most 150 characters")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs.add("email", "email format is invalid")
	}
}

func validatePassword(errs fieldErrors, password string) {
	if password == "" {
		errs.add("password", "password is required")
		return
	}
	if len(password) < minPasswordLength {
		errs.add("password", "password must be at least 6 characters")
		return
	}
	if len(password) > maxPasswordLength {
		errs.add("password", "password must be at most 72 characters")
	}
}

func validateCreateTopicRequest(req createTopicRequest) fieldErrors {
	errs := fieldErrors{}
	validateTitle(errs, req.Title, true)
	validateMessage(errs, req.Message, true)
	if strings.TrimSpace(req.CourseID) == "" {
		errs.add("courseId", "courseId is required")
	}
	return errs
}

func validateUpdateTopicRequest(req updateTopicRequest) fieldErrors {
	errs := fieldErrors{}
	if req.Title != nil {
		validateTitle(errs, *req.Title, false)
	}
	if req.Message != nil {
		validateMessage(errs, *req.Message, false)
	}
	if req.CourseID != nil && strings.TrimSpace(*req.CourseID) == "" {
		errs.add("courseId", "courseId must not be blank")
	}
	return errs
}

func validateReplyMessage(message string) fieldErrors {
	errs := fieldErrors{}
	validateMessage(errs, message, true)
	return errs
}

func validateTitle(errs fieldErrors, title string, required bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		if required {
			errs.add("title", "title is required")
		} else {
			errs.add("title", "title must not be blank")
		}
		return
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		errs.add("title", "title must be at most 200 characters")
	}
}

func validateMessage(errs fieldErrors, message string, required bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		if required {
			errs.add("message", "message is required")
		} else {
			errs.add("message", "message must not be blank")
		}
		return
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		errs.add("message", "message must be at most 2000 characters")
	}
}
