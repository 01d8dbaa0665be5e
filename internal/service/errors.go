package service

import "errors"

var (
	ErrStudentIDRequired  = errors.New("student_id is required for this question")
	ErrInvalidStudentID   = errors.New("student_id must be a positive integer")
	ErrInvalidRole        = errors.New("role must be student or parent")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUpload      = errors.New("invalid upload")
)
