package domain

import "errors"

var (
	ErrPlanNotFound        = errors.New("plan not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrSubTaskNotFound     = errors.New("subtask not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidTransition   = errors.New("invalid plan status transition")
	ErrPlanNotActive       = errors.New("plan is not active")
	ErrCompletionThreshold = errors.New("at least 80% of tasks must be completed before completing a plan")
	ErrScheduleUnusable    = errors.New("plan generation failed, please try again")
	ErrInvalidParameters   = errors.New("invalid plan parameters")
	ErrInvalidQuizScore    = errors.New("quiz score must be between 0 and 100")
	ErrGeneratorMissing    = errors.New("AI service not configured")
	ErrEmptySubTask        = errors.New("subtask text is required")
	ErrNoReflection        = errors.New("reflection is only available for completed plans")
)
