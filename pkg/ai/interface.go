package ai

import "context"

// TextGenerator is a raw prompt-in, text-out LLM backend.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// PlanGenerator is the study-planning service the plan workflows depend on.
// Its schedule output is raw text; validating it is the caller's job.
type PlanGenerator interface {
	GenerateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error)
	GenerateQuiz(ctx context.Context, req QuizRequest) ([]QuizQuestion, error)
	GenerateReflection(ctx context.Context, req ReflectionRequest) (*ReflectionResult, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
	ProviderMock   ProviderType = "mock"
)

type Subject struct {
	Name     string
	Priority int
}

// PriorTask is the part of an existing task a re-plan prompt needs.
type PriorTask struct {
	Date      string
	Task      string
	Completed bool
}

type ScheduleRequest struct {
	Subjects          []Subject
	DailyStudyHours   float64
	StudyDurationDays int
	SubjectDetails    string
	StartDate         string

	// Set only when re-planning.
	PriorTasks    []PriorTask
	SkippedDays   int
	RemainingDays int
}

// Replanning reports whether the request adapts an existing schedule.
func (r ScheduleRequest) Replanning() bool {
	return len(r.PriorTasks) > 0
}

type ScheduleResult struct {
	// ScheduleText is the JSON array text as returned by the model after
	// code fences and wrapper objects are stripped.
	ScheduleText string
	Summary      string
}

type QuizRequest struct {
	Topic     string
	Subject   string
	Notes     string
	Questions int
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
}

type ReflectionRequest struct {
	PlanName         string
	Subjects         []string
	CompletedTasks   int
	TotalTasks       int
	QuizzesAttempted int
	AverageQuizScore float64
	ReplanCount      int
	Notes            []string
}

type ReflectionResult struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}
