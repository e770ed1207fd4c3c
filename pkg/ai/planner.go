package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Planner implements PlanGenerator on top of any TextGenerator.
type Planner struct {
	gen TextGenerator
}

func NewPlanner(gen TextGenerator) *Planner {
	return &Planner{gen: gen}
}

// GenerateSchedule asks the model for a schedule. Only transport and
// provider failures are errors; malformed output is returned as text.
func (p *Planner) GenerateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	text, err := p.gen.GenerateText(ctx, buildSchedulePrompt(req))
	if err != nil {
		return nil, fmt.Errorf("schedule generation failed: %w", err)
	}

	schedule, summary := NormalizeScheduleOutput(text)
	log.Printf("[AI] Schedule generated (%d chars, replan=%v)", len(schedule), req.Replanning())
	return &ScheduleResult{ScheduleText: schedule, Summary: summary}, nil
}

func (p *Planner) GenerateQuiz(ctx context.Context, req QuizRequest) ([]QuizQuestion, error) {
	text, err := p.gen.GenerateText(ctx, buildQuizPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("quiz generation failed: %w", err)
	}
	return parseQuiz(text)
}

func (p *Planner) GenerateReflection(ctx context.Context, req ReflectionRequest) (*ReflectionResult, error) {
	text, err := p.gen.GenerateText(ctx, buildReflectionPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("reflection generation failed: %w", err)
	}
	return parseReflection(text)
}

// parseQuiz keeps well-formed questions and drops the rest.
func parseQuiz(text string) ([]QuizQuestion, error) {
	arr := ExtractJSONArray(StripCodeFences(text))
	if arr == "" {
		return nil, errors.New("failed to parse quiz: no JSON array in response")
	}

	var raw []QuizQuestion
	if err := json.Unmarshal([]byte(arr), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quiz: %w", err)
	}

	questions := make([]QuizQuestion, 0, len(raw))
	for _, q := range raw {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
			continue
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, errors.New("failed to parse quiz: no valid questions")
	}
	return questions, nil
}

// parseReflection falls back to using the whole reply as the summary when
// the model ignores the JSON instructions.
func parseReflection(text string) (*ReflectionResult, error) {
	cleaned := StripCodeFences(text)
	if obj := ExtractJSONObject(cleaned); obj != "" {
		var r ReflectionResult
		if err := json.Unmarshal([]byte(obj), &r); err == nil && r.Summary != "" {
			if r.Strengths == nil {
				r.Strengths = []string{}
			}
			if r.Improvements == nil {
				r.Improvements = []string{}
			}
			return &r, nil
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, errors.New("empty reflection response")
	}
	return &ReflectionResult{Summary: cleaned, Strengths: []string{}, Improvements: []string{}}, nil
}
