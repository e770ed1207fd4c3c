package ai

import (
	"fmt"
	"strings"
)

const maxDetailsChars = 6000

func buildSchedulePrompt(req ScheduleRequest) string {
	var b strings.Builder

	days := req.StudyDurationDays
	if req.Replanning() && req.RemainingDays > 0 {
		days = req.RemainingDays
	}

	b.WriteString("You are an expert study coach. Build a day-by-day study schedule.\n\n")
	b.WriteString("SUBJECTS (higher priority first; priority 0 means unspecified):\n")
	for _, s := range req.Subjects {
		fmt.Fprintf(&b, "- %s (priority %d)\n", s.Name, s.Priority)
	}
	fmt.Fprintf(&b, "\nDAILY STUDY HOURS: %g\n", req.DailyStudyHours)
	fmt.Fprintf(&b, "NUMBER OF DAYS: %d\n", days)
	if req.StartDate != "" {
		fmt.Fprintf(&b, "START DATE: %s\n", req.StartDate)
	}

	if details := strings.TrimSpace(req.SubjectDetails); details != "" {
		if len(details) > maxDetailsChars {
			details = details[:maxDetailsChars]
		}
		fmt.Fprintf(&b, "\nSYLLABUS / DETAILS:\n%s\n", details)
	}

	if req.Replanning() {
		fmt.Fprintf(&b, "\nThe student has fallen %d day(s) behind. Their existing schedule was:\n", req.SkippedDays)
		for _, t := range req.PriorTasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", mark, t.Date, t.Task)
		}
		b.WriteString("\nRe-plan ONLY the unfinished material ([ ] items) across the new days. ")
		b.WriteString("Do not repeat completed items. Rebalance so no single day is overloaded.\n")
	}

	b.WriteString(`
RULES:
1. Exactly one entry per day, consecutive dates starting from the start date.
2. Each "task" is a concrete, achievable description for that day's study hours.
3. "youtubeSearchQuery" is a search phrase for a helpful video; "referenceSearchQuery" is a search phrase for reading material.
4. Dates MUST be formatted YYYY-MM-DD.

Respond with ONLY this JSON object and no other text:
{"summary": "<two sentence overview of the plan>", "schedule": [{"date": "YYYY-MM-DD", "task": "...", "youtubeSearchQuery": "...", "referenceSearchQuery": "..."}]}`)

	return b.String()
}

func buildQuizPrompt(req QuizRequest) string {
	n := req.Questions
	if n <= 0 {
		n = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %d-question multiple choice quiz to check understanding of this study session.\n\n", n)
	if req.Subject != "" {
		fmt.Fprintf(&b, "SUBJECT: %s\n", req.Subject)
	}
	fmt.Fprintf(&b, "SESSION: %s\n", req.Topic)
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		fmt.Fprintf(&b, "STUDENT NOTES:\n%s\n", notes)
	}
	b.WriteString(`
Each question has exactly 4 options and one correct answer. answerIndex is the zero-based index of the correct option.

Respond with ONLY a JSON array:
[{"question": "...", "options": ["...", "...", "...", "..."], "answerIndex": 0, "explanation": "..."}]`)
	return b.String()
}

func buildReflectionPrompt(req ReflectionRequest) string {
	var b strings.Builder
	b.WriteString("A student just finished a study plan. Write a short, encouraging retrospective.\n\n")
	fmt.Fprintf(&b, "PLAN: %s\n", req.PlanName)
	fmt.Fprintf(&b, "SUBJECTS: %s\n", strings.Join(req.Subjects, ", "))
	fmt.Fprintf(&b, "TASKS COMPLETED: %d of %d\n", req.CompletedTasks, req.TotalTasks)
	if req.QuizzesAttempted > 0 {
		fmt.Fprintf(&b, "QUIZZES: %d attempted, average score %.0f%%\n", req.QuizzesAttempted, req.AverageQuizScore)
	}
	if req.ReplanCount > 0 {
		fmt.Fprintf(&b, "TIMES RE-PLANNED AFTER FALLING BEHIND: %d\n", req.ReplanCount)
	}
	if len(req.Notes) > 0 {
		b.WriteString("STUDENT NOTES:\n")
		for _, n := range req.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	b.WriteString(`
Respond with ONLY this JSON object:
{"summary": "<3 sentences>", "strengths": ["..."], "improvements": ["..."]}`)
	return b.String()
}
