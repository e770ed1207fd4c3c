package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubGenerator struct {
	reply  string
	err    error
	calls  int
	prompt string
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompt = prompt
	return s.reply, s.err
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[1]`, `[1]`},
		{"json fence", "```json\n[1]\n```", `[1]`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```json[1]```", `[1]`},
		{"surrounding space", "  \n```json\n[1]\n```  ", `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFences(tt.in); got != tt.want {
				t.Errorf("StripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeScheduleOutput(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		wantSched   string
		wantSummary string
	}{
		{
			name:        "wrapped object",
			in:          "```json\n{\"summary\":\" Two weeks of math. \",\"schedule\":[{\"date\":\"2024-01-01\",\"task\":\"a\"}]}\n```",
			wantSched:   `[{"date":"2024-01-01","task":"a"}]`,
			wantSummary: "Two weeks of math.",
		},
		{
			name:      "bare array",
			in:        `[{"date":"2024-01-01","task":"a"}]`,
			wantSched: `[{"date":"2024-01-01","task":"a"}]`,
		},
		{
			name:      "array inside prose",
			in:        `Here is your plan: [{"date":"2024-01-01","task":"a"}] Good luck!`,
			wantSched: `[{"date":"2024-01-01","task":"a"}]`,
		},
		{
			name:      "no json at all",
			in:        "I cannot help with that.",
			wantSched: "I cannot help with that.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, summary := NormalizeScheduleOutput(tt.in)
			if sched != tt.wantSched {
				t.Errorf("schedule = %q, want %q", sched, tt.wantSched)
			}
			if summary != tt.wantSummary {
				t.Errorf("summary = %q, want %q", summary, tt.wantSummary)
			}
		})
	}
}

func TestPlannerGenerateSchedulePrompt(t *testing.T) {
	stub := &stubGenerator{reply: `{"summary":"s","schedule":[]}`}
	p := NewPlanner(stub)

	res, err := p.GenerateSchedule(context.Background(), ScheduleRequest{
		Subjects:          []Subject{{Name: "Math", Priority: 3}},
		DailyStudyHours:   2,
		StudyDurationDays: 14,
		StartDate:         "2024-01-01",
		PriorTasks:        []PriorTask{{Date: "2024-01-01", Task: "Limits", Completed: true}},
		SkippedDays:       2,
		RemainingDays:     5,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if res.ScheduleText != "[]" || res.Summary != "s" {
		t.Errorf("result = %+v", res)
	}
	for _, want := range []string{"Math (priority 3)", "NUMBER OF DAYS: 5", "START DATE: 2024-01-01", "[x] 2024-01-01: Limits", "2 day(s) behind"} {
		if !strings.Contains(stub.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestPlannerGenerateScheduleError(t *testing.T) {
	p := NewPlanner(&stubGenerator{err: errors.New("boom")})
	if _, err := p.GenerateSchedule(context.Background(), ScheduleRequest{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseQuiz(t *testing.T) {
	reply := "```json\n[" +
		`{"question":"2+2?","options":["3","4","5","6"],"answerIndex":1},` +
		`{"question":"bad index","options":["a","b"],"answerIndex":5},` +
		`{"question":"","options":["a","b"],"answerIndex":0}` +
		"]\n```"
	got, err := parseQuiz(reply)
	if err != nil {
		t.Fatalf("parseQuiz: %v", err)
	}
	if len(got) != 1 || got[0].Question != "2+2?" {
		t.Errorf("parseQuiz = %+v, want only the valid question", got)
	}

	if _, err := parseQuiz("no questions here"); err == nil {
		t.Error("expected error for non-JSON reply")
	}
}

func TestParseReflection(t *testing.T) {
	r, err := parseReflection(`{"summary":"Well done","strengths":["focus"]}`)
	if err != nil {
		t.Fatalf("parseReflection: %v", err)
	}
	if r.Summary != "Well done" || len(r.Strengths) != 1 || r.Improvements == nil {
		t.Errorf("parseReflection = %+v", r)
	}

	r, err = parseReflection("You did great overall.")
	if err != nil {
		t.Fatalf("parseReflection plain: %v", err)
	}
	if r.Summary != "You did great overall." {
		t.Errorf("Summary = %q", r.Summary)
	}

	if _, err := parseReflection("   "); err == nil {
		t.Error("expected error for empty reply")
	}
}

func TestFallbackService(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubGenerator{reply: "p"}
		secondary := &stubGenerator{reply: "s"}
		f := NewFallbackService(primary, "P", secondary, "S")
		got, err := f.GenerateText(context.Background(), "x")
		if err != nil || got != "p" {
			t.Fatalf("got %q, %v", got, err)
		}
		if secondary.calls != 0 {
			t.Errorf("secondary called %d times", secondary.calls)
		}
	})

	t.Run("quota falls back", func(t *testing.T) {
		primary := &stubGenerator{err: errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")}
		secondary := &stubGenerator{reply: "s"}
		f := NewFallbackService(primary, "P", secondary, "S")
		got, err := f.GenerateText(context.Background(), "x")
		if err != nil || got != "s" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("secondary down after quota retries primary", func(t *testing.T) {
		primary := &stubGenerator{err: errors.New("quota exceeded")}
		secondary := &stubGenerator{err: errors.New("dial tcp 127.0.0.1:11434: connection refused")}
		f := NewFallbackService(primary, "P", secondary, "S")
		if _, err := f.GenerateText(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
		if primary.calls != 2 {
			t.Errorf("primary calls = %d, want 2", primary.calls)
		}
	})

	t.Run("no providers", func(t *testing.T) {
		f := NewFallbackService(nil, "P", nil, "S")
		if _, err := f.GenerateText(context.Background(), "x"); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestErrorClassification(t *testing.T) {
	if !isQuotaError(errors.New("Too Many Requests")) {
		t.Error("Too Many Requests should be a quota error")
	}
	if isQuotaError(errors.New("invalid argument")) {
		t.Error("invalid argument is not a quota error")
	}
	if !isConnectionError(errors.New("context deadline exceeded (Client.Timeout exceeded)")) {
		t.Error("timeout should be a connection error")
	}
}

func TestMockPlannerSchedule(t *testing.T) {
	m := &MockPlanner{Now: func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }}
	res, err := m.GenerateSchedule(context.Background(), ScheduleRequest{
		Subjects:          []Subject{{Name: "Math"}, {Name: "Physics"}},
		DailyStudyHours:   1.5,
		StudyDurationDays: 3,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}

	var items []map[string]string
	if err := json.Unmarshal([]byte(res.ScheduleText), &items); err != nil {
		t.Fatalf("schedule is not JSON: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[2]["date"] != "2024-01-03" {
		t.Errorf("items[2].date = %q", items[2]["date"])
	}
	if !strings.Contains(items[1]["task"], "Physics") {
		t.Errorf("items[1].task = %q, want Physics", items[1]["task"])
	}
}
