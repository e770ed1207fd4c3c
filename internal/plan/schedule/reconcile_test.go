package schedule

import (
	"fmt"
	"testing"

	"broadrange-backend/internal/plan/domain"
)

func makeTasks(n int, prefix string) []domain.Task {
	tasks := make([]domain.Task, n)
	for i := range tasks {
		tasks[i] = domain.Task{
			ID:          fmt.Sprintf("%s-%d", prefix, i),
			Date:        fmt.Sprintf("2024-01-%02d", i+1),
			Description: fmt.Sprintf("%s task %d", prefix, i),
			SubTasks:    []domain.SubTask{},
		}
	}
	return tasks
}

func TestReconcileEqualLengthKeepsProgress(t *testing.T) {
	prior := makeTasks(3, "old")
	prior[0].Completed = true
	prior[1].SubTasks = []domain.SubTask{{ID: "s1", Text: "read ch.1", Completed: true}}
	score := 85
	prior[2].QuizScore = &score
	prior[2].QuizAttempted = true

	fresh := makeTasks(3, "new")
	fresh[0].YoutubeSearchQuery = "new query"

	got := Reconcile(fresh, prior)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	for i := range got {
		if got[i].ID != prior[i].ID {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, prior[i].ID)
		}
		if got[i].Description != fresh[i].Description {
			t.Errorf("got[%d].Description = %q, want %q", i, got[i].Description, fresh[i].Description)
		}
		if got[i].Completed != prior[i].Completed {
			t.Errorf("got[%d].Completed = %v, want %v", i, got[i].Completed, prior[i].Completed)
		}
	}
	if got[0].YoutubeSearchQuery != "new query" {
		t.Errorf("search query not taken from new task: %q", got[0].YoutubeSearchQuery)
	}
	if len(got[1].SubTasks) != 1 || got[1].SubTasks[0].Text != "read ch.1" {
		t.Errorf("sub-tasks not carried over: %+v", got[1].SubTasks)
	}
	if got[2].QuizScore == nil || *got[2].QuizScore != 85 || !got[2].QuizAttempted {
		t.Errorf("quiz state not carried over: %+v", got[2])
	}
}

func TestReconcileLengthMismatchResets(t *testing.T) {
	prior := makeTasks(10, "old")
	for i := range prior {
		prior[i].Completed = true
	}
	fresh := makeTasks(7, "new")

	got := Reconcile(fresh, prior)
	if len(got) != 7 {
		t.Fatalf("len = %d, want 7", len(got))
	}
	for i, task := range got {
		if task.Completed {
			t.Errorf("got[%d] is completed, want fresh", i)
		}
		if task.ID != fresh[i].ID {
			t.Errorf("got[%d].ID = %q, want %q", i, task.ID, fresh[i].ID)
		}
	}
}

func TestReconcileDoesNotAlias(t *testing.T) {
	prior := makeTasks(1, "old")
	prior[0].SubTasks = []domain.SubTask{{ID: "s1", Text: "a"}}
	fresh := makeTasks(1, "new")

	got := Reconcile(fresh, prior)
	got[0].SubTasks[0].Text = "changed"
	got[0].Description = "changed"

	if prior[0].SubTasks[0].Text != "a" {
		t.Errorf("prior sub-task mutated through result")
	}
	if fresh[0].Description != "new task 0" {
		t.Errorf("new task mutated through result")
	}
}

func TestReconcileEmpty(t *testing.T) {
	got := Reconcile([]domain.Task{}, []domain.Task{})
	if got == nil || len(got) != 0 {
		t.Errorf("Reconcile(empty, empty) = %v, want empty slice", got)
	}
}

func TestReconcileIsDeterministic(t *testing.T) {
	prior := makeTasks(4, "old")
	prior[1].Completed = true
	fresh := makeTasks(4, "new")

	a := Reconcile(fresh, prior)
	b := Reconcile(fresh, prior)
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Completed != b[i].Completed || a[i].Description != b[i].Description {
			t.Errorf("results differ at %d", i)
		}
	}
}
