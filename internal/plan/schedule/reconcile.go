package schedule

import "broadrange-backend/internal/plan/domain"

// Reconcile merges a regenerated schedule with the tasks it replaces.
//
// When both lists have the same length they are matched by position: the
// content (date, description, search queries) comes from newTasks and the
// progress (id, completion, sub-tasks, quiz state) from priorTasks. When the
// lengths differ there is no correspondence, so newTasks are returned as-is
// and all prior progress is discarded.
//
// The output never shares backing arrays with either input.
func Reconcile(newTasks, priorTasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(newTasks))
	if len(newTasks) != len(priorTasks) {
		for i := range newTasks {
			out[i] = newTasks[i].Clone()
		}
		return out
	}

	for i := range newTasks {
		merged := newTasks[i].Clone()
		prior := priorTasks[i].Clone()

		merged.ID = prior.ID
		merged.Completed = prior.Completed
		merged.CompletedAt = prior.CompletedAt
		merged.SubTasks = prior.SubTasks
		merged.QuizScore = prior.QuizScore
		merged.QuizAttempted = prior.QuizAttempted
		if merged.SubTasks == nil {
			merged.SubTasks = []domain.SubTask{}
		}

		out[i] = merged
	}
	return out
}
