package usecase

import (
	"context"
	"log"
	"strings"

	"broadrange-backend/internal/plan/domain"
	"broadrange-backend/pkg/ai"
)

const (
	defaultQuizQuestions = 5
	maxQuizQuestions     = 10
)

// ownedTask loads a task and its plan header and checks ownership.
// Tasks of archived plans are read-only.
func (u *planUsecase) ownedTask(userID, taskID string, forWrite bool) (*domain.Task, *domain.Plan, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, domain.ErrTaskNotFound
	}
	plan, err := u.planRepo.FindHeader(task.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, domain.ErrTaskNotFound
	}
	if plan.UserID != userID {
		return nil, nil, domain.ErrUnauthorized
	}
	if forWrite && plan.Status == domain.PlanStatusArchived {
		return nil, nil, domain.ErrPlanNotActive
	}
	return task, plan, nil
}

func (u *planUsecase) SetTaskCompleted(userID, taskID string, completed bool) (*domain.Task, error) {
	task, _, err := u.ownedTask(userID, taskID, true)
	if err != nil {
		return nil, err
	}
	if task.Completed == completed {
		return task, nil
	}

	task.Completed = completed
	if completed {
		now := u.now()
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *planUsecase) UpdateTaskNotes(userID, taskID, notes string) (*domain.Task, error) {
	task, _, err := u.ownedTask(userID, taskID, true)
	if err != nil {
		return nil, err
	}
	task.Notes = strings.TrimSpace(notes)
	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *planUsecase) AddSubTask(userID, taskID, text string) (*domain.SubTask, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptySubTask
	}
	if _, _, err := u.ownedTask(userID, taskID, true); err != nil {
		return nil, err
	}
	sub := &domain.SubTask{TaskID: taskID, Text: text}
	if err := u.taskRepo.CreateSubTask(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *planUsecase) UpdateSubTask(userID, taskID, subID string, req SubTaskUpdateRequest) (*domain.SubTask, error) {
	if _, _, err := u.ownedTask(userID, taskID, true); err != nil {
		return nil, err
	}
	sub, err := u.taskRepo.FindSubTask(taskID, subID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubTaskNotFound
	}

	if req.Text != nil {
		text := strings.TrimSpace(*req.Text)
		if text == "" {
			return nil, domain.ErrEmptySubTask
		}
		sub.Text = text
	}
	if req.Completed != nil {
		sub.Completed = *req.Completed
	}
	if err := u.taskRepo.UpdateSubTask(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *planUsecase) DeleteSubTask(userID, taskID, subID string) error {
	if _, _, err := u.ownedTask(userID, taskID, true); err != nil {
		return err
	}
	sub, err := u.taskRepo.FindSubTask(taskID, subID)
	if err != nil {
		return err
	}
	if sub == nil {
		return domain.ErrSubTaskNotFound
	}
	return u.taskRepo.DeleteSubTask(taskID, subID)
}

func (u *planUsecase) GenerateQuiz(ctx context.Context, userID, taskID string, questions int) ([]ai.QuizQuestion, error) {
	task, plan, err := u.ownedTask(userID, taskID, false)
	if err != nil {
		return nil, err
	}
	if u.generator == nil {
		return nil, domain.ErrGeneratorMissing
	}

	if questions <= 0 {
		questions = defaultQuizQuestions
	}
	if questions > maxQuizQuestions {
		questions = maxQuizQuestions
	}

	quiz, err := u.generator.GenerateQuiz(ctx, ai.QuizRequest{
		Topic:     task.Description,
		Subject:   plan.Parameters.SubjectList.MentionedIn(task.Description),
		Notes:     task.Notes,
		Questions: questions,
	})
	if err != nil {
		log.Printf("[PlanUsecase] Quiz generation failed for task %s: %v", taskID, err)
		return nil, err
	}
	return quiz, nil
}

func (u *planUsecase) SubmitQuizScore(userID, taskID string, score int) (*domain.Task, error) {
	if score < 0 || score > 100 {
		return nil, domain.ErrInvalidQuizScore
	}
	task, _, err := u.ownedTask(userID, taskID, true)
	if err != nil {
		return nil, err
	}
	task.QuizScore = &score
	task.QuizAttempted = true
	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}
