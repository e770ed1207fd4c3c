package repository

import (
	"errors"
	"fmt"
	"time"

	"broadrange-backend/internal/plan/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormPlanRepository implements PlanRepository using GORM
type gormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GORM-based PlanRepository
func NewGormPlanRepository(db *gorm.DB) PlanRepository {
	return &gormPlanRepository{db: db}
}

// Migrate creates or updates the plan tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Plan{}, &domain.Task{}, &domain.SubTask{})
}

func preloadTasks(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Tasks.SubTasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (r *gormPlanRepository) Create(plan *domain.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	prepareTasks(plan)

	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(plan).Error
	})
}

func (r *gormPlanRepository) FindByID(id string) (*domain.Plan, error) {
	var plan domain.Plan
	err := preloadTasks(r.db).Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *gormPlanRepository) FindHeader(id string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *gormPlanRepository) FindByUserID(userID string, status *domain.PlanStatus) ([]*domain.Plan, error) {
	var plans []*domain.Plan
	query := preloadTasks(r.db).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Order("created_at DESC").Find(&plans).Error
	return plans, err
}

func (r *gormPlanRepository) UpdateStatus(plan *domain.Plan, from domain.PlanStatus) error {
	plan.UpdatedAt = time.Now()
	result := r.db.Model(&domain.Plan{}).
		Where("id = ? AND status = ?", plan.ID, from).
		Updates(map[string]interface{}{
			"status":       plan.Status,
			"completed_at": plan.CompletedAt,
			"updated_at":   plan.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: plan %s is no longer %s", domain.ErrInvalidTransition, plan.ID, from)
	}
	return nil
}

func (r *gormPlanRepository) ReplaceTasks(planID string, mutate func(plan *domain.Plan) error) (*domain.Plan, error) {
	var result domain.Plan
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// SELECT ... FOR UPDATE on the plan row
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", planID).First(&result).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPlanNotFound
			}
			return err
		}

		var tasks []domain.Task
		err = tx.Preload("SubTasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).Where("plan_id = ?", planID).Order("position ASC").Find(&tasks).Error
		if err != nil {
			return err
		}
		result.Tasks = tasks

		if err := mutate(&result); err != nil {
			return err
		}

		oldTaskIDs := tx.Model(&domain.Task{}).Select("id").Where("plan_id = ?", planID)
		if err := tx.Where("task_id IN (?)", oldTaskIDs).Delete(&domain.SubTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", planID).Delete(&domain.Task{}).Error; err != nil {
			return err
		}

		prepareTasks(&result)
		if len(result.Tasks) > 0 {
			if err := tx.Create(&result.Tasks).Error; err != nil {
				return err
			}
		}

		result.UpdatedAt = time.Now()
		return tx.Omit(clause.Associations).Save(&result).Error
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *gormPlanRepository) SaveReflection(planID string, reflection datatypes.JSON) error {
	return r.db.Model(&domain.Plan{}).Where("id = ?", planID).
		Updates(map[string]interface{}{
			"reflection": reflection,
			"updated_at": time.Now(),
		}).Error
}

func (r *gormPlanRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&domain.Task{}).Select("id").Where("plan_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&domain.SubTask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", id).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Plan{}, "id = ?", id).Error
	})
}

func (r *gormPlanRepository) FindActive() ([]*domain.Plan, error) {
	var plans []*domain.Plan
	err := preloadTasks(r.db).Where("status = ?", domain.PlanStatusActive).Find(&plans).Error
	return plans, err
}

func (r *gormPlanRepository) MarkMissedNotice(planID, day string) error {
	return r.db.Model(&domain.Plan{}).Where("id = ?", planID).
		Update("last_missed_notice_on", day).Error
}

func (r *gormPlanRepository) QuizStats(userID string) (*QuizStats, error) {
	var stats QuizStats
	err := r.db.Model(&domain.Task{}).
		Select("COUNT(*) AS attempted, COALESCE(AVG(study_tasks.quiz_score), 0) AS average_score").
		Joins("JOIN study_plans ON study_plans.id = study_tasks.plan_id").
		Where("study_plans.user_id = ? AND study_tasks.quiz_attempted = ?", userID, true).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// prepareTasks stamps plan id, position and parent ids on the task list.
func prepareTasks(plan *domain.Plan) {
	for i := range plan.Tasks {
		t := &plan.Tasks[i]
		t.PlanID = plan.ID
		t.Position = i
		for j := range t.SubTasks {
			if t.SubTasks[j].ID == "" {
				t.SubTasks[j].ID = uuid.New().String()
			}
			t.SubTasks[j].TaskID = t.ID
			t.SubTasks[j].Position = j
		}
	}
}

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) FindByID(taskID string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.Preload("SubTasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// Update writes only the columns a user can change. A task removed by a
// concurrent re-plan is reported as not found rather than re-created.
func (r *gormTaskRepository) Update(task *domain.Task) error {
	res := r.db.Model(&domain.Task{}).Where("id = ?", task.ID).
		Select("completed", "completed_at", "notes", "quiz_score", "quiz_attempted").
		Updates(task)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *gormTaskRepository) CreateSubTask(sub *domain.SubTask) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	var count int64
	if err := r.db.Model(&domain.SubTask{}).Where("task_id = ?", sub.TaskID).Count(&count).Error; err != nil {
		return err
	}
	sub.Position = int(count)
	return r.db.Create(sub).Error
}

func (r *gormTaskRepository) FindSubTask(taskID, subID string) (*domain.SubTask, error) {
	var sub domain.SubTask
	err := r.db.Where("task_id = ? AND id = ?", taskID, subID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormTaskRepository) UpdateSubTask(sub *domain.SubTask) error {
	return r.db.Model(&domain.SubTask{}).Where("task_id = ? AND id = ?", sub.TaskID, sub.ID).
		Select("text", "completed").
		Updates(sub).Error
}

func (r *gormTaskRepository) DeleteSubTask(taskID, subID string) error {
	return r.db.Where("task_id = ? AND id = ?", taskID, subID).Delete(&domain.SubTask{}).Error
}
