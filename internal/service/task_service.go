package service

import (
	"context"

	"ton_miner/internal/domain"
	"ton_miner/internal/logger"
)

// TaskService serves the task catalog and pays task rewards.
type TaskService struct {
	deps Deps
}

func NewTaskService(d Deps) *TaskService {
	return &TaskService{deps: d.withDefaults()}
}

// ListAvailable returns the catalog minus the tasks the account already completed.
func (s *TaskService) ListAvailable(ctx context.Context, accountID int64) ([]domain.Task, error) {
	acc, err := s.deps.Store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(s.deps.Economy.Tasks))
	for _, t := range s.deps.Economy.Tasks {
		if !acc.CompletedTasks[t.ID] {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// Complete pays the reward once per task. The completed set is guarded in the
// same write, so concurrent completions pay once.
func (s *TaskService) Complete(ctx context.Context, accountID int64, taskID string) (*domain.Task, error) {
	acc, err := s.deps.Store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc.CompletedTasks[taskID] {
		return nil, domain.ErrTaskCompleted
	}
	task, ok := s.deps.Economy.Task(taskID)
	if !ok {
		return nil, domain.ErrUnknownTask
	}

	err = withRetry(ctx, s.deps.Retry, "complete_task", func() error {
		return s.deps.Store.Apply(ctx, domain.AccountMutation{
			AccountID: accountID,
			Mutation: domain.Mutation{
				Diamonds:     task.Reward,
				CompleteTask: task.ID,
				Action:       domain.AuditActionTask,
				Guard:        domain.Guard{TaskNotCompleted: task.ID},
			},
		})
	})
	if err != nil {
		if !isValidationError(err) {
			logger.WithContext(ctx).Error("complete task failed", "account_id", accountID, "task_id", taskID, "error", err)
		}
		return nil, err
	}

	logger.WithContext(ctx).Info("task completed", "account_id", accountID, "task_id", taskID, "reward", task.Reward)
	s.deps.audit(ctx, accountID, domain.AuditActionTask, domain.AuditCategoryEconomy, map[string]interface{}{
		"task_id": task.ID,
		"reward":  task.Reward,
	})
	return &task, nil
}
