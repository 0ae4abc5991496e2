package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskboard/taskboard-be/internal/models"
)

// TaskCreate carries the fields for a new task. Status and Priority fall back
// to their defaults when left empty.
type TaskCreate struct {
	Title       string
	Description *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
}

// TaskUpdate carries a partial update; nil fields keep their prior value.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
}

// TaskServiceProvider defines the interface for task services. Every
// operation is scoped to the owning user; tasks owned by someone else are
// indistinguishable from tasks that do not exist.
type TaskServiceProvider interface {
	ListTasks(ownerID int64, skip, limit int) ([]models.Task, error)
	CreateTask(ownerID int64, in TaskCreate) (models.Task, error)
	GetTask(ownerID, taskID int64) (models.Task, error)
	UpdateTask(ownerID, taskID int64, in TaskUpdate) (models.Task, error)
	DeleteTask(ownerID, taskID int64) error
}

// TaskService provides business logic for task management.
type TaskService struct {
	db *sql.DB
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// scanTask is a helper to scan a task from a row or rows object.
func scanTask(scanner interface{ Scan(...interface{}) error }) (models.Task, error) {
	var task models.Task
	var desc sql.NullString

	err := scanner.Scan(
		&task.ID, &task.Title, &desc, &task.Status, &task.Priority,
		&task.UserID, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return task, err
	}

	if desc.Valid {
		task.Description = &desc.String
	}
	return task, nil
}

// ListTasks retrieves the owner's tasks in insertion order, paginated.
func (s *TaskService) ListTasks(ownerID int64, skip, limit int) ([]models.Task, error) {
	const query = `
		SELECT id, title, description, status, priority, user_id, created_at, updated_at
		FROM tasks WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, ownerID, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CreateTask adds a new task owned by ownerID and persists it immediately.
func (s *TaskService) CreateTask(ownerID int64, in TaskCreate) (models.Task, error) {
	if in.Status == "" {
		in.Status = models.StatusNotStarted
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO tasks(title, description, status, priority, user_id, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.Status, in.Priority, ownerID, now, now,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, err
	}

	return models.Task{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// GetTask retrieves a single task by ID, scoped to its owner.
func (s *TaskService) GetTask(ownerID, taskID int64) (models.Task, error) {
	const query = `
		SELECT id, title, description, status, priority, user_id, created_at, updated_at
		FROM tasks WHERE id = ? AND user_id = ?`
	row := s.db.QueryRow(query, taskID, ownerID)

	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update to an owned task. Only supplied fields
// change; the updated_at timestamp is always refreshed.
func (s *TaskService) UpdateTask(ownerID, taskID int64, in TaskUpdate) (models.Task, error) {
	task, err := s.GetTask(ownerID, taskID)
	if err != nil {
		return models.Task{}, err
	}

	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = in.Description
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	task.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, task.Status, task.Priority, task.UpdatedAt,
		taskID, ownerID,
	)
	if err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// DeleteTask removes an owned task. Deleting a task that does not exist or
// belongs to someone else fails with ErrNotFound rather than a silent no-op.
func (s *TaskService) DeleteTask(ownerID, taskID int64) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", taskID, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
