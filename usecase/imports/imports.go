package imports

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
)

// Record is one row of a bulk import payload. Dates arrive as strings so a
// bad date is reported per row instead of failing the whole decode.
type Record struct {
	ID          string           `json:"id" validate:"omitempty,uuid4"`
	Name        string           `json:"name" validate:"required"`
	Purpose     string           `json:"purpose"`
	Instruction string           `json:"instruction"`
	Output      string           `json:"output"`
	Tags        []string         `json:"tags"`
	Assignees   []string         `json:"assignees"`
	IssueDate   string           `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	Activities  []ActivityRecord `json:"activities" validate:"required,min=1,dive"`
}

type ActivityRecord struct {
	ID        string   `json:"id" validate:"omitempty,uuid4"`
	Name      string   `json:"name" validate:"required"`
	StartDate string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate   string   `json:"due_date" validate:"required,datetime=2006-01-02"`
	Status    string   `json:"status" validate:"omitempty,oneof=pending in-progress completed overdue"`
	Assignees []string `json:"assignees"`
}

// UseCase validates and applies bulk imports onto the board. Imports are
// all-or-nothing: a single invalid row rejects the whole payload.
type UseCase struct {
	store    *board.Store
	history  *board.History
	validate *validator.Validate
	logger   *zap.Logger
}

func New(store *board.Store, history *board.History, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		store:    store,
		history:  history,
		validate: validator.New(),
		logger:   logger,
	}
}

// Validate checks every record and collects row-indexed failures so the
// caller can report them all at once.
func (uc *UseCase) Validate(records []Record) error {
	var result *multierror.Error
	for i := range records {
		if err := uc.validate.Struct(&records[i]); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok {
				for _, ve := range verrs {
					result = multierror.Append(result, fmt.Errorf(
						"row %d: field %q failed rule %q", i+1, ve.StructNamespace(), ve.Tag()))
				}
				continue
			}
			result = multierror.Append(result, fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return domain.WrapError(domain.ErrCodeInvalid, "import validation failed", err)
	}
	return nil
}

// Apply validates the payload, snapshots the board for undo, and upserts
// every record. Returns the number of tasks applied.
func (uc *UseCase) Apply(records []Record) (int, error) {
	if err := uc.Validate(records); err != nil {
		return 0, err
	}

	if uc.history != nil {
		if err := uc.history.Snapshot("bulk import"); err != nil {
			return 0, err
		}
	}

	for i := range records {
		task, err := toTask(&records[i])
		if err != nil {
			return 0, err
		}
		uc.store.Upsert(*task)
	}
	uc.store.Normalize()

	uc.logger.Info("bulk import applied", zap.Int("tasks", len(records)))
	return len(records), nil
}

func toTask(rec *Record) (*domain.Task, error) {
	task := &domain.Task{
		ID:          rec.ID,
		Name:        rec.Name,
		Purpose:     rec.Purpose,
		Instruction: rec.Instruction,
		Output:      rec.Output,
		Tags:        rec.Tags,
		Assignees:   rec.Assignees,
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if rec.IssueDate != "" {
		d, err := domain.ParseDate(rec.IssueDate)
		if err != nil {
			return nil, err
		}
		task.IssueDate = d
	}

	today := domain.Today()
	for i := range rec.Activities {
		ar := &rec.Activities[i]
		act := domain.Activity{
			ID:        ar.ID,
			Name:      ar.Name,
			Status:    domain.StatusPending,
			Assignees: ar.Assignees,
		}
		if act.ID == "" {
			act.ID = uuid.NewString()
		}
		if ar.StartDate != "" {
			d, err := domain.ParseDate(ar.StartDate)
			if err != nil {
				return nil, err
			}
			act.StartDate = d
		}
		due, err := domain.ParseDate(ar.DueDate)
		if err != nil {
			return nil, err
		}
		act.DueDate = due
		if ar.Status != "" {
			act.SetStatus(domain.ActivityStatus(ar.Status), today)
		}
		task.Activities = append(task.Activities, act)
	}
	return task, nil
}
