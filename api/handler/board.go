package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/api/transport"
	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/pkg/httpcontext"
	authUC "github.com/planbeam/taskboard/usecase/auth"
	syncUC "github.com/planbeam/taskboard/usecase/sync"
)

type BoardHandler struct {
	baseHandler
	store   *board.Store
	history *board.History
	sync    *syncUC.Coordinator
	auth    *authUC.UseCase
}

func NewBoardHandler(store *board.Store, history *board.History, sync *syncUC.Coordinator, auth *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		store:       store,
		history:     history,
		sync:        sync,
		auth:        auth,
	}
}

// taskView decorates a task with presentation fields derived from its
// position and schedule.
type taskView struct {
	domain.Task
	Color    string         `json:"color"`
	Progress board.Progress `json:"progress"`
}

// @Summary List tasks
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks [get]
func (h *BoardHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	mode := board.ParseFilterMode(string(ctx.QueryArgs().Peek("mode")))
	search := string(ctx.QueryArgs().Peek("search"))
	today := domain.Today()

	h.store.RefreshStatuses(today)
	tasks := board.FilteredTasks(h.store.Tasks(), mode, search)
	active := h.store.ActiveCount()

	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, taskView{
			Task:     t,
			Color:    board.PriorityColor(t.Priority, active),
			Progress: board.TaskProgress(t, today),
		})
	}
	h.respondSuccess(ctx, http.StatusOK, views)
}

// @Summary List activities across tasks
// @Tags board
// @Router /api/v1/workspaces/{ws}/activities [get]
func (h *BoardHandler) ListActivities(ctx *fasthttp.RequestCtx) {
	mode := board.ParseFilterMode(string(ctx.QueryArgs().Peek("mode")))
	search := string(ctx.QueryArgs().Peek("search"))
	assignees := splitCSV(string(ctx.QueryArgs().Peek("assignees")))

	h.store.RefreshStatuses(domain.Today())
	activities := board.FilteredActivities(h.store.Tasks(), mode, search, assignees)
	h.respondSuccess(ctx, http.StatusOK, activities)
}

// @Summary Task schedule progress
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks/{id}/progress [get]
func (h *BoardHandler) GetProgress(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	task, err := h.store.Get(id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"progress": board.TaskProgress(task, domain.Today()),
		"upcoming": board.UpcomingActivities(task, 3),
	})
}

// @Summary Load workspace records into the board
// @Tags board
// @Router /api/v1/workspaces/{ws}/load [post]
func (h *BoardHandler) LoadWorkspace(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess := h.session(ctx)
	if err := h.sync.LoadWorkspace(stdCtx, sess, h.workspaceID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"tasks": h.store.Len()})
}

// @Summary Create task
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks [post]
func (h *BoardHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	task, ok := h.parseTask(ctx)
	if !ok {
		return
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	if err := h.history.Snapshot("create task"); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.store.Upsert(*task)
	h.store.Normalize()

	h.saveOne(ctx, task.ID)
	h.respondSuccess(ctx, http.StatusCreated, task)
}

// @Summary Update task
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks/{id} [put]
func (h *BoardHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	task, ok := h.parseTask(ctx)
	if !ok {
		return
	}
	if task.ID == "" {
		task.ID, _ = ctx.UserValue("id").(string)
	}

	existing, err := h.store.Get(task.ID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	// Position is owned by reorder, not by edits.
	task.Priority = existing.Priority

	if err := h.history.Snapshot("update task"); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.store.Upsert(*task)
	h.store.Normalize()

	h.saveOne(ctx, task.ID)
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Delete task
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks/{id} [delete]
func (h *BoardHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("missing task id"))
		return
	}

	if err := h.history.Snapshot("delete task"); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.store.Remove(id); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	if err := h.sync.DeleteOne(stdCtx, h.session(ctx), h.workspaceID(ctx), id); err != nil {
		h.logger.Warn("remote delete failed", zap.String("task_id", id), zap.Error(err))
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Reorder tasks by drag and drop
// @Tags board
// @Router /api/v1/workspaces/{ws}/reorder [post]
func (h *BoardHandler) Reorder(ctx *fasthttp.RequestCtx) {
	var req transport.ReorderRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.DraggedID == "" || req.TargetID == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("invalid payload"))
		return
	}

	if err := h.history.Snapshot("reorder"); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.store.Reorder(req.DraggedID, req.TargetID); err != nil {
		h.respondError(ctx, err)
		return
	}

	h.saveAll(ctx)
	h.respondSuccess(ctx, http.StatusOK, h.store.Tasks())
}

// @Summary Change activity status
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks/{id}/activities/{aid}/status [patch]
func (h *BoardHandler) ChangeActivityStatus(ctx *fasthttp.RequestCtx) {
	taskID, _ := ctx.UserValue("id").(string)
	activityID, _ := ctx.UserValue("aid").(string)

	var req transport.StatusChangeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || !domain.ActivityStatus(req.Status).Valid() {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("invalid status"))
		return
	}
	status := domain.ActivityStatus(req.Status)

	task, err := h.store.Get(taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	activity, err := task.Activity(activityID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.history.Snapshot("activity status"); err != nil {
		h.respondError(ctx, err)
		return
	}
	activity.SetStatus(status, domain.Today())
	h.store.Upsert(task)
	h.store.Normalize()

	h.saveOne(ctx, taskID)
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Remove an activity from a task
// @Tags board
// @Router /api/v1/workspaces/{ws}/tasks/{id}/activities/{aid} [delete]
func (h *BoardHandler) DeleteActivity(ctx *fasthttp.RequestCtx) {
	taskID, _ := ctx.UserValue("id").(string)
	activityID, _ := ctx.UserValue("aid").(string)

	task, err := h.store.Get(taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := board.EnsureActivityRemovable(task); err != nil {
		h.respondError(ctx, err)
		return
	}
	if _, err := task.Activity(activityID); err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.history.Snapshot("delete activity"); err != nil {
		h.respondError(ctx, err)
		return
	}
	kept := task.Activities[:0]
	for _, act := range task.Activities {
		if act.ID != activityID {
			kept = append(kept, act)
		}
	}
	task.Activities = kept
	h.store.Upsert(task)
	h.store.Normalize()

	h.saveOne(ctx, taskID)
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Undo the last board mutation
// @Tags board
// @Router /api/v1/workspaces/{ws}/undo [post]
func (h *BoardHandler) Undo(ctx *fasthttp.RequestCtx) {
	snap, err := h.history.Undo()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.saveAll(ctx)
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"label": snap.Label,
		"tasks": h.store.Tasks(),
	})
}

// @Summary Save every task to the remote store
// @Tags board
// @Router /api/v1/workspaces/{ws}/save [post]
func (h *BoardHandler) SaveAll(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks := h.store.Tasks()
	if err := h.sync.SaveAllBulk(stdCtx, h.session(ctx), h.workspaceID(ctx), tasks); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"saved": len(tasks)})
}

// @Summary Push the board to the remote store
// @Tags board
// @Router /api/v1/workspaces/{ws}/reconcile [post]
func (h *BoardHandler) Reconcile(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.sync.Reconcile(stdCtx, h.session(ctx), h.workspaceID(ctx))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

func (h *BoardHandler) parseTask(ctx *fasthttp.RequestCtx) (*domain.Task, bool) {
	var req transport.TaskRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Name == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("invalid payload"))
		return nil, false
	}
	if len(req.Activities) == 0 {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("a task needs at least one activity"))
		return nil, false
	}

	task := &domain.Task{
		ID:          req.ID,
		Name:        req.Name,
		Purpose:     req.Purpose,
		Instruction: req.Instruction,
		Output:      req.Output,
		Tags:        req.Tags,
		Assignees:   req.Assignees,
	}
	if req.IssueDate != "" {
		d, err := domain.ParseDate(req.IssueDate)
		if err != nil {
			h.respondError(ctx, err)
			return nil, false
		}
		task.IssueDate = d
	}

	today := domain.Today()
	for _, ar := range req.Activities {
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
				h.respondError(ctx, err)
				return nil, false
			}
			act.StartDate = d
		}
		if ar.DueDate != "" {
			d, err := domain.ParseDate(ar.DueDate)
			if err != nil {
				h.respondError(ctx, err)
				return nil, false
			}
			act.DueDate = d
		}
		if ar.Status != "" && domain.ActivityStatus(ar.Status).Valid() {
			act.SetStatus(domain.ActivityStatus(ar.Status), today)
		}
		task.Activities = append(task.Activities, act)
	}
	return task, true
}

// session resolves the caller's session from the middleware header. A
// missing or expired session yields nil; sync writes treat that as a local
// only edit.
func (h *BoardHandler) session(ctx *fasthttp.RequestCtx) *domain.Session {
	sessionID := string(ctx.Request.Header.Peek("X-Session-ID"))
	if sessionID == "" {
		return nil
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sess, err := h.auth.GetSession(stdCtx, sessionID)
	if err != nil {
		return nil
	}
	return sess
}

func (h *BoardHandler) workspaceID(ctx *fasthttp.RequestCtx) string {
	ws, _ := ctx.UserValue("ws").(string)
	return ws
}

func (h *BoardHandler) saveOne(ctx *fasthttp.RequestCtx, taskID string) {
	task, err := h.store.Get(taskID)
	if err != nil {
		return
	}
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	if err := h.sync.SaveOne(stdCtx, h.session(ctx), h.workspaceID(ctx), &task); err != nil {
		h.logger.Warn("remote save failed", zap.String("task_id", taskID), zap.Error(err))
	}
}

func (h *BoardHandler) saveAll(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()
	if err := h.sync.SaveAllBulk(stdCtx, h.session(ctx), h.workspaceID(ctx), h.store.Tasks()); err != nil {
		h.logger.Warn("remote bulk save failed", zap.Error(err))
	}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
