package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/planbeam/taskboard/api/transport"
	"github.com/planbeam/taskboard/board"
	"github.com/planbeam/taskboard/domain"
	"github.com/planbeam/taskboard/pkg/httpcontext"
	authUC "github.com/planbeam/taskboard/usecase/auth"
	importsUC "github.com/planbeam/taskboard/usecase/imports"
	syncUC "github.com/planbeam/taskboard/usecase/sync"
)

type ImportHandler struct {
	baseHandler
	uc    *importsUC.UseCase
	store *board.Store
	sync  *syncUC.Coordinator
	auth  *authUC.UseCase
}

func NewImportHandler(uc *importsUC.UseCase, store *board.Store, sync *syncUC.Coordinator, auth *authUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
		store:       store,
		sync:        sync,
		auth:        auth,
	}
}

// @Summary Bulk import tasks
// @Tags imports
// @Router /api/v1/workspaces/{ws}/import [post]
func (h *ImportHandler) Import(ctx *fasthttp.RequestCtx) {
	var req transport.ImportRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || len(req.Records) == 0 {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("invalid payload"))
		return
	}

	applied, err := h.uc.Apply(req.Records)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	sessionID := string(ctx.Request.Header.Peek("X-Session-ID"))
	var sess *domain.Session
	if sessionID != "" {
		if s, sErr := h.auth.GetSession(stdCtx, sessionID); sErr == nil {
			sess = s
		}
	}
	ws, _ := ctx.UserValue("ws").(string)
	if err := h.sync.SaveAllBulk(stdCtx, sess, ws, h.store.Tasks()); err != nil {
		h.logger.Warn("remote bulk save failed after import", zap.Error(err))
	}

	h.respondSuccess(ctx, http.StatusCreated, map[string]int{"imported": applied})
}

// @Summary Validate a bulk import payload without applying it
// @Tags imports
// @Router /api/v1/workspaces/{ws}/import/validate [post]
func (h *ImportHandler) Validate(ctx *fasthttp.RequestCtx) {
	var req transport.ImportRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.Invalid("invalid payload"))
		return
	}

	if err := h.uc.Validate(req.Records); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"records": len(req.Records)})
}
