package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/planbeam/taskboard/api/handler"
)

type Handlers struct {
	Auth   *apiHandler.AuthHandler
	Board  *apiHandler.BoardHandler
	Import *apiHandler.ImportHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", handlers.Auth.Refresh)
	r.POST("/api/v1/auth/logout", authMiddleware(handlers.Auth.Logout))

	// Board reads stay public; viewers browse without a session.
	r.GET("/api/v1/workspaces/{ws}/tasks", handlers.Board.ListTasks)
	r.GET("/api/v1/workspaces/{ws}/activities", handlers.Board.ListActivities)
	r.GET("/api/v1/workspaces/{ws}/tasks/{id}/progress", handlers.Board.GetProgress)
	r.GET("/api/v1/workspaces/{ws}/role", handlers.Auth.GetRole)

	// Mutations require an authenticated caller.
	r.POST("/api/v1/workspaces/{ws}/load", authMiddleware(handlers.Board.LoadWorkspace))
	r.POST("/api/v1/workspaces/{ws}/tasks", authMiddleware(handlers.Board.CreateTask))
	r.PUT("/api/v1/workspaces/{ws}/tasks/{id}", authMiddleware(handlers.Board.UpdateTask))
	r.DELETE("/api/v1/workspaces/{ws}/tasks/{id}", authMiddleware(handlers.Board.DeleteTask))
	r.POST("/api/v1/workspaces/{ws}/reorder", authMiddleware(handlers.Board.Reorder))
	r.PATCH("/api/v1/workspaces/{ws}/tasks/{id}/activities/{aid}/status", authMiddleware(handlers.Board.ChangeActivityStatus))
	r.DELETE("/api/v1/workspaces/{ws}/tasks/{id}/activities/{aid}", authMiddleware(handlers.Board.DeleteActivity))
	r.POST("/api/v1/workspaces/{ws}/undo", authMiddleware(handlers.Board.Undo))
	r.POST("/api/v1/workspaces/{ws}/save", authMiddleware(handlers.Board.SaveAll))
	r.POST("/api/v1/workspaces/{ws}/reconcile", authMiddleware(handlers.Board.Reconcile))
	r.POST("/api/v1/workspaces/{ws}/import", authMiddleware(handlers.Import.Import))
	r.POST("/api/v1/workspaces/{ws}/import/validate", authMiddleware(handlers.Import.Validate))

	return r
}
