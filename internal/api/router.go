package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with every API route registered.
func NewRouter(app App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), AccessLogMiddleware())
	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "route not found", "")
	})

	api := r.Group("/api")

	// Entry points called by cron jobs and operators. Both verbs are accepted.
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		api.Handle(method, "/deadlines/check", RunDeadlineCheck(app))
		api.Handle(method, "/notices/completion", SendCompletionNotice(app))
		api.Handle(method, "/notices/test", SendTestNotice(app))
	}

	api.POST("/users", RegisterUser(app))
	users := api.Group("/users", ActorMiddleware(app))
	{
		users.GET("", RequireAdmin(), ListUsers(app))
		users.GET("/lookup", LookupUser(app))
	}

	objectives := api.Group("/objectives", ActorMiddleware(app))
	{
		objectives.GET("", ListObjectives(app))
		objectives.POST("", CreateObjective(app))
		objectives.GET("/:id", GetObjective(app))
		objectives.PUT("/:id", UpdateObjective(app))
		objectives.DELETE("/:id", DeleteObjective(app))
		objectives.GET("/:id/progress", ObjectiveProgress(app))
		objectives.POST("/:id/milestones/:index/toggle", ToggleMilestone(app))
		objectives.POST("/:id/comments", AddComment(app))
		objectives.DELETE("/:id/comments", DeleteCommentByValue(app))
		objectives.DELETE("/:id/comments/:commentID", DeleteComment(app))
	}

	return r
}
