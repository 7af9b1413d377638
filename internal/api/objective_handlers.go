package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/output"
	"github.com/imparable/imparable/internal/service"
	"github.com/imparable/imparable/internal/validate"
)

type commentRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// commentMatchRequest identifies a comment without an id.
type commentMatchRequest struct {
	Author    string    `json:"author"`
	Text      string    `json:"text" validate:"required"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.NewUserError("Invalid JSON body", err.Error())
	}
	return validate.Struct(req)
}

// ListObjectives returns the caller's objectives. Admins may pass ?owner=<email> or ?all=true.
func ListObjectives(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, _ := strconv.ParseBool(c.Query("all"))
		list, owners, err := app.Objectives().List(c.Request.Context(), actor(c), c.Query("owner"), all)
		if err != nil {
			HandleError(c, err, "list objectives failed")
			return
		}
		resp := output.NewObjectivesResponse(list, owners, app.Now(), app.Location())
		HandleSuccess(c, resp.Objectives, map[string]any{"count": resp.Count})
	}
}

// CreateObjective stores a new objective for the caller, or for ownerEmail when the caller is an admin.
func CreateObjective(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CreateObjectiveRequest
		if err := bindJSON(c, &req); err != nil {
			HandleError(c, err, "invalid objective")
			return
		}
		o, owner, err := app.Objectives().Create(c.Request.Context(), actor(c), req)
		if err != nil {
			HandleError(c, err, "create objective failed")
			return
		}
		HandleCreated(c, output.NewObjectiveOutput(o, owner, app.Now(), app.Location()))
	}
}

// GetObjective returns one objective.
func GetObjective(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, owner, err := app.Objectives().Get(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			HandleError(c, err, "get objective failed")
			return
		}
		HandleSuccess(c, output.NewObjectiveOutput(o, owner, app.Now(), app.Location()), nil)
	}
}

// UpdateObjective edits text, deadline or milestones.
func UpdateObjective(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.UpdateObjectiveRequest
		if err := bindJSON(c, &req); err != nil {
			HandleError(c, err, "invalid objective update")
			return
		}
		res, err := app.Objectives().Update(c.Request.Context(), actor(c), c.Param("id"), req)
		if err != nil {
			HandleError(c, err, "update objective failed")
			return
		}
		editResponse(c, app, res)
	}
}

// DeleteObjective removes an objective.
func DeleteObjective(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := app.Objectives().Delete(c.Request.Context(), actor(c), id); err != nil {
			HandleError(c, err, "delete objective failed")
			return
		}
		HandleSuccess(c, gin.H{"id": id}, nil)
	}
}

// ToggleMilestone flips the milestone at :index.
func ToggleMilestone(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			HandleError(c, errors.NewUserErrorWithField("index", c.Param("index"),
				"Invalid milestone index", "Use the milestone's position, starting at 0"), "invalid milestone index")
			return
		}
		res, err := app.Objectives().ToggleMilestone(c.Request.Context(), actor(c), c.Param("id"), index)
		if err != nil {
			HandleError(c, err, "toggle milestone failed")
			return
		}
		editResponse(c, app, res)
	}
}

func editResponse(c *gin.Context, app App, res *service.EditResult) {
	meta := map[string]any{"completionNoticeSent": res.NoticeSent}
	if res.NoticeErr != nil {
		meta["completionNoticeError"] = res.NoticeErr.Error()
	}
	HandleSuccess(c, output.NewObjectiveOutput(res.Objective, res.Owner, app.Now(), app.Location()), meta)
}

// AddComment appends a comment signed with the caller's email.
func AddComment(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req commentRequest
		if err := bindJSON(c, &req); err != nil {
			HandleError(c, err, "invalid comment")
			return
		}
		comment, err := app.Objectives().AddComment(c.Request.Context(), actor(c), c.Param("id"), "", req.Text)
		if err != nil {
			HandleError(c, err, "add comment failed")
			return
		}
		HandleCreated(c, comment)
	}
}

// DeleteComment removes a comment.
func DeleteComment(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("commentID")
		if err := app.Objectives().DeleteComment(c.Request.Context(), actor(c), c.Param("id"), model.Comment{ID: id}); err != nil {
			HandleError(c, err, "delete comment failed")
			return
		}
		HandleSuccess(c, gin.H{"id": id}, nil)
	}
}

// DeleteCommentByValue removes a comment that has no id, matched by author,
// text and created_at from the JSON body.
func DeleteCommentByValue(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req commentMatchRequest
		if err := bindJSON(c, &req); err != nil {
			HandleError(c, err, "invalid comment match")
			return
		}
		target := model.Comment{Author: req.Author, Text: req.Text, CreatedAt: req.CreatedAt}
		if err := app.Objectives().DeleteComment(c.Request.Context(), actor(c), c.Param("id"), target); err != nil {
			HandleError(c, err, "delete comment failed")
			return
		}
		HandleSuccess(c, target, nil)
	}
}

// ObjectiveProgress returns milestone completion and time usage.
func ObjectiveProgress(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := app.Objectives().Progress(c.Request.Context(), actor(c), c.Param("id"))
		if err != nil {
			HandleError(c, err, "objective progress failed")
			return
		}
		HandleSuccess(c, p, nil)
	}
}
