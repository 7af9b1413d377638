package api

import (
	"github.com/gin-gonic/gin"

	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/service"
)

// RegisterUser creates a user. Creating an admin needs an admin caller.
func RegisterUser(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterUserRequest
		if err := bindJSON(c, &req); err != nil {
			HandleError(c, err, "invalid user")
			return
		}

		var caller *model.User
		if req.Role == string(model.RoleAdmin) {
			caller = optionalActor(c, app)
			if caller == nil {
				caller = &model.User{Role: model.RoleUser}
			}
		}
		u, err := app.Users().Register(c.Request.Context(), caller, req)
		if err != nil {
			HandleError(c, err, "register user failed")
			return
		}
		HandleCreated(c, u)
	}
}

// ListUsers returns every user. Admin only.
func ListUsers(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := app.Users().List(c.Request.Context(), actor(c))
		if err != nil {
			HandleError(c, err, "list users failed")
			return
		}
		HandleSuccess(c, users, map[string]any{"count": len(users)})
	}
}

// LookupUser resolves ?email= to a user id.
func LookupUser(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Query("email")
		u, err := app.Users().Lookup(c.Request.Context(), email)
		if err != nil {
			HandleError(c, err, "lookup user failed")
			return
		}
		HandleSuccess(c, gin.H{"id": u.ID, "email": u.Email}, nil)
	}
}

// optionalActor resolves X-User-ID when present. Unknown ids count as anonymous.
func optionalActor(c *gin.Context, app App) *model.User {
	id := c.GetHeader(HeaderUserID)
	if id == "" {
		return nil
	}
	u, err := app.Store().GetUser(c.Request.Context(), id)
	if err != nil {
		return nil
	}
	return u
}
