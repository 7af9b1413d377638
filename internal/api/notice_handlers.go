package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/model"
	"github.com/imparable/imparable/internal/validate"
)

type completionRequest struct {
	Email     string `form:"email" json:"email" validate:"required,email"`
	Objective string `form:"objective" json:"objective" validate:"required,max=280"`
}

type testNoticeRequest struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Category string `form:"category" json:"category" validate:"required"`
}

// bindParams fills req from the query string and, for POST requests with a
// JSON body, from the body. Body fields win.
func bindParams(c *gin.Context, req any) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return errors.NewUserError("Invalid query parameters", err.Error())
	}
	if c.Request.Method == http.MethodPost && c.ContentType() == gin.MIMEJSON && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			return errors.NewUserError("Invalid JSON body", err.Error())
		}
	}
	return validate.Struct(req)
}

// RunDeadlineCheck runs one deadline check and answers with its report.
func RunDeadlineCheck(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		report, err := app.Checker().Check(c.Request.Context())
		app.RecordRun(report, time.Since(start))
		if err != nil {
			HandleError(c, err, "deadline check failed")
			return
		}

		logging.InfoContext(c.Request.Context(), "deadline check served",
			"emails_sent", report.EmailsSent, logging.KeyCount, report.TotalObjectives)
		c.JSON(http.StatusOK, report)
	}
}

// SendCompletionNotice emails the completion notice for an objective name.
func SendCompletionNotice(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req completionRequest
		if err := bindParams(c, &req); err != nil {
			HandleError(c, err, "invalid completion notice request")
			return
		}

		id, err := app.Notifier().SendCompletionNotice(c.Request.Context(), req.Email, req.Objective)
		if err != nil {
			HandleError(c, err, "completion notice failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    "Completion notice sent to " + req.Email,
			"deliveryId": id,
		})
	}
}

// SendTestNotice emails a sample of any category.
func SendTestNotice(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req testNoticeRequest
		if err := bindParams(c, &req); err != nil {
			HandleError(c, err, "invalid test notice request")
			return
		}
		category, ok := model.ParseCategory(req.Category)
		if !ok {
			HandleError(c, errors.NewUserErrorWithField("category", req.Category,
				"Unknown email category", "Use one of: DueToday, DueTomorrow, ThreeDayReminder, OverdueWeekly, Completed"),
				"invalid test notice request")
			return
		}

		id, err := app.Notifier().SendTestNotice(c.Request.Context(), req.Email, category)
		if err != nil {
			HandleError(c, err, "test notice failed")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    "Test email sent to " + req.Email,
			"deliveryId": id,
		})
	}
}
