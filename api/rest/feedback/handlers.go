package feedback

import (
	"net/http"
	"strings"

	"codeberg.org/pyqpapers/portal/api/rest/respond"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"github.com/gin-gonic/gin"
)

type SubmitRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=5000"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	PaperID string `json:"paperId"`
}

type StatusRequest struct {
	Status   string `json:"status" binding:"required,oneof=pending in_progress resolved"`
	Response string `json:"response" binding:"max=5000"`
}

func SubmitHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := auth.GetUserID(c)

		var req SubmitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		fb, err := store.SubmitFeedback(userID, feedback.Submission{
			Subject: strings.TrimSpace(req.Subject),
			Message: strings.TrimSpace(req.Message),
			Rating:  req.Rating,
			PaperID: req.PaperID,
		})
		if err != nil {
			respond.StoreError(c, err, "paper")
			return
		}

		respond.Data(c, http.StatusCreated, fb)
	}
}

func MineHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := auth.GetUserID(c)
		respond.List(c, store.FeedbackBy(userID))
	}
}

func PaperHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.List(c, store.FeedbackFor(c.Param("id")))
	}
}

func ListHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.List(c, store.Feedback())
	}
}

func UpdateStatusHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		fb, err := store.SetFeedbackStatus(c.Param("id"), req.Status, strings.TrimSpace(req.Response))
		if err != nil {
			respond.StoreError(c, err, "feedback")
			return
		}

		respond.Data(c, http.StatusOK, fb)
	}
}

func DeleteHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.DeleteFeedback(c.Param("id")); err != nil {
			respond.StoreError(c, err, "feedback")
			return
		}

		respond.OK(c, "feedback deleted")
	}
}
