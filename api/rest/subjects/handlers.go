package subjects

import (
	"net/http"
	"slices"

	"codeberg.org/pyqpapers/portal/api/rest/respond"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"github.com/gin-gonic/gin"
)

type CreateRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Year     string `json:"year" binding:"required"`
	Semester string `json:"semester" binding:"required"`
}

func ListHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.List(c, store.Subjects())
	}
}

func GroupedHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.Data(c, http.StatusOK, store.GroupedSubjects())
	}
}

func FilterHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		year, semester := c.Query("year"), c.Query("semester")
		if year == "" || semester == "" {
			apperrors.BadRequest(c, "year and semester are required", nil)
			return
		}

		respond.List(c, store.SubjectsFor(year, semester))
	}
}

func GetHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := store.Subject(c.Param("id"))
		if err != nil {
			respond.StoreError(c, err, "subject")
			return
		}

		respond.Data(c, http.StatusOK, subject)
	}
}

func CreateHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		if !slices.Contains(subjects.Years, req.Year) || !slices.Contains(subjects.Semesters, req.Semester) {
			apperrors.BadRequest(c, "unknown year or semester", nil)
			return
		}

		subject, err := store.CreateSubject(subjects.CreateRequest(req))
		if err != nil {
			respond.StoreError(c, err, "subject")
			return
		}

		respond.Data(c, http.StatusCreated, subject)
	}
}

func DeleteHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.DeleteSubject(c.Param("id")); err != nil {
			respond.StoreError(c, err, "subject")
			return
		}

		respond.OK(c, "subject deleted")
	}
}
