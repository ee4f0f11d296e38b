package users

import (
	"net/http"

	"codeberg.org/pyqpapers/portal/api/rest/respond"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/pyq/users"
	"github.com/gin-gonic/gin"
)

func ListHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.List(c, store.Users())
	}
}

func StatsHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		respond.Data(c, http.StatusOK, store.UserStats())
	}
}

func GetHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := store.User(c.Param("id"))
		if err != nil {
			respond.StoreError(c, err, "user")
			return
		}

		respond.Data(c, http.StatusOK, user)
	}
}

// changes role, status or name; admins cannot demote or block themselves
func UpdateHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req UpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		self, _ := auth.GetUserID(c)
		if id == self && ((req.IsAdmin != nil && !*req.IsAdmin) || (req.Status != nil && *req.Status == users.StatusBlocked)) {
			apperrors.BadRequest(c, "you cannot remove your own access", nil)
			return
		}

		var (
			user users.User
			err  error
		)

		if _, err = store.User(id); err != nil {
			respond.StoreError(c, err, "user")
			return
		}

		if req.IsAdmin != nil {
			user, err = store.SetRole(id, *req.IsAdmin)
		}
		if err == nil && req.Status != nil {
			user, err = store.SetStatus(id, *req.Status)
		}
		if err == nil && req.Name != nil {
			user, err = store.UpdateProfile(id, devstore.ProfileChanges{Name: req.Name})
		}
		if err == nil && req.IsAdmin == nil && req.Status == nil && req.Name == nil {
			user, err = store.User(id)
		}

		if err != nil {
			respond.StoreError(c, err, "user")
			return
		}

		respond.Data(c, http.StatusOK, user)
	}
}

func DeleteHandler(store *devstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		if self, _ := auth.GetUserID(c); id == self {
			apperrors.BadRequest(c, "you cannot delete your own account", nil)
			return
		}

		if err := store.DeleteUser(id); err != nil {
			respond.StoreError(c, err, "user")
			return
		}

		respond.OK(c, "user deleted")
	}
}
