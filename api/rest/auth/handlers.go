package auth

import (
	"errors"
	"net/http"

	"codeberg.org/pyqpapers/portal/api/rest/respond"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	apperrors "codeberg.org/pyqpapers/portal/internal/errors"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/pyq/users"
	"github.com/gin-gonic/gin"
)

// RegisterHandler creates a password account and signs it in.
// @Router /api/auth/register [post]
func RegisterHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		user, err := deps.Store.CreateAccount(req.Name, req.Email, req.Password, false)
		if err != nil {
			respond.StoreError(c, err, "user")
			return
		}

		issueSession(c, deps, user, http.StatusCreated)
	}
}

// LoginHandler exchanges email and password for an access token.
// @Router /api/auth/login [post]
func LoginHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		user, err := deps.Store.Authenticate(req.Email, req.Password)
		if err != nil {
			if errors.Is(err, devstore.ErrInvalidCredentials) {
				apperrors.Unauthorized(c, "Invalid credentials")
				return
			}
			apperrors.InternalError(c, "login failed", err)
			return
		}

		issueSession(c, deps, user, http.StatusOK)
	}
}

// GoogleHandler signs in with a Google access token obtained by the client.
// @Router /api/auth/google [post]
func GoogleHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Google == nil {
			c.JSON(http.StatusNotImplemented, apperrors.ErrorResponse{
				Error:   "not_implemented",
				Message: "Google login is not configured",
			})
			return
		}

		var req GoogleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		profile, err := deps.Google.Verify(c.Request.Context(), req.AccessToken)
		if err != nil {
			logger.Warn("google token rejected", "error", err)
			apperrors.Unauthorized(c, "Google authentication failed")
			return
		}

		user, err := deps.Store.FindOrCreateGoogle(profile)
		if err != nil {
			apperrors.InternalError(c, "failed to create user", err)
			return
		}

		issueSession(c, deps, user, http.StatusOK)
	}
}

// signs the access token, sets the refresh cookie and writes the auth response
func issueSession(c *gin.Context, deps Deps, user users.User, status int) {
	if user.Blocked() {
		apperrors.Forbidden(c, "Your account has been blocked")
		return
	}

	acct, err := deps.Store.Account(c.Request.Context(), user.ID)
	if err != nil {
		apperrors.InternalError(c, "failed to load account", err)
		return
	}

	token, err := deps.Issuer.Generate(acct)
	if err != nil {
		apperrors.InternalError(c, "failed to generate token", err)
		return
	}

	if err := deps.Refresh.Issue(c.Writer, c.Request, acct); err != nil {
		// the access token still works; only silent refresh is lost
		logger.ErrorErr(err, "failed to set refresh cookie", "user_id", user.ID)
	}

	c.JSON(status, AuthResponse{Success: true, Token: token, User: user})
}

// RefreshHandler trades the refresh cookie for a new access token.
// @Router /api/auth/refresh [get]
func RefreshHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, version, err := deps.Refresh.Read(c.Request)
		if err != nil {
			apperrors.Unauthorized(c, "no refresh session")
			return
		}

		acct, err := deps.Store.Account(c.Request.Context(), userID)
		if err != nil || acct.TokenVersion != version || acct.Blocked {
			deps.Refresh.Clear(c.Writer, c.Request) //nolint:errcheck,gosec // best effort
			apperrors.Unauthorized(c, "refresh session expired")
			return
		}

		token, err := deps.Issuer.Generate(acct)
		if err != nil {
			apperrors.InternalError(c, "failed to generate token", err)
			return
		}

		c.JSON(http.StatusOK, RefreshResponse{Success: true, AccessToken: token})
	}
}

// GetCurrentUserHandler returns the authenticated user's profile.
// @Router /api/auth/me [get]
// @Security BearerAuth
func GetCurrentUserHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			apperrors.Unauthorized(c, "")
			return
		}

		user, err := deps.Store.User(userID)
		if err != nil {
			apperrors.NotFound(c, "user")
			return
		}

		respond.Data(c, http.StatusOK, user)
	}
}

// UpdateProfileHandler changes the authenticated user's name, email or image.
// @Router /api/auth/profile [put]
// @Security BearerAuth
func UpdateProfileHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			apperrors.Unauthorized(c, "")
			return
		}

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		user, err := deps.Store.UpdateProfile(userID, devstore.ProfileChanges{
			Name:         req.Name,
			Email:        req.Email,
			ProfileImage: req.ProfileImage,
		})
		if err != nil {
			respond.StoreError(c, err, "user")
			return
		}

		respond.Data(c, http.StatusOK, user)
	}
}

// UpdatePasswordHandler changes the password and rotates the access token.
// @Router /api/auth/updatepassword [put]
// @Security BearerAuth
func UpdatePasswordHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := auth.GetUserID(c)
		if !exists {
			apperrors.Unauthorized(c, "")
			return
		}

		var req UpdatePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.ValidationFailed(c, err)
			return
		}

		acct, err := deps.Store.ChangePassword(userID, req.CurrentPassword, req.NewPassword)
		if err != nil {
			if errors.Is(err, devstore.ErrInvalidCredentials) {
				// 400, not 401: the session itself is still valid
				apperrors.BadRequest(c, "Current password is incorrect", nil)
				return
			}
			respond.StoreError(c, err, "user")
			return
		}

		token, err := deps.Issuer.Generate(acct)
		if err != nil {
			apperrors.InternalError(c, "failed to generate token", err)
			return
		}

		if err := deps.Refresh.Issue(c.Writer, c.Request, acct); err != nil {
			logger.ErrorErr(err, "failed to set refresh cookie", "user_id", userID)
		}

		c.JSON(http.StatusOK, TokenResponse{Success: true, Token: token})
	}
}

// LogoutHandler revokes the user's tokens and clears the refresh cookie.
// @Router /api/auth/logout [post]
// @Security BearerAuth
func LogoutHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := auth.GetUserID(c)

		if err := deps.Store.RevokeTokens(userID); err != nil && !errors.Is(err, devstore.ErrNotFound) {
			apperrors.InternalError(c, "logout failed", err)
			return
		}

		if err := deps.Refresh.Clear(c.Writer, c.Request); err != nil {
			logger.ErrorErr(err, "failed to clear refresh cookie", "user_id", userID)
		}

		respond.OK(c, "logged out successfully")
	}
}
