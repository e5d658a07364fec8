package api

import (
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trgovina/internal/auth"
	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB     *sql.DB
	Log    *zap.Logger
	Issuer *auth.Issuer
}

// Login handles POST /api/auth/login/.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := store.GetUserByUsername(r.Context(), h.DB, req.Username)
	if err != nil {
		storeError(w, h.Log, err, "log in")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.Log.Warn("login failed", zap.String("username", req.Username), zap.String("remote", clientIP(r)))
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !h.companyActive(w, r, user.CompanyID) {
		return
	}

	pair, ok := h.issue(w, r, user.ID)
	if !ok {
		return
	}

	h.Log.Info("user logged in", zap.String("user", user.Username), zap.Int64p("company", user.CompanyID))
	jsonResponse(w, http.StatusOK, pair)
}

// Refresh handles POST /api/auth/refresh/. The presented refresh token is
// revoked and a new pair is issued; a token can be exchanged only once.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims, err := h.Issuer.Validate(req.Refresh, auth.TypeRefresh)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	fresh, err := store.RevokeTokenOnce(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		storeError(w, h.Log, err, "refresh token")
		return
	}
	if !fresh {
		h.Log.Warn("refresh token reused", zap.String("user", claims.Username))
		jsonError(w, http.StatusUnauthorized, "refresh token has been revoked")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, h.Log, err, "refresh token")
		return
	}
	if user == nil || user.DeletedAt != nil {
		jsonError(w, http.StatusUnauthorized, "user no longer exists")
		return
	}
	if !h.companyActive(w, r, user.CompanyID) {
		return
	}

	pair, ok := h.issue(w, r, user.ID)
	if !ok {
		return
	}
	pair.User = nil
	jsonResponse(w, http.StatusOK, pair)
}

// Logout handles POST /api/auth/logout/. It revokes the refresh token from
// the body and the access token from the Authorization header when they
// are valid, and always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if claims, err := h.Issuer.Validate(req.Refresh, auth.TypeRefresh); err == nil {
		if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			h.Log.Error("revoking refresh token", zap.Error(err))
		}
	}

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		claims, err := h.Issuer.Validate(strings.TrimPrefix(header, "Bearer "), auth.TypeAccess)
		if err == nil {
			if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
				h.Log.Error("revoking access token", zap.Error(err))
			}
		}
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me/.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	me, err := store.GetMe(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, h.Log, err, "get current user")
		return
	}
	if me == nil {
		notFound(w, "user")
		return
	}
	jsonResponse(w, http.StatusOK, me)
}

// ChangePassword handles PUT /api/auth/password/.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, h.Log, err, "change password")
		return
	}
	if user == nil || user.DeletedAt != nil {
		notFound(w, "user")
		return
	}

	// 400 rather than 401 so clients do not treat it as an expired session.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		storeError(w, h.Log, err, "hash password")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, claims.UserID, hash); err != nil {
		storeError(w, h.Log, err, "update password")
		return
	}

	h.Log.Info("user changed own password", zap.String("user", claims.Username))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// companyActive rejects users whose company is deleted or suspended.
func (h *AuthHandler) companyActive(w http.ResponseWriter, r *http.Request, companyID *int64) bool {
	if companyID == nil {
		return true
	}
	c, err := store.GetCompany(r.Context(), h.DB, *companyID)
	if err != nil {
		storeError(w, h.Log, err, "log in")
		return false
	}
	if c == nil || c.Status == model.CompanyStatusSuspended {
		jsonError(w, http.StatusForbidden, "company account is suspended")
		return false
	}
	return true
}

// issue signs a fresh token pair for the user's current permissions.
func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, userID int64) (*model.TokenPair, bool) {
	me, err := store.GetMe(r.Context(), h.DB, userID)
	if err != nil {
		storeError(w, h.Log, err, "issue token")
		return nil, false
	}
	if me == nil {
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return nil, false
	}

	access, err := h.Issuer.Access(me)
	if err != nil {
		storeError(w, h.Log, err, "issue token")
		return nil, false
	}
	refresh, _, err := h.Issuer.Refresh(me.ID, me.Username)
	if err != nil {
		storeError(w, h.Log, err, "issue token")
		return nil, false
	}
	return &model.TokenPair{Access: access, Refresh: refresh, User: me}, true
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
