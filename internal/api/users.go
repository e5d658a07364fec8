package api

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/model"
	"github.com/erazemk/trgovina/internal/store"
)

// UsersHandler handles user, role and permission endpoints.
type UsersHandler struct {
	DB  *sql.DB
	Log *zap.Logger
}

// List handles GET /api/users/. Platform admins see every live user.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB, GetClaims(r.Context()).Company())
	if err != nil {
		storeError(w, h.Log, err, "list users")
		return
	}
	jsonList(w, users)
}

// Create handles POST /api/users/. Company callers always create users in
// their own company; platform admins pick the company, or create another
// platform admin when company_id is omitted.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := &model.User{
		BranchID: req.BranchID,
		RoleID:   req.RoleID,
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
	}
	switch {
	case claims.Company() != 0:
		if req.IsAdmin && !claims.IsAdmin {
			jsonError(w, http.StatusForbidden, "only company admins can grant admin rights")
			return
		}
		companyID := claims.Company()
		u.CompanyID = &companyID
	case req.CompanyID == nil:
		u.IsPlatformAdmin = true
		u.IsAdmin, u.BranchID, u.RoleID = false, nil, nil
	default:
		company, err := store.GetCompany(r.Context(), h.DB, *req.CompanyID)
		if err != nil {
			storeError(w, h.Log, err, "create user")
			return
		}
		if company == nil {
			notFound(w, "company")
			return
		}
		u.CompanyID = req.CompanyID
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		storeError(w, h.Log, err, "hash password")
		return
	}
	u.PasswordHash = hash

	user, err := store.CreateUser(r.Context(), h.DB, u)
	if err != nil {
		storeError(w, h.Log, err, "create user")
		return
	}

	h.Log.Info("user created", zap.String("user", claims.Username), zap.String("new_user", user.Username),
		zap.Int64p("company", user.CompanyID), zap.Bool("admin", user.IsAdmin))
	recordActivity(r, h.DB, h.Log, store.ActionCreated, "user", user.ID, "Created user %s", user.Username)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}/.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}/.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if user.CompanyID == nil {
		jsonError(w, http.StatusBadRequest, "platform accounts cannot be edited")
		return
	}
	if claims.Company() != 0 && req.IsAdmin != user.IsAdmin && !claims.IsAdmin {
		jsonError(w, http.StatusForbidden, "only company admins can grant admin rights")
		return
	}

	if err := store.UpdateUser(r.Context(), h.DB, *user.CompanyID, user.ID, req); err != nil {
		storeError(w, h.Log, err, "update user")
		return
	}
	updated, err := store.GetUser(r.Context(), h.DB, user.ID)
	if err != nil {
		storeError(w, h.Log, err, "update user")
		return
	}

	h.Log.Info("user updated", zap.String("user", claims.Username), zap.String("target", user.Username))
	recordActivity(r, h.DB, h.Log, store.ActionUpdated, "user", user.ID, "Updated user %s", user.Username)
	jsonResponse(w, http.StatusOK, updated)
}

// ResetPassword handles PUT /api/users/{id}/password/.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	var req model.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		storeError(w, h.Log, err, "hash password")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, hash); err != nil {
		storeError(w, h.Log, err, "reset password")
		return
	}

	h.Log.Info("password reset", zap.String("user", claims.Username), zap.String("target", user.Username))
	message(w, "password reset")
}

// Delete handles DELETE /api/users/{id}/.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	user, ok := h.user(w, r)
	if !ok {
		return
	}
	if user.ID == claims.UserID {
		jsonError(w, http.StatusBadRequest, "your own account cannot be deleted")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, user.ID); err != nil {
		storeError(w, h.Log, err, "delete user")
		return
	}

	h.Log.Info("user deleted", zap.String("user", claims.Username), zap.String("target", user.Username))
	recordActivity(r, h.DB, h.Log, store.ActionDeleted, "user", user.ID, "Deleted user %s", user.Username)
	message(w, "user deleted")
}

// user loads the {id} user visible to the caller, writing a 404 when missing.
func (h *UsersHandler) user(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return nil, false
	}
	user, err := store.GetCompanyUser(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get user")
		return nil, false
	}
	if user == nil {
		notFound(w, "user")
		return nil, false
	}
	return user, true
}

// ListPermissions handles GET /api/permissions/.
func (h *UsersHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	jsonList(w, model.Permissions)
}

// ListRoles handles GET /api/roles/.
func (h *UsersHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := store.ListRoles(r.Context(), h.DB, GetClaims(r.Context()).Company())
	if err != nil {
		storeError(w, h.Log, err, "list roles")
		return
	}
	jsonList(w, roles)
}

// GetRole handles GET /api/roles/{id}/.
func (h *UsersHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, role)
}

// CreateRole handles POST /api/roles/.
func (h *UsersHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req model.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := store.CreateRole(r.Context(), h.DB, GetClaims(r.Context()).Company(), req)
	if err != nil {
		storeError(w, h.Log, err, "create role")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionCreated, "role", role.ID, "Created role %s", role.Name)
	jsonResponse(w, http.StatusCreated, role)
}

// UpdateRole handles PUT /api/roles/{id}/. Users holding the role get the
// new permissions with their next access token.
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	var req model.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := store.UpdateRole(r.Context(), h.DB, role.CompanyID, role.ID, req); err != nil {
		storeError(w, h.Log, err, "update role")
		return
	}
	updated, err := store.GetRole(r.Context(), h.DB, role.CompanyID, role.ID)
	if err != nil {
		storeError(w, h.Log, err, "update role")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionUpdated, "role", role.ID, "Updated role %s", updated.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// DeleteRole handles DELETE /api/roles/{id}/.
func (h *UsersHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	role, ok := h.role(w, r)
	if !ok {
		return
	}
	if err := store.DeleteRole(r.Context(), h.DB, role.CompanyID, role.ID); err != nil {
		storeError(w, h.Log, err, "delete role")
		return
	}
	recordActivity(r, h.DB, h.Log, store.ActionDeleted, "role", role.ID, "Deleted role %s", role.Name)
	message(w, "role deleted")
}

func (h *UsersHandler) role(w http.ResponseWriter, r *http.Request) (*model.Role, bool) {
	id, ok := pathID(w, r, "role")
	if !ok {
		return nil, false
	}
	role, err := store.GetRole(r.Context(), h.DB, GetClaims(r.Context()).Company(), id)
	if err != nil {
		storeError(w, h.Log, err, "get role")
		return nil, false
	}
	if role == nil {
		notFound(w, "role")
		return nil, false
	}
	return role, true
}
