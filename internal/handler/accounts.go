package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/service"
)

type registerRequest struct {
	FirstName   string `json:"first_name" validate:"max=150"`
	LastName    string `json:"last_name" validate:"max=150"`
	PhoneNumber string `json:"phone_number" validate:"required_without=Email,omitempty,uzphone"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,password"`
}

// Register сохраняет регистрацию и отправляет код подтверждения.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.accounts.Register(r.Context(), service.Registration{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		h.fail(w, err, "register user")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"detail": "verification code sent"})
}

type verifyCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// VerifyCode подтверждает регистрацию и выдаёт токены.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.accounts.VerifyCode(r.Context(), req.Code)
	if err != nil {
		h.fail(w, err, "verify code")
		return
	}

	h.issueTokens(w, u.ID, u.IsAdmin, http.StatusCreated)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Login выполняет аутентификацию пользователя по телефону или почте.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.accounts.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.fail(w, err, "login user")
		return
	}

	h.issueTokens(w, u.ID, u.IsAdmin, http.StatusOK)
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// RefreshToken выдаёт новую пару токенов по токену обновления.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	claims, err := h.authMiddleware.ParseRefresh(req.Refresh)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	// Права берутся из базы: пользователь мог быть удалён или лишён прав администратора.
	u, err := h.accounts.GetUser(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	h.issueTokens(w, u.ID, u.IsAdmin, http.StatusOK)
}

func (h *Handler) issueTokens(w http.ResponseWriter, userID int64, isAdmin bool, status int) {
	pair, err := h.authMiddleware.IssueTokens(userID, isAdmin)
	if err != nil {
		h.logger.Error("issue tokens error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, pair)
}

// ListUsers возвращает всех пользователей.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	users, err := h.accounts.ListUsers(r.Context(), a)
	if err != nil {
		h.fail(w, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser возвращает профиль. Чужой профиль доступен только администратору.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if a.UserID != id && !a.IsAdmin {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	u, err := h.accounts.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get user", zap.Int64("userID", id))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	u, err := h.accounts.GetUser(r.Context(), a.UserID)
	if err != nil {
		h.fail(w, err, "get current user", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

// UpdateUser обновляет профиль пользователя.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.accounts.UpdateProfile(r.Context(), a, id, service.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
	})
	if err != nil {
		h.fail(w, err, "update user", zap.Int64("userID", id))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ChangePassword меняет пароль пользователя.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), a, id, req.OldPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		h.fail(w, err, "change password", zap.Int64("userID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteUser удаляет пользователя.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteUser(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete user", zap.Int64("userID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
