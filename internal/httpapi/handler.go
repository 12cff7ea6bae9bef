package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"contractauth/auth-service/internal/auth"
	"contractauth/auth-service/internal/models"
	"contractauth/auth-service/internal/store"
)

// AuthService is the slice of the auth service the handlers need.
type AuthService interface {
	CreateContract(ctx context.Context, appName string) (models.Contract, error)
	DeleteContract(ctx context.Context, contractKey string) error
	Register(ctx context.Context, contractKey string, input auth.RegisterInput) (models.User, error)
	ListUsers(ctx context.Context, contractKey string) ([]models.User, error)
	DeleteAllUsers(ctx context.Context, contractKey string) (int64, error)
	Login(ctx context.Context, username, password, appName string) (auth.TokenPair, error)
	WhoAmI(ctx context.Context, accessToken string) (models.User, error)
	RefreshAccess(ctx context.Context, refreshToken string) (string, error)
}

type Handler struct {
	service AuthService
}

type contractResponse struct {
	Key     string `json:"key"`
	AppName string `json:"app_name"`
	Created string `json:"created"`
}

type registerRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type userResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Created   string `json:"created"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	AppName  string `json:"app_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/contracts", h.handleContracts)
	mux.HandleFunc("/api/users/register", h.handleRegister)
	mux.HandleFunc("/api/users", h.handleListUsers)
	mux.HandleFunc("/api/users/delete-all", h.handleDeleteAllUsers)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/healthz", h.handleHealthz)
	return mux
}

func (h *Handler) handleContracts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreateContract(w, r)
	case http.MethodDelete:
		h.handleDeleteContract(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppName string `json:"app_name"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.AppName = strings.TrimSpace(req.AppName)
	if req.AppName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "app_name is required")
		return
	}

	contract, err := h.service.CreateContract(r.Context(), req.AppName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, contractResponse{
		Key:     contract.Key,
		AppName: contract.AppName,
		Created: contract.Created.Format(time.RFC3339),
	})
}

func (h *Handler) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	contractKey := strings.TrimSpace(r.URL.Query().Get("contract_key"))
	if contractKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "contract_key is required")
		return
	}

	if err := h.service.DeleteContract(r.Context(), contractKey); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "contract deleted"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	contractKey := strings.TrimSpace(r.URL.Query().Get("contract_key"))
	if contractKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "contract_key is required")
		return
	}

	var req registerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	user, err := h.service.Register(r.Context(), contractKey, auth.RegisterInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	contractKey := strings.TrimSpace(r.URL.Query().Get("contract_key"))
	if contractKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "contract_key is required")
		return
	}

	users, err := h.service.ListUsers(r.Context(), contractKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteAllUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	contractKey := strings.TrimSpace(r.URL.Query().Get("contract_key"))
	if contractKey == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "contract_key is required")
		return
	}

	deleted, err := h.service.DeleteAllUsers(r.Context(), contractKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.AppName = strings.TrimSpace(req.AppName)
	if req.Username == "" || req.Password == "" || req.AppName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username, password, and app_name are required")
		return
	}

	pair, err := h.service.Login(r.Context(), req.Username, req.Password, req.AppName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	accessToken := bearerToken(r.Header.Get("Authorization"))
	if accessToken == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	user, err := h.service.WhoAmI(r.Context(), accessToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	access, err := h.service.RefreshAccess(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": access,
		"token_type":   "bearer",
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps service and store sentinels to HTTP responses. The
// credential and token failures keep generic messages on purpose.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrContractNotFound):
		writeError(w, http.StatusBadRequest, "invalid_contract", "unknown contract key")
	case errors.Is(err, store.ErrContractFull):
		writeError(w, http.StatusBadRequest, "contract_full", "contract user limit reached")
	case errors.Is(err, store.ErrDuplicateUsername):
		writeError(w, http.StatusBadRequest, "duplicate_username", "username already registered for this contract")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		UserID:    user.UserID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Created:   user.Created.Format(time.RFC3339),
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: responseError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
