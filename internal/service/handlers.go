// Package service contains the HTTP handlers of the local gateway through
// which the UI layer drives the engine. It parses requests, calls the app
// facade, maps engine errors (including the typed API taxonomy) onto HTTP
// statuses, and writes JSON responses.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"uplift/internal/api"
	"uplift/internal/app"
	"uplift/internal/daily"
	"uplift/internal/models"
	"uplift/internal/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const requestTimeout = 10 * time.Second

const (
	defaultHistoryPage  = 1
	defaultHistoryLimit = 20
)

// handlers aggregates dependencies needed by HTTP handlers.
type handlers struct {
	app *app.App
	log *logger.Logger
}

// newHandlers initializes a new handlers instance with the provided app and logger dependencies.
func newHandlers(app *app.App, l *logger.Logger) *handlers {
	return &handlers{app: app, log: l}
}

// loginHandler establishes a session and returns the profile.
func (handlers *handlers) loginHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var loginRequest models.LoginRequest

	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if err = json.Unmarshal(requestBody, &loginRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if loginRequest.Email == "" || loginRequest.Password == "" {
		writeErrorResponse(res, "missing email or password", http.StatusBadRequest)
		return
	}

	user, err := handlers.app.Login(ctx, loginRequest.Email, loginRequest.Password)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, user)
}

func (handlers *handlers) logoutHandler(res http.ResponseWriter, _ *http.Request) {
	handlers.app.Logout()
	res.WriteHeader(http.StatusOK)
}

// balanceHandler returns the reconciled display balance. Purely local.
func (handlers *handlers) balanceHandler(res http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(res, models.BalanceResponse{Balance: handlers.app.DisplayBalance()})
}

func (handlers *handlers) checkinInfoHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	info, err := handlers.app.CheckinInfo(ctx)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, info)
}

func (handlers *handlers) performCheckinHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	result, err := handlers.app.PerformCheckin(ctx)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, result)
}

func (handlers *handlers) dailyHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	category := chi.URLParam(req, "category")
	items, err := handlers.app.Daily(ctx, category)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, items)
}

func (handlers *handlers) unlockHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	category := chi.URLParam(req, "category")
	contentID := chi.URLParam(req, "id")
	if err := handlers.app.Unlock(ctx, category, contentID); err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, handlers.app.DailyItems(category))
}

func (handlers *handlers) voteHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	category := chi.URLParam(req, "category")
	contentID := chi.URLParam(req, "id")

	var voteRequest models.VoteRequest
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if err = json.Unmarshal(requestBody, &voteRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if voteRequest.VoteType != models.VoteUp && voteRequest.VoteType != models.VoteDown {
		writeErrorResponse(res, "invalid vote type", http.StatusBadRequest)
		return
	}

	// The optimistic mutation sticks even when confirmation fails; the slots
	// are returned either way and the error rides along as a message.
	err = handlers.app.Vote(ctx, category, contentID, voteRequest.VoteType)
	if err != nil && (errors.Is(err, daily.ErrUnknownContent) || errors.Is(err, daily.ErrLocked)) {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}

	response := struct {
		Items []models.DailyContentItem `json:"items"`
		Error string                    `json:"error,omitempty"`
	}{Items: handlers.app.DailyItems(category)}
	if err != nil {
		response.Error = err.Error()
	}
	writeJSONResponse(res, response)
}

func (handlers *handlers) submitHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var draft models.ContentDraft
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if err = json.Unmarshal(requestBody, &draft); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if draft.Category == "" || draft.Text == "" {
		writeErrorResponse(res, "missing category or text", http.StatusBadRequest)
		return
	}

	item, err := handlers.app.Submit(ctx, draft)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, item)
}

func (handlers *handlers) myContentHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	items, err := handlers.app.MyContent(ctx)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, items)
}

func (handlers *handlers) removeMyContentHandler(res http.ResponseWriter, req *http.Request) {
	contentID := chi.URLParam(req, "id")
	if err := handlers.app.RemoveMyContent(contentID); err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	res.WriteHeader(http.StatusOK)
}

func (handlers *handlers) historyHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	page := queryInt(req, "page", defaultHistoryPage)
	limit := queryInt(req, "limit", defaultHistoryLimit)

	transactions, err := handlers.app.PointsHistory(ctx, page, limit)
	if err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	writeJSONResponse(res, transactions)
}

func (handlers *handlers) passwordHandler(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	var changeRequest models.ChangePasswordRequest
	requestBody, err := io.ReadAll(req.Body)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if err = json.Unmarshal(requestBody, &changeRequest); err != nil {
		writeErrorResponse(res, err.Error(), http.StatusBadRequest)
		return
	}
	if changeRequest.CurrentPassword == "" || changeRequest.NewPassword == "" {
		writeErrorResponse(res, "missing current or new password", http.StatusBadRequest)
		return
	}

	if err := handlers.app.ChangePassword(ctx, changeRequest.CurrentPassword, changeRequest.NewPassword); err != nil {
		writeErrorResponse(res, err.Error(), statusFor(err))
		return
	}
	res.WriteHeader(http.StatusOK)
}

// statusFor maps engine errors onto gateway statuses. Server rejections keep
// their upstream status; unreachable or garbled upstreams become 502.
func statusFor(err error) int {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case api.KindAuth:
			return http.StatusUnauthorized
		case api.KindNetwork, api.KindDecode:
			return http.StatusBadGateway
		case api.KindServer:
			if apiErr.Status >= http.StatusBadRequest {
				return apiErr.Status
			}
			return http.StatusBadGateway
		}
	}
	if errors.Is(err, app.ErrNotAuthenticated) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, daily.ErrUnknownContent) {
		return http.StatusNotFound
	}
	if errors.Is(err, daily.ErrLocked) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func queryInt(req *http.Request, name string, fallback int) int {
	raw := req.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func writeJSONResponse(res http.ResponseWriter, v any) {
	result, err := json.Marshal(v)
	if err != nil {
		writeErrorResponse(res, err.Error(), http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	res.Write(result)
}

func writeErrorResponse(res http.ResponseWriter, errorInfo string, statusCode int) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)
	json.NewEncoder(res).Encode(models.ErrorResponse{Errors: errorInfo})
}
