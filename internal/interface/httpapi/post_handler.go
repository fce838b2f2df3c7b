// Package httpapi exposes the core operations to the conversational
// front-end. It owns no business logic: every handler validates transport
// concerns and delegates to the usecase layer.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"poputchik-service/internal/domain/entity"
	"poputchik-service/internal/usecase"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/routekey"

	"github.com/gorilla/mux"
)

// PostHandler serves the post and subscription operations
type PostHandler struct {
	postService *usecase.PostService
	logger      logger.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *usecase.PostService, log logger.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		logger:      log,
	}
}

// Register mounts the API routes under /api/v1
func (h *PostHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/posts", h.CreatePost).Methods("POST")
	api.HandleFunc("/posts/active", h.GetActivePost).Methods("GET")
	api.HandleFunc("/posts/{id}/pause", h.PausePost).Methods("POST")
	api.HandleFunc("/posts/{id}/resume", h.ResumePost).Methods("POST")
	api.HandleFunc("/posts/{id}", h.WithdrawPost).Methods("DELETE")
	api.HandleFunc("/subscriptions", h.CreateSubscription).Methods("POST")
	api.HandleFunc("/subscriptions", h.ListSubscriptions).Methods("GET")
	api.HandleFunc("/subscriptions/{id}", h.DeleteSubscription).Methods("DELETE")
	api.HandleFunc("/routekeys", h.PreviewKeys).Methods("GET")
}

type createPostRequest struct {
	AuthorID      uint   `json:"authorId"`
	Role          string `json:"role"`
	FromPlace     string `json:"fromPlace"`
	ToPlace       string `json:"toPlace"`
	DepartureTime string `json:"departureTime"`
	Seats         *int   `json:"seats,omitempty"`
	Price         int    `json:"price"`
}

type postResponse struct {
	ID               uint     `json:"id"`
	AuthorID         uint     `json:"authorId"`
	Role             string   `json:"role"`
	FromPlace        string   `json:"fromPlace"`
	ToPlace          string   `json:"toPlace"`
	KeysFrom         []string `json:"keysFrom"`
	KeysTo           []string `json:"keysTo"`
	DepartureTime    string   `json:"departureTime"`
	Seats            *int     `json:"seats,omitempty"`
	Price            int      `json:"price"`
	Status           string   `json:"status"`
	ChannelMessageID *int64   `json:"channelMessageId,omitempty"`
	CreatedAt        string   `json:"createdAt"`
	ExpiresAt        string   `json:"expiresAt"`
}

func toPostResponse(post *entity.Post) postResponse {
	return postResponse{
		ID:               post.ID,
		AuthorID:         post.AuthorID,
		Role:             post.Role,
		FromPlace:        post.FromPlace,
		ToPlace:          post.ToPlace,
		KeysFrom:         post.KeysFrom,
		KeysTo:           post.KeysTo,
		DepartureTime:    post.DepartureTime,
		Seats:            post.Seats,
		Price:            post.Price,
		Status:           post.Status,
		ChannelMessageID: post.ChannelMessageID,
		CreatedAt:        post.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		ExpiresAt:        post.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// CreatePost publishes a new ride offer
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postService.CreatePost(r.Context(), usecase.CreatePostInput{
		AuthorID:      req.AuthorID,
		Role:          req.Role,
		FromPlace:     req.FromPlace,
		ToPlace:       req.ToPlace,
		DepartureTime: req.DepartureTime,
		Seats:         req.Seats,
		Price:         req.Price,
	})
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

// GetActivePost returns the author's active post, if any
func (h *PostHandler) GetActivePost(w http.ResponseWriter, r *http.Request) {
	authorID, ok := queryID(w, r, "authorId")
	if !ok {
		return
	}

	post, err := h.postService.GetActivePost(r.Context(), authorID)
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "no active post")
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

// PausePost suspends the author's post
func (h *PostHandler) PausePost(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.postService.PausePost)
}

// ResumePost reactivates a paused post
func (h *PostHandler) ResumePost(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.postService.ResumePost)
}

// WithdrawPost removes a post permanently
func (h *PostHandler) WithdrawPost(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.postService.WithdrawPost)
}

func (h *PostHandler) changeStatus(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, postID, userID uint) error) {
	postID, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryID(w, r, "userId")
	if !ok {
		return
	}

	if err := op(r.Context(), postID, userID); err != nil {
		h.writeUsecaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subscriptionRequest struct {
	UserID   uint   `json:"userId"`
	FromText string `json:"fromText"`
	ToText   string `json:"toText"`
}

type subscriptionResponse struct {
	ID       uint     `json:"id"`
	UserID   uint     `json:"userId"`
	FromText string   `json:"fromText"`
	ToText   string   `json:"toText"`
	KeysFrom []string `json:"keysFrom"`
	KeysTo   []string `json:"keysTo"`
}

// CreateSubscription creates a standing route subscription
func (h *PostHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.postService.Subscribe(r.Context(), req.UserID, req.FromText, req.ToText)
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, subscriptionResponse{
		ID:       sub.ID,
		UserID:   sub.UserID,
		FromText: sub.FromText,
		ToText:   sub.ToText,
		KeysFrom: sub.KeysFrom,
		KeysTo:   sub.KeysTo,
	})
}

// ListSubscriptions returns the user's subscriptions
func (h *PostHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryID(w, r, "userId")
	if !ok {
		return
	}

	subs, err := h.postService.ListSubscriptions(r.Context(), userID)
	if err != nil {
		h.writeUsecaseError(w, err)
		return
	}

	out := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, subscriptionResponse{
			ID:       sub.ID,
			UserID:   sub.UserID,
			FromText: sub.FromText,
			ToText:   sub.ToText,
			KeysFrom: sub.KeysFrom,
			KeysTo:   sub.KeysTo,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// DeleteSubscription removes one of the user's subscriptions
func (h *PostHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	subID, ok := pathID(w, r)
	if !ok {
		return
	}
	userID, ok := queryID(w, r, "userId")
	if !ok {
		return
	}

	if err := h.postService.Unsubscribe(r.Context(), subID, userID); err != nil {
		h.writeUsecaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewKeys renders the route keys for a place description, for the
// front-end's confirmation preview
func (h *PostHandler) PreviewKeys(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	keys := routekey.Generate(text)
	if len(keys) == 0 {
		writeError(w, http.StatusBadRequest, "text produced no route keys")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys":    keys,
		"display": routekey.Display(keys),
	})
}

func (h *PostHandler) writeUsecaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidRole),
		errors.Is(err, usecase.ErrInvalidPrice),
		errors.Is(err, usecase.ErrInvalidSeats),
		errors.Is(err, usecase.ErrEmptyPlace):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, usecase.ErrActivePostExists),
		errors.Is(err, usecase.ErrDuplicateSubscription),
		errors.Is(err, usecase.ErrPostTerminal),
		errors.Is(err, usecase.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrPostNotFound),
		errors.Is(err, usecase.ErrSubscriptionNotFound),
		errors.Is(err, usecase.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrNotPostOwner):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		h.logger.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func queryID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := r.URL.Query().Get(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
