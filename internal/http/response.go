package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"postboard/internal/domain"
)

type envelope struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Data    any                  `json:"data,omitempty"`
	Errors  []fieldErrorResponse `json:"errors,omitempty"`
	Stack   string               `json:"stack,omitempty"`
}

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// respondError translates service errors into the failure envelope.
// Unexpected errors are logged and reported as a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]fieldErrorResponse, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = fieldErrorResponse{Field: f.Field, Message: f.Message}
		}
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  fields,
		})
	case errors.Is(err, domain.ErrUnauthorized):
		respondFailure(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		respondFailure(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondFailure(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		respondFailure(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bindJSON decodes the request body into dst. An empty body leaves dst
// zeroed so that field validation reports what is missing.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return domain.NewValidationError(typeErr.Field, typeErr.Field+" must be a "+typeErr.Type.String())
	}
	return domain.NewValidationError("body", "Invalid JSON, request body must be a valid JSON object")
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	PushToken string    `json:"pushToken,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type postResponse struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	Author        authorResponse `json:"author"`
	Likes         []string       `json:"likes"`
	LikesCount    int            `json:"likesCount"`
	CommentsCount int64          `json:"commentsCount"`
	IsLiked       bool           `json:"isLiked"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type commentResponse struct {
	ID        string         `json:"id"`
	Post      string         `json:"post"`
	Author    authorResponse `json:"author"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"createdAt"`
}

type paginationResponse struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func userToResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		PushToken: u.PushToken,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func authorToResponse(a domain.Author) authorResponse {
	return authorResponse{ID: a.ID, Username: a.Username, Email: a.Email}
}

func postToResponse(p domain.EnrichedPost) postResponse {
	likes := p.LikerIDs
	if likes == nil {
		likes = []string{}
	}
	return postResponse{
		ID:            p.ID,
		Content:       p.Content,
		Author:        authorToResponse(p.Author),
		Likes:         likes,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		IsLiked:       p.IsLiked,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func commentToResponse(c domain.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		Post:      c.PostID,
		Author:    authorToResponse(c.Author),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

func paginationToResponse(p domain.Pagination) paginationResponse {
	return paginationResponse{
		Total:       p.Total,
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  p.TotalPages,
		HasNextPage: p.HasNextPage,
		HasPrevPage: p.HasPrevPage,
	}
}
