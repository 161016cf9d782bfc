package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type pushTokenRequest struct {
	PushToken string `json:"pushToken"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Registration successful", gin.H{
		"token": res.Token,
		"user":  userToResponse(res.User),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	res, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", gin.H{
		"token": res.Token,
		"user":  userToResponse(res.User),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), mustPrincipal(c).UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile fetched", gin.H{"user": userToResponse(user)})
}

func (h *Handler) updatePushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.users.UpdatePushToken(c.Request.Context(), mustPrincipal(c).UserID, req.PushToken); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Push token updated", nil)
}
