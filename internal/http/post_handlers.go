package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type contentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) createPost(c *gin.Context) {
	var req contentRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), mustPrincipal(c), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Post created", gin.H{"post": postToResponse(*post)})
}

func (h *Handler) listPosts(c *gin.Context) {
	page, err := h.posts.ListPosts(c.Request.Context(), mustPrincipal(c).UserID, pageRequest(c), c.Query("username"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	posts := make([]postResponse, len(page.Posts))
	for i := range page.Posts {
		posts[i] = postToResponse(page.Posts[i])
	}
	respond(c, http.StatusOK, "Posts fetched", gin.H{
		"posts":      posts,
		"pagination": paginationToResponse(page.Pagination),
	})
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.posts.GetPost(c.Request.Context(), mustPrincipal(c).UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Post fetched", gin.H{"post": postToResponse(*post)})
}

func (h *Handler) toggleLike(c *gin.Context) {
	res, err := h.interactions.ToggleLike(c.Request.Context(), mustPrincipal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	message := "Post unliked"
	if res.Liked {
		message = "Post liked"
	}
	respond(c, http.StatusOK, message, gin.H{
		"liked":      res.Liked,
		"likesCount": res.LikesCount,
	})
}

func (h *Handler) addComment(c *gin.Context) {
	var req contentRequest
	if err := bindJSON(c, &req); err != nil {
		h.respondError(c, err)
		return
	}

	comment, err := h.interactions.AddComment(c.Request.Context(), mustPrincipal(c), c.Param("id"), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Comment added", gin.H{"comment": commentToResponse(*comment)})
}

func (h *Handler) listComments(c *gin.Context) {
	page, err := h.interactions.ListComments(c.Request.Context(), c.Param("id"), pageRequest(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	comments := make([]commentResponse, len(page.Comments))
	for i := range page.Comments {
		comments[i] = commentToResponse(page.Comments[i])
	}
	respond(c, http.StatusOK, "Comments fetched", gin.H{
		"comments":   comments,
		"pagination": paginationToResponse(page.Pagination),
	})
}
