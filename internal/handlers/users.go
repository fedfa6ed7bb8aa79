package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	Users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]userSummaryResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userSummaryResponse{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			TaskCount: u.TaskCount,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *UserHandler) Delete(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Users.Delete(c.Request.Context(), identityFrom(c), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
