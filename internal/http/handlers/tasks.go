package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type completeTaskRequest struct {
	UserID int64  `json:"userId" binding:"required"`
	TaskID string `json:"taskId" binding:"required"`
}

// Tasks возвращает ещё не выполненные задания
func (h *Handler) Tasks(c *gin.Context) {
	userID, ok := userParam(c)
	if !ok {
		return
	}
	tasks, err := h.Services.Tasks.ListAvailable(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// CompleteTask выдаёт награду за задание
func (h *Handler) CompleteTask(c *gin.Context) {
	var req completeTaskRequest
	if !bindBody(c, &req) {
		return
	}
	task, err := h.Services.Tasks.Complete(c.Request.Context(), req.UserID, req.TaskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "reward": task.Reward})
}
