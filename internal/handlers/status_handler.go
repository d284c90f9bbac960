package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shadowbot/internal/services"
)

type StatusHandler struct {
	Users     *services.UserService
	Groups    *services.GroupService
	BotName   string
	StartedAt time.Time

	// Tagline, when set, supplies the rotating status line.
	Tagline func() string
}

func NewStatusHandler(users *services.UserService, groups *services.GroupService, botName string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{
		Users:     users,
		Groups:    groups,
		BotName:   botName,
		StartedAt: startedAt,
	}
}

// Healthz godoc
// @Summary Liveness probe
// @Tags status
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *StatusHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status godoc
// @Summary Bot status and uptime
// @Tags status
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/status [get]
func (h *StatusHandler) Status(c *gin.Context) {
	resp := gin.H{
		"bot":    h.BotName,
		"status": "running",
		"uptime": time.Since(h.StartedAt).Round(time.Second).String(),
	}
	if h.Tagline != nil {
		resp["tagline"] = h.Tagline()
	}
	c.JSON(http.StatusOK, resp)
}

// Stats godoc
// @Summary Usage statistics
// @Tags status
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/stats [get]
func (h *StatusHandler) Stats(c *gin.Context) {
	users, err := h.Users.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	groups, err := h.Groups.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_users":  users.Total,
		"banned_users": users.Banned,
		"total_groups": groups,
	})
}
