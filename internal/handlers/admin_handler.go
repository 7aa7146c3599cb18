// internal/handlers/admin_handler.go

package handlers

import (
	"github.com/gin-gonic/gin"

	"backend/internal/config"
	"backend/internal/scheduler"
	"backend/internal/types"
)

// AdminHandler exposes the main-unit mode switch and the tariff table,
// supplemented from the teacher's ac_handler.go admin operations and
// ac_config.go.
type AdminHandler struct {
	sched *scheduler.Scheduler
	cfg   *config.Config
}

func NewAdminHandler(sched *scheduler.Scheduler, cfg *config.Config) *AdminHandler {
	return &AdminHandler{sched: sched, cfg: cfg}
}

type setModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// SetMode handles POST /admin/mode — resets every room to the new mode's
// defaults.
func (h *AdminHandler) SetMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, typesInvalidArgument(err.Error()))
		return
	}
	mode := types.Mode(req.Mode)
	if err := h.sched.SetMode(mode); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"mode": mode})
}

// GetTariff handles GET /admin/tariff — read-only view of the fan tariff
// table and per-mode temperature ranges.
func (h *AdminHandler) GetTariff(c *gin.Context) {
	ok(c, gin.H{
		"fans":        h.cfg.Fans,
		"temp_ranges": h.cfg.TempRanges,
	})
}
