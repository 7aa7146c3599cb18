// internal/handlers/ac_handler.go

package handlers

import (
	"github.com/gin-gonic/gin"

	"backend/internal/billing"
	"backend/internal/scheduler"
	"backend/internal/types"
)

// ACHandler is the Command Interface component: a thin gin wrapper over
// Scheduler.RequestPower/StopPower/Status, matching the teacher's
// ac_handler.go's customer-facing surface.
type ACHandler struct {
	sched   *scheduler.Scheduler
	billing *billing.Service
}

func NewACHandler(sched *scheduler.Scheduler, billingSvc *billing.Service) *ACHandler {
	return &ACHandler{sched: sched, billing: billingSvc}
}

type powerOnRequest struct {
	Fan        string  `json:"fan" binding:"required"`
	TargetTemp float64 `json:"target_temp" binding:"required"`
}

// PowerOn handles POST /rooms/:id/power-on.
func (h *ACHandler) PowerOn(c *gin.Context) {
	roomID := c.Param("id")
	var req powerOnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, typesInvalidArgument(err.Error()))
		return
	}
	if err := h.sched.RequestPower(roomID, types.FanSpeed(req.Fan), req.TargetTemp); err != nil {
		fail(c, err)
		return
	}
	status, err := h.sched.Status(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, status)
}

// PowerOff handles POST /rooms/:id/power-off.
func (h *ACHandler) PowerOff(c *gin.Context) {
	roomID := c.Param("id")
	if err := h.sched.StopPower(roomID); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"room_id": roomID, "power": false})
}

type setTempRequest struct {
	TargetTemp float64 `json:"target_temp" binding:"required"`
}

// SetTargetTemp handles POST /rooms/:id/target-temp — an adjust call that
// reuses RequestPower with the room's current fan speed.
func (h *ACHandler) SetTargetTemp(c *gin.Context) {
	roomID := c.Param("id")
	var req setTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, typesInvalidArgument(err.Error()))
		return
	}
	current, err := h.sched.Status(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.sched.RequestPower(roomID, current.Fan, req.TargetTemp); err != nil {
		fail(c, err)
		return
	}
	status, _ := h.sched.Status(roomID)
	ok(c, status)
}

type setFanRequest struct {
	Fan string `json:"fan" binding:"required"`
}

// SetFanSpeed handles POST /rooms/:id/fan-speed.
func (h *ACHandler) SetFanSpeed(c *gin.Context) {
	roomID := c.Param("id")
	var req setFanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, typesInvalidArgument(err.Error()))
		return
	}
	current, err := h.sched.Status(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.sched.RequestPower(roomID, types.FanSpeed(req.Fan), current.TargetTemp); err != nil {
		fail(c, err)
		return
	}
	status, _ := h.sched.Status(roomID)
	ok(c, status)
}

// GetStatus handles GET /rooms/:id.
func (h *ACHandler) GetStatus(c *gin.Context) {
	roomID := c.Param("id")
	status, err := h.sched.Status(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, status)
}

// ListRooms handles GET /rooms — the batch form of the single-room status
// call, supplemented from the teacher's room_handler.go GetAllRooms.
func (h *ACHandler) ListRooms(c *gin.Context) {
	ok(c, h.sched.AllStatus())
}

// GetHistory handles GET /rooms/:id/history — every detail record ever
// opened for the room, supplemented from the teacher's billing_handler.go.
func (h *ACHandler) GetHistory(c *gin.Context) {
	roomID := c.Param("id")
	records, err := h.billing.History(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, records)
}

func typesInvalidArgument(msg string) error {
	return &invalidArgErr{msg: msg}
}

type invalidArgErr struct{ msg string }

func (e *invalidArgErr) Error() string { return e.msg }

func (e *invalidArgErr) Unwrap() error { return types.ErrInvalidArgument }
