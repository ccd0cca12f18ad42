// Package httpapi is a thin Gin surface over the Control Façade
// (internal/core). It holds no business logic of its own — every
// handler validates its request shape and calls straight into Core — so
// the façade stays the one place scheduling, billing and session
// bracketing actually happen. Grounded on the teacher's
// internal/handlers/ac_handler.go request/response shape and its
// Response envelope convention.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/core"
	"backend/internal/logger"
	"backend/internal/types"
)

// Response is the envelope every handler replies with, matching the
// teacher's internal/handlers.Response shape (Code 0 == success).
type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Handler wraps the Control Façade for HTTP callers.
type Handler struct {
	core *core.Core
}

// NewHandler constructs a Handler over c.
func NewHandler(c *core.Core) *Handler {
	return &Handler{core: c}
}

func fail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, Response{Code: -1, Msg: err.Error()})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "success", Data: data})
}

type checkInRequest struct {
	RoomID      string `json:"roomId" binding:"required"`
	TenantID    string `json:"tenantId"`
	TenantName  string `json:"tenantName" binding:"required"`
	TenantPhone string `json:"tenantPhone"`
	StayDays    int    `json:"stayDays" binding:"required"`
}

// CheckIn occupies a room for a new tenant.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Msg: "invalid request parameters"})
		return
	}

	if err := h.core.CheckIn(req.RoomID, req.TenantID, req.TenantName, req.TenantPhone, req.StayDays); err != nil {
		logger.Warn("check-in room %s: %v", req.RoomID, err)
		fail(c, err)
		return
	}
	ok(c, nil)
}

type checkOutRequest struct {
	RoomID string `json:"roomId" binding:"required"`
}

// CheckOut vacates a room and returns its final bill.
func (h *Handler) CheckOut(c *gin.Context) {
	var req checkOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Msg: "invalid request parameters"})
		return
	}

	bill, err := h.core.CheckOut(req.RoomID)
	if err != nil {
		logger.Warn("check-out room %s: %v", req.RoomID, err)
		fail(c, err)
		return
	}
	ok(c, gin.H{"bill": bill})
}

type controlRequest struct {
	RoomID     string   `json:"roomId" binding:"required"`
	PowerOn    *bool    `json:"powerOn"`
	TargetTemp *float64 `json:"targetTemp"`
	FanSpeed   *string  `json:"fanSpeed"`
}

// Control applies a power/target/speed command to one room.
func (h *Handler) Control(c *gin.Context) {
	var req controlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Msg: "invalid request parameters"})
		return
	}

	cmd := core.ControlCommand{
		RoomID:     req.RoomID,
		PowerOn:    req.PowerOn,
		TargetTemp: req.TargetTemp,
	}
	if req.FanSpeed != nil {
		speed := types.Speed(*req.FanSpeed)
		cmd.FanSpeed = &speed
	}

	if err := h.core.Control(cmd); err != nil {
		logger.Warn("control room %s: %v", req.RoomID, err)
		fail(c, err)
		return
	}
	ok(c, nil)
}

// RoomState reports the live state of one room.
func (h *Handler) RoomState(c *gin.Context) {
	roomID := c.Param("roomId")
	r, found := h.core.Room(roomID)
	if !found {
		fail(c, core.ErrRoomNotFound)
		return
	}
	ok(c, r)
}

// RoomBill reports the current running bill for one occupied room.
func (h *Handler) RoomBill(c *gin.Context) {
	roomID := c.Param("roomId")
	bill, err := h.core.RoomBill(roomID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"bill": bill})
}

// PlantPowerOn brings the central unit online.
func (h *Handler) PlantPowerOn(c *gin.Context) {
	h.core.PowerOnPlant()
	ok(c, nil)
}

// PlantPowerOff takes the central unit offline, force-closing every open
// AC session.
func (h *Handler) PlantPowerOff(c *gin.Context) {
	h.core.PowerOffPlant()
	ok(c, nil)
}

// SimulationStop suspends the real-time tick loop and enters simulation
// mode, where Advance accepts explicit steps.
func (h *Handler) SimulationStop(c *gin.Context) {
	h.core.Stop()
	ok(c, nil)
}

// SimulationStart resumes the real-time tick loop.
func (h *Handler) SimulationStart(c *gin.Context) {
	h.core.Start()
	ok(c, nil)
}

type advanceRequest struct {
	Seconds int `json:"seconds" binding:"required"`
}

// SimulationAdvance steps the plant forward by a fixed number of
// simulated seconds. Only valid while simulation mode is active.
func (h *Handler) SimulationAdvance(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Code: -1, Msg: "invalid request parameters"})
		return
	}

	if err := h.core.Advance(req.Seconds); err != nil {
		logger.Warn("advance simulation: %v", err)
		fail(c, err)
		return
	}
	ok(c, nil)
}

// SchedulerStatus reports the scheduler's current service and wait sets,
// for monitoring dashboards.
func (h *Handler) SchedulerStatus(c *gin.Context) {
	ok(c, gin.H{
		"service": h.core.ServiceSnapshot(),
		"waiting": h.core.WaitSnapshot(),
	})
}
