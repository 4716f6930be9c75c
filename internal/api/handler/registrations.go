package handler

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"eventide/cmd/middleware"
	"eventide/internal/dto"
	"eventide/internal/model"
	"eventide/internal/service"
)

func (h *Handler) Register(c *ginext.Context) {
	reg, err := h.svc.Register(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, dto.NewRegistrationResponse(reg))
}

func (h *Handler) UpdateRegistrationStatus(c *ginext.Context) {
	var req dto.RegistrationStatusRequest
	if !h.bind(c, &req) {
		return
	}
	reg, err := h.svc.UpdateRegistrationStatus(c.Request.Context(), middleware.CallerID(c), c.Param("id"), model.RegistrationStatus(req.Status))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewRegistrationResponse(reg))
}

func (h *Handler) ListEventRegistrations(c *ginext.Context) {
	regs, err := h.svc.ListEventRegistrations(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewRegistrationList(regs))
}

func (h *Handler) ListMyRegistrations(c *ginext.Context) {
	regs, err := h.svc.ListMyRegistrations(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewRegistrationList(regs))
}

func (h *Handler) RegistrationQR(c *ginext.Context) {
	png, err := h.svc.RegistrationQR(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) CheckIn(c *ginext.Context) {
	var req dto.CheckInRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.svc.CheckIn(c.Request.Context(), middleware.CallerID(c), c.Param("id"), req.Code)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, checkInResponse(res))
}

func checkInResponse(res *service.CheckInResult) dto.CheckInResponse {
	return dto.CheckInResponse{
		Outcome:      string(res.Outcome),
		CheckedInAt:  res.CheckedInAt,
		Student:      dto.StudentResponse{ID: res.Student.ID, Name: res.Student.Name, Email: res.Student.Email},
		Registration: dto.NewRegistrationResponse(res.Registration),
	}
}

// LiveFeed upgrades to a WebSocket streaming the event's check-ins.
func (h *Handler) LiveFeed(c *ginext.Context) {
	eventID := c.Param("id")
	if err := h.svc.AuthorizeLiveFeed(c.Request.Context(), middleware.CallerID(c), eventID); err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	if err := h.live.Serve(c.Writer, c.Request, eventID); err != nil {
		h.log.Warn().Err(err).Str("event_id", eventID).Msg("live feed upgrade failed")
	}
}
