package handler

import (
	"context"

	"github.com/wb-go/wbf/ginext"

	"eventide/cmd/middleware"
	"eventide/internal/dto"
	"eventide/internal/model"
	"eventide/internal/service"
)

func eventInput(req dto.EventRequest) service.EventInput {
	return service.EventInput{
		Name:        req.Name,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		Venue:       req.Venue,
		Capacity:    req.Capacity,
	}
}

// CreateEvent accepts JSON, or multipart form fields with optional image
// and brochure files.
func (h *Handler) CreateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !h.bind(c, &req) {
		return
	}
	var files service.Attachments
	if c.Request.MultipartForm != nil {
		var err error
		if files.Image, err = formFile(c, "image"); err != nil {
			dto.ErrorResponse(c, err)
			return
		}
		if files.Brochure, err = formFile(c, "brochure"); err != nil {
			dto.ErrorResponse(c, err)
			return
		}
	}

	ev, warnings, err := h.svc.CreateEvent(c.Request.Context(), middleware.CallerID(c), eventInput(req), files)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, dto.NewEventResponse(ev), warnings...)
}

func (h *Handler) UpdateEvent(c *ginext.Context) {
	var req dto.EventRequest
	if !h.bind(c, &req) {
		return
	}
	ev, err := h.svc.UpdateEvent(c.Request.Context(), middleware.CallerID(c), c.Param("id"), eventInput(req))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponse(ev))
}

func (h *Handler) UpdateEventStatus(c *ginext.Context) {
	var req dto.EventStatusRequest
	if !h.bind(c, &req) {
		return
	}
	ev, err := h.svc.UpdateEventStatus(c.Request.Context(), middleware.CallerID(c), c.Param("id"), model.EventStatus(req.Status))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponse(ev))
}

func (h *Handler) AttachImage(c *ginext.Context) {
	h.attach(c, "image", h.svc.AttachImage)
}

func (h *Handler) AttachBrochure(c *ginext.Context) {
	h.attach(c, "brochure", h.svc.AttachBrochure)
}

type attachFunc func(ctx context.Context, callerID, eventID string, data []byte) (*model.Event, error)

func (h *Handler) attach(c *ginext.Context, field string, fn attachFunc) {
	fh, err := c.FormFile(field)
	if err != nil {
		dto.FieldBadFormatError(c, field)
		return
	}
	data, err := readFile(fh)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	ev, err := fn(c.Request.Context(), middleware.CallerID(c), c.Param("id"), data)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponse(ev))
}

func (h *Handler) GetEvent(c *ginext.Context) {
	ev, err := h.svc.GetEvent(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventResponse(ev))
}

func (h *Handler) ListEvents(c *ginext.Context) {
	events, err := h.svc.ListPublishedEvents(c.Request.Context())
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventList(events))
}

func (h *Handler) ListManagedEvents(c *ginext.Context) {
	summaries, err := h.svc.ListManagedEvents(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewEventSummaryList(summaries))
}

func (h *Handler) SetCertificateTemplate(c *ginext.Context) {
	var req dto.CertificateTemplateRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.svc.SetCertificateTemplate(c.Request.Context(), middleware.CallerID(c), c.Param("id"), req.TemplateHTML, req.Placeholder)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, t)
}

func (h *Handler) GetCertificateTemplate(c *ginext.Context) {
	t, err := h.svc.GetCertificateTemplate(c.Request.Context(), middleware.CallerID(c), c.Param("id"))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, t)
}
