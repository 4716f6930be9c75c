package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"eventide/cmd/middleware"
	"eventide/internal/apperr"
	"eventide/internal/auth"
	"eventide/internal/dto"
	"eventide/internal/model"
	"eventide/internal/service"
	"eventide/pkg/validator"
)

// maxUpload caps a single uploaded file. Brochures are limited to 10MB
// by the media package; images are resized anyway.
const maxUpload = 12 << 20

type Authenticator interface {
	Signup(ctx context.Context, email, password, name string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Google(ctx context.Context, idToken string) (*auth.Session, error)
}

// LiveServer upgrades a request onto an event's live check-in feed.
type LiveServer interface {
	Serve(w http.ResponseWriter, r *http.Request, eventID string) error
}

type Handler struct {
	svc  service.Service
	auth Authenticator
	live LiveServer
	log  *zerolog.Logger
}

func New(svc service.Service, a Authenticator, live LiveServer, log *zerolog.Logger) *Handler {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Handler{svc: svc, auth: a, live: live, log: log}
}

// bind decodes the body into req and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (h *Handler) bind(c *ginext.Context, req any) bool {
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		err = c.ShouldBind(req)
	} else {
		err = c.ShouldBindJSON(req)
	}
	if err != nil {
		h.log.Debug().Err(err).Str("path", c.FullPath()).Msg("bad request body")
		dto.BadResponseError(c, dto.FieldBadFormat, "request body has bad format")
		return false
	}
	if err := validator.Validate(c.Request.Context(), req); err != nil {
		dto.BadResponseError(c, dto.FieldIncorrect, err.Error())
		return false
	}
	return true
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUpload {
		return nil, apperr.Invalid("file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "file could not be read")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "file could not be read")
	}
	if len(data) > maxUpload {
		return nil, apperr.Invalid("file is too large")
	}
	return data, nil
}

// formFile returns the named upload, or nil when it was not sent.
func formFile(c *ginext.Context, name string) ([]byte, error) {
	fh, err := c.FormFile(name)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalid, err, "field '"+name+"' is not a file")
	}
	return readFile(fh)
}

func (h *Handler) Healthz(c *ginext.Context) {
	dto.SuccessResponse(c, map[string]string{"status": "alive"})
}

func (h *Handler) Signup(c *ginext.Context) {
	var req dto.SignupRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessCreatedResponse(c, sessionResponse(sess))
}

func (h *Handler) Login(c *ginext.Context) {
	var req dto.LoginRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, sessionResponse(sess))
}

func (h *Handler) GoogleLogin(c *ginext.Context) {
	var req dto.GoogleLoginRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.auth.Google(c.Request.Context(), req.IDToken)
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, sessionResponse(sess))
}

func sessionResponse(s *auth.Session) dto.SessionResponse {
	return dto.SessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: dto.NewUserResponse(s.User)}
}

func (h *Handler) Me(c *ginext.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewUserResponse(u))
}

func (h *Handler) UpdateProfile(c *ginext.Context) {
	var req dto.ProfileRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CallerID(c), model.ProfileFields{
		Name:       req.Name,
		Phone:      req.Phone,
		Department: req.Department,
		RegisterNo: req.RegisterNo,
		BatchYear:  req.BatchYear,
	})
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewUserResponse(u))
}

func (h *Handler) ListUsers(c *ginext.Context) {
	users, err := h.svc.ListUsers(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewUserList(users))
}

func (h *Handler) SetUserRole(c *ginext.Context) {
	var req dto.RoleRequest
	if !h.bind(c, &req) {
		return
	}
	u, err := h.svc.SetUserRole(c.Request.Context(), middleware.CallerID(c), c.Param("id"), model.Role(req.Role))
	if err != nil {
		dto.ErrorResponse(c, err)
		return
	}
	dto.SuccessResponse(c, dto.NewUserResponse(u))
}
