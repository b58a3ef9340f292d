package http

import (
	"errors"
	"strconv"

	"qzone-agent/internal/application"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/input"
	"qzone-agent/pkg/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// HTTPHandler struct - Primary/Driving adapter for the command API
type HTTPHandler struct {
	srv       input.CommandService
	validator validator.Validator
}

// New func - Creates new HTTP handler
func New(srv input.CommandService) *HTTPHandler {
	return &HTTPHandler{
		srv:       srv,
		validator: validator.New(),
	}
}

// HealthCheck func
func (hdl *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: ""})
}

// SendPost func - Generates and publishes a post about an optional topic
func (hdl *HTTPHandler) SendPost(c *fiber.Ctx) error {
	var request SendRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}
	if err := hdl.validator.ValidateStruct(request); err != nil {
		msg := ResponseBody{
			Status: BadRequest,
		}
		msg.Status.Message = []string{
			err.Error(),
		}
		return c.Status(fiber.StatusBadRequest).JSON(msg)
	}

	tid, err := hdl.srv.Send(c.UserContext(), request.CallerID, request.Topic)
	if err != nil {
		return hdl.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: PostResponse{TID: tid}})
}

// SendCustomPost func - Publishes the latest configured private message
func (hdl *HTTPHandler) SendCustomPost(c *fiber.Ctx) error {
	var request CustomSendRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}
	if err := hdl.validator.ValidateStruct(request); err != nil {
		msg := ResponseBody{
			Status: BadRequest,
		}
		msg.Status.Message = []string{
			err.Error(),
		}
		return c.Status(fiber.StatusBadRequest).JSON(msg)
	}

	tid, err := hdl.srv.SendCustom(c.UserContext(), request.CallerID)
	if err != nil {
		return hdl.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: PostResponse{TID: tid}})
}

// GenerateDiary func - Builds a diary for a date, empty meaning today
func (hdl *HTTPHandler) GenerateDiary(c *fiber.Ctx) error {
	var request DiaryGenerateRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.Errorln(err)
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}
	if err := hdl.validator.ValidateStruct(request); err != nil {
		msg := ResponseBody{
			Status: BadRequest,
		}
		msg.Status.Message = []string{
			err.Error(),
		}
		return c.Status(fiber.StatusBadRequest).JSON(msg)
	}

	entry, err := hdl.srv.DiaryGenerate(c.UserContext(), request.CallerID, request.Date)
	if err != nil {
		return hdl.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: toDiaryResponse(entry)})
}

// ListDiaries func - Returns the rendered listing of recent entries
func (hdl *HTTPHandler) ListDiaries(c *fiber.Ctx) error {
	callerID := c.Query("caller_id")
	if callerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}

	listing, err := hdl.srv.DiaryList(c.UserContext(), callerID)
	if err != nil {
		return hdl.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: DiaryListResponse{Listing: listing}})
}

// ViewDiary func - Returns one entry of a date; index 0 means the newest
func (hdl *HTTPHandler) ViewDiary(c *fiber.Ctx) error {
	date := c.Params("date")
	if date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
	}

	index := 0
	if raw := c.Query("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ResponseBody{Status: BadRequest})
		}
		index = parsed
	}

	entry, err := hdl.srv.DiaryView(c.UserContext(), date, index)
	if err != nil {
		msg := ResponseBody{
			Status: NotFound,
		}
		msg.Status.Message = []string{
			err.Error(),
		}
		return c.Status(fiber.StatusNotFound).JSON(msg)
	}
	return c.Status(fiber.StatusOK).JSON(ResponseBody{Status: Success, Data: toDiaryResponse(entry)})
}

// fail maps service errors to HTTP statuses.
func (hdl *HTTPHandler) fail(c *fiber.Ctx, err error) error {
	logrus.Errorln(err)

	status := InternalServerError
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, application.ErrPermissionDenied):
		status = Forbidden
		code = fiber.StatusForbidden
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrUnauthenticated):
		status = Unauthorized
		code = fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientData):
		status = BadRequest
		code = fiber.StatusBadRequest
	}

	msg := ResponseBody{
		Status: status,
	}
	msg.Status.Message = []string{
		err.Error(),
	}
	return c.Status(code).JSON(msg)
}
