package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/handler"
	"github.com/labelgrid/labelgrid-api/internal/service"
)

type stubAnnotationService struct {
	response  dto.AnnotationActionResponse
	err       error
	submitted []dto.AnnotationSubmitRequest
	removed   []dto.AnnotationDeleteRequest
	finished  int
	lastUser  string
}

func (s *stubAnnotationService) Submit(_ context.Context, userID string, req dto.AnnotationSubmitRequest) (dto.AnnotationActionResponse, error) {
	s.lastUser = userID
	s.submitted = append(s.submitted, req)
	return s.response, s.err
}

func (s *stubAnnotationService) Remove(_ context.Context, userID string, req dto.AnnotationDeleteRequest) (dto.AnnotationActionResponse, error) {
	s.lastUser = userID
	s.removed = append(s.removed, req)
	return s.response, s.err
}

func (s *stubAnnotationService) FinishRequest(_ context.Context, userID string, elapsed time.Duration) {
	s.finished++
}

func annotatorApp(svc service.AnnotationService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Locals("user_id", "alice")
		return c.Next()
	})
	handler.NewAnnotationHandler(svc, zerolog.Nop()).Register(group)
	return app
}

func postJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSubmitAnnotation(t *testing.T) {
	svc := &stubAnnotationService{
		response: dto.AnnotationActionResponse{ActionID: "a1", ActionType: "add_label", InstanceID: "i1"},
	}
	app := annotatorApp(svc)

	resp := postJSON(t, app, http.MethodPost, "/api/v1/annotations", dto.AnnotationSubmitRequest{
		InstanceID: "i1",
		SchemaName: "sentiment",
		LabelName:  "pos",
		Value:      true,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload struct {
		Success bool                         `json:"success"`
		Data    dto.AnnotationActionResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	require.True(t, payload.Success)
	require.Equal(t, "a1", payload.Data.ActionID)
	require.Equal(t, "alice", svc.lastUser)
	require.Len(t, svc.submitted, 1)
	// The request duration is back-filled after a successful submit.
	require.Equal(t, 1, svc.finished)
}

func TestSubmitAnnotationUnknownItem(t *testing.T) {
	svc := &stubAnnotationService{err: service.ErrNotFound}
	app := annotatorApp(svc)

	resp := postJSON(t, app, http.MethodPost, "/api/v1/annotations", dto.AnnotationSubmitRequest{InstanceID: "missing"})
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	require.Zero(t, svc.finished)
}

func TestSubmitAnnotationUnknownScheme(t *testing.T) {
	svc := &stubAnnotationService{err: service.ErrUnknownScheme}
	app := annotatorApp(svc)

	resp := postJSON(t, app, http.MethodPost, "/api/v1/annotations", dto.AnnotationSubmitRequest{InstanceID: "i1"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteAnnotation(t *testing.T) {
	svc := &stubAnnotationService{
		response: dto.AnnotationActionResponse{ActionID: "a2", ActionType: "delete_label"},
	}
	app := annotatorApp(svc)

	resp := postJSON(t, app, http.MethodDelete, "/api/v1/annotations", dto.AnnotationDeleteRequest{
		InstanceID: "i1",
		SchemaName: "sentiment",
		LabelName:  "pos",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
	require.Len(t, svc.removed, 1)
	require.Equal(t, 1, svc.finished)
}

func TestAnnotationRequiresUser(t *testing.T) {
	app := fiber.New()
	group := app.Group("/api/v1")
	handler.NewAnnotationHandler(&stubAnnotationService{}, zerolog.Nop()).Register(group)

	resp := postJSON(t, app, http.MethodPost, "/api/v1/annotations", dto.AnnotationSubmitRequest{InstanceID: "i1"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
