package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/labelgrid/labelgrid-api/internal/dto"
	"github.com/labelgrid/labelgrid-api/internal/handler"
	"github.com/labelgrid/labelgrid-api/internal/middleware"
	"github.com/labelgrid/labelgrid-api/internal/service"
)

type stubDashboardService struct {
	annotators dto.AnnotatorsResponse
	history    dto.AnnotationHistoryResponse
	suspicious dto.SuspiciousActivityResponse
	err        error
	lastQuery  dto.AnnotationHistoryQuery
}

func (s *stubDashboardService) Annotators(_ context.Context) (dto.AnnotatorsResponse, error) {
	return s.annotators, s.err
}

func (s *stubDashboardService) AnnotationHistory(_ context.Context, query dto.AnnotationHistoryQuery) (dto.AnnotationHistoryResponse, error) {
	s.lastQuery = query
	return s.history, s.err
}

func (s *stubDashboardService) SuspiciousActivity(_ context.Context) (dto.SuspiciousActivityResponse, error) {
	return s.suspicious, s.err
}

type stubOverviewService struct {
	response dto.OverviewResponse
	err      error
}

func (s *stubOverviewService) Overview(_ context.Context) (dto.OverviewResponse, error) {
	return s.response, s.err
}

func adminApp(dashboard *stubDashboardService, overview *stubOverviewService, apiKey string) *fiber.App {
	app := fiber.New()
	group := app.Group("/admin/api", middleware.APIKey(apiKey, false))
	handler.NewAdminDashboardHandler(dashboard, overview, zerolog.Nop()).Register(group)
	return app
}

func adminGet(t *testing.T, app *fiber.App, path, key string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAnnotatorsEndpointReturnsRawShape(t *testing.T) {
	dashboard := &stubDashboardService{
		annotators: dto.AnnotatorsResponse{
			TotalAnnotators: 1,
			Annotators: []dto.AnnotatorTiming{
				{UserID: "alice", Phase: "annotation", TotalAnnotations: 3},
			},
			Summary: dto.AnnotatorsSummary{Normal: 1},
		},
	}
	app := adminApp(dashboard, &stubOverviewService{}, "secret")

	resp := adminGet(t, app, "/admin/api/annotators", "secret")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.AnnotatorsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	require.Equal(t, 1, payload.TotalAnnotators)
	require.Equal(t, "alice", payload.Annotators[0].UserID)
	require.Equal(t, 1, payload.Summary.Normal)
}

func TestAdminEndpointsRequireAPIKey(t *testing.T) {
	app := adminApp(&stubDashboardService{}, &stubOverviewService{}, "secret")

	resp := adminGet(t, app, "/admin/api/annotators", "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.NotEmpty(t, payload["error"])
}

func TestAnnotationHistoryQueryParsing(t *testing.T) {
	dashboard := &stubDashboardService{
		history: dto.AnnotationHistoryResponse{Context: "user alice", TotalActions: 2},
	}
	app := adminApp(dashboard, &stubOverviewService{}, "secret")

	resp := adminGet(t, app, "/admin/api/annotation_history?user_id=alice&instance_id=i1&minutes=30", "secret")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Equal(t, "alice", dashboard.lastQuery.UserID)
	require.Equal(t, "i1", dashboard.lastQuery.InstanceID)
	require.Equal(t, 30, dashboard.lastQuery.Minutes)

	resp = adminGet(t, app, "/admin/api/annotation_history?minutes=abc", "secret")
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAnnotationHistoryUnknownUser(t *testing.T) {
	dashboard := &stubDashboardService{err: service.ErrNotFound}
	app := adminApp(dashboard, &stubOverviewService{}, "secret")

	resp := adminGet(t, app, "/admin/api/annotation_history?user_id=nobody", "secret")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.Equal(t, "annotator not found", payload["error"])
}

func TestInternalErrorsEchoMessage(t *testing.T) {
	dashboard := &stubDashboardService{err: errors.New("stats backend unavailable")}
	app := adminApp(dashboard, &stubOverviewService{}, "secret")

	for _, path := range []string{
		"/admin/api/annotators",
		"/admin/api/annotation_history",
		"/admin/api/suspicious_activity",
	} {
		resp := adminGet(t, app, path, "secret")
		require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode, path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		resp.Body.Close()
		require.Equal(t, "stats backend unavailable", payload["error"], path)
	}
}

func TestOverviewEndpoint(t *testing.T) {
	overview := &stubOverviewService{
		response: dto.OverviewResponse{TotalAnnotators: 7, CacheHit: true},
	}
	app := adminApp(&stubDashboardService{}, overview, "secret")

	resp := adminGet(t, app, "/admin/api/overview", "secret")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.OverviewResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.Equal(t, int64(7), payload.TotalAnnotators)
	require.True(t, payload.CacheHit)
}

func TestSuspiciousActivityEndpoint(t *testing.T) {
	dashboard := &stubDashboardService{
		suspicious: dto.SuspiciousActivityResponse{
			TotalUsersWithSuspiciousActivity: 1,
			SuspiciousActivity: []dto.UserSuspiciousActivity{
				{UserID: "fast", SuspiciousActionsCount: 4},
			},
		},
	}
	app := adminApp(dashboard, &stubOverviewService{}, "secret")

	resp := adminGet(t, app, "/admin/api/suspicious_activity", "secret")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.SuspiciousActivityResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.Equal(t, 1, payload.TotalUsersWithSuspiciousActivity)
	require.Equal(t, "fast", payload.SuspiciousActivity[0].UserID)
}
