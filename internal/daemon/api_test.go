package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/caravel/internal/api"
	"github.com/artpar/caravel/internal/shell/probe"
)

func testRouter(t *testing.T) (*mux.Router, *Supervisor, *Monitor) {
	t.Helper()
	supervisor := NewSupervisor(t.TempDir(), nil)
	t.Cleanup(supervisor.StopAll)
	monitor := testMonitor()
	monitor.run = func(_ context.Context, _ []string, _ string, _ map[string]string) (probe.Result, error) {
		return probe.Result{ExitCode: 0}, nil
	}

	router := mux.NewRouter()
	RegisterRoutes(router, APIConfig{
		Supervisor: supervisor,
		Monitor:    monitor,
	})
	return router, supervisor, monitor
}

func postJSON(t *testing.T, router *mux.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, router *mux.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAPI_DeployService(t *testing.T) {
	router, _, _ := testRouter(t)

	cmd := api.DeployCommand{
		ToDeploy: []string{"api"},
		ModuleDefinitions: []api.ModuleDefinition{
			{
				Name:        "api",
				Command:     []string{"sleep", "60"},
				Healthcheck: &api.Healthcheck{Command: []string{"probe"}},
			},
		},
	}
	rec := postJSON(t, router, "/deploy", cmd)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.DeployResponse](t, rec)
	assert.True(t, resp.Deployed)
	assert.NotEmpty(t, resp.Monitor, "a service with a healthcheck gets a monitor handle")
}

func TestAPI_DeployAlreadyRunning(t *testing.T) {
	router, _, _ := testRouter(t)

	cmd := api.DeployCommand{
		ToDeploy:          []string{"api"},
		ModuleDefinitions: []api.ModuleDefinition{{Name: "api", Command: []string{"sleep", "60"}}},
	}
	require.Equal(t, http.StatusOK, postJSON(t, router, "/deploy", cmd).Code)

	rec := postJSON(t, router, "/deploy", cmd)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.DeployResponse](t, rec)
	assert.False(t, resp.Deployed)
	assert.Empty(t, resp.Monitor)
}

func TestAPI_DeployMissingDefinition(t *testing.T) {
	router, _, _ := testRouter(t)

	cmd := api.DeployCommand{ToDeploy: []string{"ghost"}}
	rec := postJSON(t, router, "/deploy", cmd)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Contains(t, resp.Message, "ghost")
}

func TestAPI_DeployTask(t *testing.T) {
	router, _, _ := testRouter(t)

	cmd := api.TaskDeployCommand{
		TaskDefinition: api.ModuleDefinition{Name: "migrate", Command: []string{"sh", "-c", "exit 0"}},
	}
	rec := postJSON(t, router, "/tasks/deploy", cmd)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.TaskDeployResponse](t, rec)
	assert.True(t, resp.Completed)
	assert.Zero(t, resp.ExitCode)
}

func TestAPI_DeployTaskFailure(t *testing.T) {
	router, _, _ := testRouter(t)

	cmd := api.TaskDeployCommand{
		TaskDefinition: api.ModuleDefinition{Name: "migrate", Command: []string{"sh", "-c", "exit 4"}},
	}
	rec := postJSON(t, router, "/tasks/deploy", cmd)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Contains(t, resp.Message, "migrate")
	assert.Contains(t, resp.Message, "4")
}

func TestAPI_OperationStopAndRestart(t *testing.T) {
	router, supervisor, _ := testRouter(t)

	_, err := supervisor.Deploy(api.ModuleDefinition{Name: "api", Command: []string{"sleep", "60"}}, false)
	require.NoError(t, err)

	rec := postJSON(t, router, "/operation", api.OperationCommand{Operation: api.OperationStop, ModuleName: "api"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stopped", decodeBody[api.OperationResponse](t, rec).Status)

	rec = postJSON(t, router, "/operation", api.OperationCommand{Operation: api.OperationRestart, ModuleName: "api"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "restarted", decodeBody[api.OperationResponse](t, rec).Status)
}

func TestAPI_OperationUnknownModule(t *testing.T) {
	router, _, _ := testRouter(t)

	rec := postJSON(t, router, "/operation", api.OperationCommand{Operation: api.OperationStop, ModuleName: "ghost"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody[api.ErrorResponse](t, rec).Message, "ghost")
}

func TestAPI_OperationUnknownVerb(t *testing.T) {
	router, _, _ := testRouter(t)

	rec := postJSON(t, router, "/operation", api.OperationCommand{Operation: "SCALE", ModuleName: "api"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Status(t *testing.T) {
	router, supervisor, _ := testRouter(t)

	_, err := supervisor.Deploy(api.ModuleDefinition{Name: "api", Command: []string{"sleep", "60"}}, false)
	require.NoError(t, err)

	rec := get(t, router, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.StatusResponse](t, rec)
	require.Len(t, resp.Modules, 1)
	assert.Equal(t, "api", resp.Modules[0].Name)
}

func TestAPI_Log(t *testing.T) {
	router, supervisor, _ := testRouter(t)

	code, err := supervisor.RunTask(api.ModuleDefinition{Name: "hello", Command: []string{"sh", "-c", "echo hi"}})
	require.NoError(t, err)
	require.Zero(t, code)

	rec := get(t, router, "/log/hello")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.LogResponse](t, rec)
	assert.Equal(t, "hello", resp.Name)
	assert.NotEmpty(t, resp.LogFilePath)

	rec = get(t, router, "/log/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Health(t *testing.T) {
	router, _, monitor := testRouter(t)

	handle := monitor.Watch(api.ModuleDefinition{
		Name:        "api",
		Command:     []string{"./api"},
		Healthcheck: &api.Healthcheck{Command: []string{"probe"}},
	})
	require.NotEmpty(t, handle)

	awaitVerdict(t, monitor, handle, api.HealthSuccessful)

	rec := get(t, router, "/health/"+handle)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.HealthResponse](t, rec)
	require.NotNil(t, resp.HealthcheckStatus)
	assert.Equal(t, api.HealthSuccessful, *resp.HealthcheckStatus)
}

func TestAPI_History(t *testing.T) {
	router, supervisor, _ := testRouter(t)
	history := testHistory(t)

	historyRouter := mux.NewRouter()
	RegisterRoutes(historyRouter, APIConfig{
		Supervisor: supervisor,
		Monitor:    testMonitor(),
		History:    history,
	})

	code, err := supervisor.RunTask(api.ModuleDefinition{Name: "seed", Command: []string{"sh", "-c", "exit 0"}})
	require.NoError(t, err)
	require.Zero(t, code)
	require.NoError(t, history.Record(context.Background(), "seed", "task", "completed"))

	rec := get(t, historyRouter, "/history?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.HistoryResponse](t, rec)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "seed", resp.Events[0].Module)
	assert.Equal(t, "completed", resp.Events[0].Outcome)

	// Without a store the endpoint serves an empty list instead of failing.
	rec = get(t, router, "/history")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[api.HistoryResponse](t, rec).Events)
}

func TestAPI_HealthUnknownHandle(t *testing.T) {
	router, _, _ := testRouter(t)

	rec := get(t, router, "/health/no-such-handle")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[api.HealthResponse](t, rec)
	assert.Nil(t, resp.HealthcheckStatus, "unknown handles poll as no-verdict-yet")
}
