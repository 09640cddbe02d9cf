package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/artpar/caravel/internal/api"
)

// =============================================================================
// HTTP API
// =============================================================================

// APIConfig wires the daemon's HTTP handlers to their collaborators.
type APIConfig struct {
	Supervisor *Supervisor
	Monitor    *Monitor
	History    *History // optional; nil disables event recording
	Logger     *slog.Logger
}

// RegisterRoutes registers the daemon API on router.
//
// Every response body is either a success payload or the error envelope
// {"message": "..."}; the client decodes them by content.
func RegisterRoutes(router *mux.Router, cfg APIConfig) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	router.HandleFunc("/deploy", deployHandler(cfg)).Methods("POST")
	router.HandleFunc("/tasks/deploy", deployTaskHandler(cfg)).Methods("POST")
	router.HandleFunc("/operation", operationHandler(cfg)).Methods("POST")
	router.HandleFunc("/status", statusHandler(cfg)).Methods("GET")
	router.HandleFunc("/log/{module_name}", logHandler(cfg)).Methods("GET")
	router.HandleFunc("/health/{handle}", healthHandler(cfg)).Methods("GET")
	router.HandleFunc("/history", historyHandler(cfg)).Methods("GET")
}

func deployHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd api.DeployCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid deploy command: "+err.Error())
			return
		}
		if len(cmd.ToDeploy) == 0 {
			writeError(w, http.StatusBadRequest, "nothing to deploy")
			return
		}

		defs := make(map[string]api.ModuleDefinition, len(cmd.ModuleDefinitions))
		for _, d := range cmd.ModuleDefinitions {
			defs[d.Name] = d
		}

		var resp api.DeployResponse
		for _, name := range cmd.ToDeploy {
			def, ok := defs[name]
			if !ok {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("no definition for module %q", name))
				return
			}

			deployed, err := cfg.Supervisor.Deploy(def, cmd.Force)
			if err != nil {
				record(cfg, r, name, "deploy", "failed")
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}

			resp = api.DeployResponse{Deployed: deployed}
			if deployed {
				resp.Monitor = cfg.Monitor.Watch(def)
				record(cfg, r, name, "deploy", "deployed")
			} else {
				record(cfg, r, name, "deploy", "already_deployed")
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func deployTaskHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd api.TaskDeployCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid task command: "+err.Error())
			return
		}

		name := cmd.TaskDefinition.Name
		code, err := cfg.Supervisor.RunTask(cmd.TaskDefinition)
		if err != nil {
			record(cfg, r, name, "task", "failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if code != 0 {
			record(cfg, r, name, "task", "failed")
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("task %q exited with code %d", name, code))
			return
		}

		record(cfg, r, name, "task", "completed")
		writeJSON(w, http.StatusOK, api.TaskDeployResponse{Completed: true, ExitCode: code})
	}
}

func operationHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cmd api.OperationCommand
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid operation command: "+err.Error())
			return
		}

		var (
			err    error
			status string
		)
		switch cmd.Operation {
		case api.OperationStop:
			err = cfg.Supervisor.Stop(cmd.ModuleName)
			status = "stopped"
		case api.OperationRestart:
			err = cfg.Supervisor.Restart(cmd.ModuleName)
			status = "restarted"
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown operation %q", cmd.Operation))
			return
		}
		if err != nil {
			record(cfg, r, cmd.ModuleName, string(cmd.Operation), "failed")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		record(cfg, r, cmd.ModuleName, string(cmd.Operation), status)
		writeJSON(w, http.StatusOK, api.OperationResponse{Status: status})
	}
}

func statusHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.StatusResponse{Modules: cfg.Supervisor.Status()})
	}
}

func logHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["module_name"]
		path, err := cfg.Supervisor.LogPath(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, api.LogResponse{Name: name, LogFilePath: path})
	}
}

func healthHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle := mux.Vars(r)["handle"]
		resp := api.HealthResponse{}
		if status, ok := cfg.Monitor.Status(handle); ok {
			resp.HealthcheckStatus = &status
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func historyHandler(cfg APIConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.History == nil {
			writeJSON(w, http.StatusOK, api.HistoryResponse{Events: []api.HistoryEvent{}})
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := cfg.History.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		resp := api.HistoryResponse{Events: make([]api.HistoryEvent, len(events))}
		for i, e := range events {
			resp.Events[i] = api.HistoryEvent{
				Module:    e.Module,
				Action:    e.Action,
				Outcome:   e.Outcome,
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// =============================================================================
// Response Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Message: message})
}

func record(cfg APIConfig, r *http.Request, module, action, outcome string) {
	if cfg.History == nil {
		return
	}
	if err := cfg.History.Record(r.Context(), module, action, outcome); err != nil {
		cfg.Logger.Warn("record deployment event failed",
			"module", module,
			"action", action,
			"error", err,
		)
	}
}
