// Package daemon implements the caraveld execution backend: process
// supervision for services and tasks, healthcheck monitoring, a deployment
// history store, and the HTTP API the caravel client consumes.
package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/artpar/caravel/internal/api"
)

// =============================================================================
// Supervisor
// =============================================================================

// Supervisor owns the service and task processes the daemon runs. One
// process per module name; redeploying a running service replaces it only
// when forced.
type Supervisor struct {
	logDir string
	logger *slog.Logger

	mu       sync.Mutex
	services map[string]*process
	tasks    map[string]*taskRecord
}

// process tracks one supervised service process.
type process struct {
	def       api.ModuleDefinition
	cmd       *exec.Cmd
	logFile   *os.File
	startedAt time.Time

	mu       sync.Mutex
	running  bool
	exitCode int
}

// taskRecord remembers the last run of a one-shot task, for /status.
type taskRecord struct {
	def       api.ModuleDefinition
	startedAt time.Time
	exitCode  int
}

// NewSupervisor creates a supervisor writing module logs under logDir.
func NewSupervisor(logDir string, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		logDir:   logDir,
		logger:   logger,
		services: make(map[string]*process),
		tasks:    make(map[string]*taskRecord),
	}
}

// Deploy starts the service described by def. When the service is already
// running and force is false, nothing happens and deployed is false; that
// outcome is not an error. Otherwise any previous process is stopped and a
// fresh one started.
func (s *Supervisor) Deploy(def api.ModuleDefinition, force bool) (deployed bool, err error) {
	s.mu.Lock()
	existing, ok := s.services[def.Name]
	s.mu.Unlock()

	if ok && existing.isRunning() {
		if !force {
			return false, nil
		}
		if err := s.stopProcess(existing); err != nil {
			return false, fmt.Errorf("stop %q before redeploy: %w", def.Name, err)
		}
	}

	proc, err := s.startProcess(def)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.services[def.Name] = proc
	s.mu.Unlock()

	s.logger.Info("service deployed", "module", def.Name, "pid", proc.cmd.Process.Pid)
	return true, nil
}

// RunTask runs a one-shot task to completion and returns its exit code.
func (s *Supervisor) RunTask(def api.ModuleDefinition) (int, error) {
	if len(def.Command) == 0 {
		return 0, fmt.Errorf("task %q has no command", def.Name)
	}

	logFile, err := s.openLog(def)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command(def.Command[0], def.Command[1:]...)
	cmd.Dir = def.WorkingDir
	cmd.Env = mergeEnv(def.Environment)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	started := time.Now()
	runErr := cmd.Run()

	code := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return 0, fmt.Errorf("run task %q: %w", def.Name, runErr)
		}
		code = exitErr.ExitCode()
	}

	s.mu.Lock()
	s.tasks[def.Name] = &taskRecord{def: def, startedAt: started, exitCode: code}
	s.mu.Unlock()

	s.logger.Info("task finished", "module", def.Name, "exit_code", code)
	return code, nil
}

// Stop stops a running service module.
func (s *Supervisor) Stop(name string) error {
	s.mu.Lock()
	proc, ok := s.services[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("module %q is not deployed", name)
	}
	if !proc.isRunning() {
		return fmt.Errorf("module %q is not running", name)
	}
	return s.stopProcess(proc)
}

// Restart stops a service module if running and starts it again with its
// last known definition.
func (s *Supervisor) Restart(name string) error {
	s.mu.Lock()
	proc, ok := s.services[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("module %q is not deployed", name)
	}
	if proc.isRunning() {
		if err := s.stopProcess(proc); err != nil {
			return err
		}
	}

	fresh, err := s.startProcess(proc.def)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.services[name] = fresh
	s.mu.Unlock()
	return nil
}

// StopAll stops every running service. Used during daemon shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	procs := make([]*process, 0, len(s.services))
	for _, p := range s.services {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	for _, p := range procs {
		if p.isRunning() {
			if err := s.stopProcess(p); err != nil {
				s.logger.Warn("stop during shutdown failed", "module", p.def.Name, "error", err)
			}
		}
	}
}

// Status reports every known module, services and tasks alike, sorted by
// name for stable output.
func (s *Supervisor) Status() []api.ModuleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]api.ModuleStatus, 0, len(s.services)+len(s.tasks))
	for name, proc := range s.services {
		row := api.ModuleStatus{
			Name:      name,
			Kind:      "service",
			StartedAt: proc.startedAt.Format(time.RFC3339),
		}
		if proc.isRunning() {
			row.Status = "running"
			row.Pid = proc.cmd.Process.Pid
		} else {
			row.Status = "exited"
			code := proc.currentExitCode()
			row.ExitCode = &code
		}
		rows = append(rows, row)
	}
	for name, task := range s.tasks {
		code := task.exitCode
		rows = append(rows, api.ModuleStatus{
			Name:      name,
			Kind:      "task",
			Status:    "exited",
			ExitCode:  &code,
			StartedAt: task.startedAt.Format(time.RFC3339),
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

// LogPath returns where a module's log is written.
func (s *Supervisor) LogPath(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if proc, ok := s.services[name]; ok {
		return s.resolveLogPath(proc.def), nil
	}
	if task, ok := s.tasks[name]; ok {
		return s.resolveLogPath(task.def), nil
	}
	return "", fmt.Errorf("module %q is not known", name)
}

// =============================================================================
// Process Lifecycle
// =============================================================================

func (s *Supervisor) startProcess(def api.ModuleDefinition) (*process, error) {
	if len(def.Command) == 0 {
		return nil, fmt.Errorf("module %q has no command", def.Name)
	}

	logFile, err := s.openLog(def)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(def.Command[0], def.Command[1:]...)
	cmd.Dir = def.WorkingDir
	cmd.Env = mergeEnv(def.Environment)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("start %q: %w", def.Name, err)
	}

	proc := &process{
		def:       def,
		cmd:       cmd,
		logFile:   logFile,
		startedAt: time.Now(),
		running:   true,
	}

	// Reap the process when it exits so Status never reports zombies.
	go func() {
		err := cmd.Wait()
		code := 0
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		proc.markExited(code)
		logFile.Close()
		s.logger.Info("service exited", "module", def.Name, "exit_code", code)
	}()

	return proc, nil
}

func (s *Supervisor) stopProcess(proc *process) error {
	if !proc.isRunning() {
		return nil
	}
	if err := proc.cmd.Process.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("signal %q: %w", proc.def.Name, err)
	}

	// Grace period before a hard kill.
	for i := 0; i < 50; i++ {
		if !proc.isRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := proc.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill %q: %w", proc.def.Name, err)
	}
	return nil
}

func (s *Supervisor) openLog(def api.ModuleDefinition) (*os.File, error) {
	path := s.resolveLogPath(def)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %q: %w", path, err)
	}
	return f, nil
}

func (s *Supervisor) resolveLogPath(def api.ModuleDefinition) string {
	if def.LogFilePath != "" {
		return def.LogFilePath
	}
	return filepath.Join(s.logDir, def.Name+".log")
}

func (p *process) isRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *process) currentExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func (p *process) markExited(code int) {
	p.mu.Lock()
	p.running = false
	p.exitCode = code
	p.mu.Unlock()
}

func mergeEnv(env map[string]string) []string {
	merged := os.Environ()
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	return merged
}
