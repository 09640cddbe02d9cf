package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/caravel/internal/core/module"
)

func TestRunExec_RunsInModuleWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))

	defs := []module.Definition{
		{Kind: module.KindService, Name: "svc", Command: []string{"./svc"}, WorkingDir: dir},
	}

	var out bytes.Buffer
	err := runExec(context.Background(), &out, defs, "svc", []string{"ls"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "marker.txt")
}

func TestRunExec_ModuleEnvironmentApplied(t *testing.T) {
	defs := []module.Definition{
		{Kind: module.KindService, Name: "svc", Command: []string{"./svc"},
			Environment: map[string]string{"GREETING": "hello"}},
	}

	var out bytes.Buffer
	err := runExec(context.Background(), &out, defs, "svc", []string{"sh", "-c", "echo $GREETING"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "hello")
}

func TestRunExec_UnknownModule(t *testing.T) {
	var out bytes.Buffer
	err := runExec(context.Background(), &out, nil, "ghost", []string{"true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRunExec_CheckModuleRejected(t *testing.T) {
	defs := []module.Definition{
		{Kind: module.KindCheck, Name: "db-ready", Probe: []string{"pg_isready"}},
	}
	var out bytes.Buffer
	err := runExec(context.Background(), &out, defs, "db-ready", []string{"true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check")
}

func TestRunExec_NonZeroExit(t *testing.T) {
	defs := []module.Definition{
		{Kind: module.KindService, Name: "svc", Command: []string{"./svc"}},
	}
	var out bytes.Buffer
	err := runExec(context.Background(), &out, defs, "svc", []string{"sh", "-c", "echo oops; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, out.String(), "oops", "output is shown even when the command fails")
}
