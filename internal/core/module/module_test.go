package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_IdentityByName(t *testing.T) {
	a := Definition{Kind: KindService, Name: "api", Command: []string{"./api"}}
	b := Definition{Kind: KindTask, Name: "api", Command: []string{"./other"}}
	c := Definition{Kind: KindService, Name: "web", Command: []string{"./api"}}

	assert.Equal(t, "api", a.Key())
	assert.True(t, a.Equal(&b), "same name means same module, whatever the rest says")
	assert.False(t, a.Equal(&c))
	assert.False(t, a.Equal(nil))
}

func TestDefinition_MergedEnvironment_SetOverridesBase(t *testing.T) {
	def := Definition{
		Kind:        KindService,
		Name:        "svc",
		Command:     []string{"./svc"},
		Environment: map[string]string{"var1": "var1-base", "var2": "var2-base"},
		EnvironmentSets: map[string]map[string]string{
			"debug": {"var1": "var1-debug", "var3": "var3-debug"},
		},
	}

	merged := def.MergedEnvironment([]string{"debug"})

	assert.Equal(t, map[string]string{
		"var1": "var1-debug",
		"var2": "var2-base",
		"var3": "var3-debug",
	}, merged)
}

func TestDefinition_MergedEnvironment_LaterSetsWin(t *testing.T) {
	def := Definition{
		Kind:        KindService,
		Name:        "svc",
		Command:     []string{"./svc"},
		Environment: map[string]string{"var1": "var1-base", "var2": "var2-base"},
		EnvironmentSets: map[string]map[string]string{
			"debug":   {"var2": "var2-debug", "var3": "var3-debug", "var4": "var4-debug", "var5": "var5-debug"},
			"staging": {"var3": "var3-staging", "var4": "var4-staging", "var6": "var6-staging"},
			"prod":    {"var4": "var4-prod", "var7": "var7-prod"},
		},
	}

	merged := def.MergedEnvironment([]string{"debug", "staging", "prod"})

	assert.Equal(t, map[string]string{
		"var1": "var1-base",
		"var2": "var2-debug",
		"var3": "var3-staging",
		"var4": "var4-prod",
		"var5": "var5-debug",
		"var6": "var6-staging",
		"var7": "var7-prod",
	}, merged)
}

func TestDefinition_MergedEnvironment_UndeclaredSetIsSkipped(t *testing.T) {
	def := Definition{
		Kind:        KindService,
		Name:        "svc",
		Command:     []string{"./svc"},
		Environment: map[string]string{"var1": "var1-base"},
	}

	merged := def.MergedEnvironment([]string{"debug"})
	assert.Equal(t, map[string]string{"var1": "var1-base"}, merged)
}

func TestDefinition_MergedEnvironment_NoSetsReturnsBase(t *testing.T) {
	def := Definition{
		Kind:        KindService,
		Name:        "svc",
		Environment: map[string]string{"var1": "var1-base"},
	}
	assert.Equal(t, def.Environment, def.MergedEnvironment(nil))
}

func TestSplitChecks_ExtractsChecks(t *testing.T) {
	defs := []Definition{
		{Kind: KindService, Name: "api", Command: []string{"./api"}, Checks: []string{"db-ready"}},
		{Kind: KindCheck, Name: "db-ready", About: "Database reachable", Help: "Start the database first.", Probe: []string{"pg_isready"}},
		{Kind: KindTask, Name: "migrate", Command: []string{"./migrate"}},
	}

	deployable, checks := SplitChecks(defs)

	require.Len(t, deployable, 2)
	assert.Equal(t, "api", deployable[0].Name)
	assert.Equal(t, "migrate", deployable[1].Name)

	require.Contains(t, checks, "db-ready")
	check := checks["db-ready"]
	assert.Equal(t, "Database reachable", check.About)
	assert.Equal(t, "Start the database first.", check.Help)
	assert.Equal(t, []string{"pg_isready"}, check.Probe)
}

func TestSplitChecks_NoChecks(t *testing.T) {
	defs := []Definition{
		{Kind: KindService, Name: "api", Command: []string{"./api"}},
	}
	deployable, checks := SplitChecks(defs)
	assert.Len(t, deployable, 1)
	assert.Empty(t, checks)
}

func TestNamesSet(t *testing.T) {
	defs := []Definition{
		{Kind: KindService, Name: "api"},
		{Kind: KindGroup, Name: "all"},
	}
	names := NamesSet(defs)
	assert.Contains(t, names, "api")
	assert.Contains(t, names, "all")
	assert.NotContains(t, names, "ghost")
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindTask.Valid())
	assert.True(t, KindService.Valid())
	assert.True(t, KindGroup.Valid())
	assert.True(t, KindCheck.Valid())
	assert.False(t, Kind("daemonset").Valid())
}
