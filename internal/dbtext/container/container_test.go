package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woralem/dbtext/internal/dbtext/config"
	"github.com/woralem/dbtext/internal/dbtext/dbmanager"
	"github.com/woralem/dbtext/internal/dbtext/logger"
	"github.com/woralem/dbtext/internal/dbtext/metrics"
)

type greeter struct{ name string }

func TestRegisterAndResolve(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(&greeter{name: "ada"}))

	var g *greeter
	require.NoError(t, c.Resolve(&g))
	assert.Equal(t, "ada", g.name)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(&greeter{name: "ada"}))
	assert.Error(t, c.Register(&greeter{name: "grace"}))
}

func TestResolveFactory(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterFactory(func() (*greeter, error) {
		return &greeter{name: "lazy"}, nil
	}))

	var g *greeter
	require.NoError(t, c.Resolve(&g))
	assert.Equal(t, "lazy", g.name)
}

func TestResolveUnregisteredFails(t *testing.T) {
	c := New()
	var g *greeter
	assert.Error(t, c.Resolve(&g))
}

func TestClearRemovesEverything(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(&greeter{name: "ada"}))
	c.Clear()

	var g *greeter
	assert.Error(t, c.Resolve(&g))
}

func TestBootstrapWiresCoreServices(t *testing.T) {
	c, err := Bootstrap(config.Default())
	require.NoError(t, err)

	var log *logger.Logger
	require.NoError(t, c.Resolve(&log))
	assert.NotNil(t, log)

	var collector *metrics.Collector
	require.NoError(t, c.Resolve(&collector))
	assert.NotNil(t, collector)

	var mgr *dbmanager.Manager
	require.NoError(t, c.Resolve(&mgr))
	assert.True(t, mgr.Exists(dbmanager.DefaultDatabaseName))
}
