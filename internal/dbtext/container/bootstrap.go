package container

import (
	"github.com/woralem/dbtext/internal/dbtext/config"
	"github.com/woralem/dbtext/internal/dbtext/dbmanager"
	"github.com/woralem/dbtext/internal/dbtext/logger"
	"github.com/woralem/dbtext/internal/dbtext/metrics"
)

// Bootstrap builds a Container pre-populated with the engine's core
// services (Logger, ActivityLogger, metrics.Collector, dbmanager.Manager)
// wired from cfg, the way cmd/dbtext's main() starts the process.
func Bootstrap(cfg config.Config) (*Container, error) {
	c := New()

	log := logger.New(logger.Config{Level: cfg.LogLevelValue(), Outputs: cfg.LogOutputs()})
	if err := c.Register(log); err != nil {
		return nil, err
	}

	collector := metrics.New()
	if err := c.Register(collector); err != nil {
		return nil, err
	}

	activity := logger.NewActivityLogger(log)
	if err := c.Register(activity); err != nil {
		return nil, err
	}

	mgr, err := dbmanager.New(dbmanager.Options{
		DataDir:  cfg.DataDir,
		Metrics:  collector,
		Log:      log,
		Activity: activity,
	})
	if err != nil {
		return nil, err
	}
	if err := c.Register(mgr); err != nil {
		return nil, err
	}

	return c, nil
}
