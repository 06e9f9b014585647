// Command wearview opens a window wearing the configured cosmetics.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-wearables/internal/config"
	"github.com/Faultbox/midgard-wearables/internal/logger"
	"github.com/Faultbox/midgard-wearables/internal/preview"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "wearview: %v\n", err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "wearview: logger: %v\n", err)
		os.Exit(2)
	}

	err = run(cfg)
	if err != nil {
		logger.Error("wearview stopped", zap.Error(err))
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns the viewer so its deferred Close runs before the process exits.
func run(cfg *config.Config) error {
	logger.Info("starting wearview",
		zap.Strings("roots", cfg.Assets.Roots),
		zap.String("log_level", logger.Level()),
	)
	logger.Debug("config", zap.Any("config", cfg))

	v, err := preview.New(cfg)
	if err != nil {
		return fmt.Errorf("start preview: %w", err)
	}
	defer v.Close()
	return v.Run()
}
