package app

import (
	"jobalert/internal/config"
	"jobalert/internal/storage"
	logx "jobalert/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) storage.Config {
	sc := cfg.Storage
	return storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		DSN:         sc.DSN,
		Addr:        sc.Addr,
		Password:    sc.Password,
		DB:          sc.DB,
		KeyPrefix:   sc.KeyPrefix,
		BusyTimeout: sc.BusyTimeoutOrDefault(),
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// OpenStore opens the configured store. Used by the admin CLI.
func OpenStore(cfg *config.Config, log logx.Logger) (storage.Store, error) {
	return storage.Open(mapStorageConfig(cfg), log.With(logx.String("comp", "storage")))
}
