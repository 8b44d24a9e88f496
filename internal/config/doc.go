// Package config provides configuration management for the PocketBus daemon.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have sensible defaults for development use.
// POCKETBUS_DEBUG enables bus debug logging and raises the log level to
// debug regardless of LOG_LEVEL.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("admin API will listen on %s\n", cfg.GetHTTPAddr())
package config
