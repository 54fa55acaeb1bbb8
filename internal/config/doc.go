// Package config manages application configuration for the GoodJobs API.
//
// Configuration is layered: Defaults, then an optional YAML file
// (LoadOptions.ConfigFile or $CONFIG_FILE), then environment variables,
// which may be preloaded from a dotenv file. Later layers win.
//
//	cfg, err := config.Load(config.LoadOptions{EnvFile: ".env"})
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// # Environment Variables
//
//	PORT, SERVER_ENV, SERVER_*_TIMEOUT     - HTTP server
//	CORS_ALLOWED_ORIGINS                   - comma separated
//	RATE_LIMIT_ENABLED/RATE/WINDOW/BURST   - per-client limits
//	DB_DRIVER                              - postgres (default) or sqlite
//	DATABASE_URL or DB_HOST/PORT/USER/...  - connection
//	DB_AUTO_MIGRATE                        - create tables at startup
//	JWT_SECRET, JWT_ISSUER                 - token signing (secret required in production)
//	PASSWORD_HASHER, BCRYPT_COST           - sha256 (default) or bcrypt
//	AUDIT_ENABLED, AUDIT_SCHEDULE          - background ledger audit
//	LOG_LEVEL                              - debug, info, warn, error
package config
