// Package config handles environment and file based configuration loading.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// EnvConfig holds all startup settings. Values come from UPSRS_* environment
// variables, falling back to the optional YAML file named by
// UPSRS_CONFIG_FILE, falling back to built-in defaults.
type EnvConfig struct {
	// Directories
	StateDir string

	// Network
	ListenAddress string
	Port          int

	// API
	APIToken        string
	APIMaxBodyBytes int

	// Matching
	MatcherMaxPatterns int

	// Event delivery
	PendingQueueMaxPerSubscriber int

	// Audit log
	AuditLogEnabled         bool
	AuditLogQueueSize       int
	AuditLogFlushBatchSize  int
	AuditLogFlushInterval   time.Duration
	AuditLogRetention       time.Duration
	MaintenanceScheduleSpec string
}

// LoadEnvConfig reads the environment (and the optional config file) and
// returns a validated EnvConfig. All validation failures are collected and
// reported together.
func LoadEnvConfig() (*EnvConfig, error) {
	var errs []string

	file, err := loadFileConfig(os.Getenv("UPSRS_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &EnvConfig{}

	// --- Directories ---
	cfg.StateDir = envStr("UPSRS_STATE_DIR", file.str("state_dir", "/var/lib/upsrs"))

	// --- Network ---
	cfg.ListenAddress = strings.TrimSpace(envStr("UPSRS_LISTEN_ADDRESS", file.str("listen_address", "0.0.0.0")))
	cfg.Port = envInt("UPSRS_PORT", file.integer("port", 8042), &errs)

	// --- API ---
	cfg.APIMaxBodyBytes = envInt("UPSRS_API_MAX_BODY_BYTES", file.integer("api_max_body_bytes", 1<<20), &errs)

	// --- Matching ---
	cfg.MatcherMaxPatterns = envInt("UPSRS_MATCHER_MAX_PATTERNS", file.integer("matcher_max_patterns", 1024), &errs)

	// --- Event delivery ---
	cfg.PendingQueueMaxPerSubscriber = envInt(
		"UPSRS_PENDING_QUEUE_MAX_PER_SUBSCRIBER",
		file.integer("pending_queue_max_per_subscriber", 4096),
		&errs,
	)

	// --- Audit log ---
	cfg.AuditLogEnabled = envBool("UPSRS_AUDIT_LOG_ENABLED", file.boolean("audit_log_enabled", true), &errs)
	cfg.AuditLogQueueSize = envInt("UPSRS_AUDIT_LOG_QUEUE_SIZE", file.integer("audit_log_queue_size", 8192), &errs)
	cfg.AuditLogFlushBatchSize = envInt("UPSRS_AUDIT_LOG_FLUSH_BATCH_SIZE", file.integer("audit_log_flush_batch_size", 512), &errs)
	cfg.AuditLogFlushInterval = envDuration("UPSRS_AUDIT_LOG_FLUSH_INTERVAL", file.duration("audit_log_flush_interval", 30*time.Second), &errs)
	cfg.AuditLogRetention = envDuration("UPSRS_AUDIT_LOG_RETENTION", file.duration("audit_log_retention", 30*24*time.Hour), &errs)
	cfg.MaintenanceScheduleSpec = envStr("UPSRS_MAINTENANCE_SCHEDULE", file.str("maintenance_schedule", "30 3 * * *"))

	// --- Auth (must be defined; empty means auth disabled) ---
	apiToken, hasAPIToken := os.LookupEnv("UPSRS_API_TOKEN")
	if !hasAPIToken {
		apiToken, hasAPIToken = file.lookupStr("api_token")
	}
	cfg.APIToken = apiToken

	// --- Validation ---
	if !hasAPIToken {
		errs = append(errs, "UPSRS_API_TOKEN must be defined (can be empty)")
	}
	if cfg.ListenAddress == "" {
		errs = append(errs, "UPSRS_LISTEN_ADDRESS must not be empty")
	}

	validatePort("UPSRS_PORT", cfg.Port, &errs)
	validatePositive("UPSRS_API_MAX_BODY_BYTES", cfg.APIMaxBodyBytes, &errs)
	validatePositive("UPSRS_MATCHER_MAX_PATTERNS", cfg.MatcherMaxPatterns, &errs)
	if cfg.PendingQueueMaxPerSubscriber < 0 {
		errs = append(errs, fmt.Sprintf("UPSRS_PENDING_QUEUE_MAX_PER_SUBSCRIBER: must be >= 0 (0 disables the bound), got %d", cfg.PendingQueueMaxPerSubscriber))
	}
	validatePositive("UPSRS_AUDIT_LOG_QUEUE_SIZE", cfg.AuditLogQueueSize, &errs)
	validatePositive("UPSRS_AUDIT_LOG_FLUSH_BATCH_SIZE", cfg.AuditLogFlushBatchSize, &errs)
	if cfg.AuditLogFlushInterval <= 0 {
		errs = append(errs, "UPSRS_AUDIT_LOG_FLUSH_INTERVAL must be positive")
	}
	if cfg.AuditLogRetention <= 0 {
		errs = append(errs, "UPSRS_AUDIT_LOG_RETENTION must be positive")
	}
	if _, err := cron.ParseStandard(cfg.MaintenanceScheduleSpec); err != nil {
		errs = append(errs, fmt.Sprintf("UPSRS_MAINTENANCE_SCHEDULE: invalid cron expression %q: %v", cfg.MaintenanceScheduleSpec, err))
	}

	// Queue size must be >= 2x batch size
	if cfg.AuditLogQueueSize < 2*cfg.AuditLogFlushBatchSize {
		errs = append(errs, "UPSRS_AUDIT_LOG_QUEUE_SIZE must be at least 2x UPSRS_AUDIT_LOG_FLUSH_BATCH_SIZE")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envBool(key string, defaultVal bool, errs *[]string) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid boolean %q", key, v))
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}
