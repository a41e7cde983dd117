// Package config holds process configuration for the tvcore engine, loaded
// from the environment with the same getEnv*/default-value conventions the
// rest of this codebase uses for its ambient settings.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds engine-wide settings: storage layout, grace periods, the
// post-processor command line, and logger subsystem defaults.
type Config struct {
	// Storage
	StorageRoot  string // DVR recording root, e.g. /var/lib/tvcore/recordings
	PerDayDir    bool   // append YYYY-MM-DD subdirectory
	PerChannelDir bool  // append channel-name subdirectory
	PerTitleDir  bool   // append title subdirectory
	DirMode      os.FileMode
	Charset      string // target charset for filename sanitation; "" = UTF-8 passthrough

	// Recording behavior
	SkipCommercials  bool
	GracePeriod      time.Duration // default data-timeout grace period
	DataTimeoutEvery time.Duration // data-timeout callback interval (spec default: 5s)
	PostProcCommand  string        // tokenized post-processor command line; "" = disabled

	// Persistence
	RecordStorePath string // sqlite DB path for persisted service records

	// Recording browser (FUSE)
	RecFSMount string // optional mountpoint for the read-only recordings tree; "" = disabled

	// Metrics
	MetricsAddr string // listen address for the /metrics endpoint; "" = disabled

	// CAPMT subprocess supervision
	CAPMTCommand []string      // argv for the CAPMT helper process; empty = CAPMT disabled
	CAPMTRestart bool          // restart the CAPMT helper on exit
	CAPMTRestartDelay time.Duration
	// CAPMTSocketToken authenticates this process's own control-socket
	// handshake with the CAM hardware. The supervised CAPMT helper
	// subprocess authenticates independently via its own command line and
	// must never receive this value just because it inherits our
	// environment; see internal/supervisor's child env filtering.
	CAPMTSocketToken string

	// Logger
	LogQueueCapacity int // bounded log queue depth (spec default: 10000)
	LogFile          string
	LogStderrColor   bool
}

// Load reads Config from the environment. Call LoadEnvFile(".env") first to
// seed the environment from a dotenv-style file.
func Load() *Config {
	c := &Config{
		StorageRoot:       getEnv("TVCORE_STORAGE_ROOT", "/var/lib/tvcore/recordings"),
		PerDayDir:         getEnvBool("TVCORE_PER_DAY_DIR", false),
		PerChannelDir:     getEnvBool("TVCORE_PER_CHANNEL_DIR", true),
		PerTitleDir:       getEnvBool("TVCORE_PER_TITLE_DIR", false),
		DirMode:           os.FileMode(getEnvUint32("TVCORE_DIR_MODE", 0o755)),
		Charset:           getEnv("TVCORE_CHARSET", ""),
		SkipCommercials:   getEnvBool("TVCORE_SKIP_COMMERCIALS", false),
		GracePeriod:       getEnvDuration("TVCORE_GRACE_PERIOD", 10*time.Second),
		DataTimeoutEvery:  getEnvDuration("TVCORE_DATA_TIMEOUT_INTERVAL", 5*time.Second),
		PostProcCommand:   os.Getenv("TVCORE_POSTPROC_COMMAND"),
		RecordStorePath:   getEnv("TVCORE_RECORD_STORE", "./tvcore-records.db"),
		RecFSMount:        os.Getenv("TVCORE_RECFS_MOUNT"),
		MetricsAddr:       os.Getenv("TVCORE_METRICS_ADDR"),
		CAPMTRestart:      getEnvBool("TVCORE_CAPMT_RESTART", true),
		CAPMTRestartDelay: getEnvDuration("TVCORE_CAPMT_RESTART_DELAY", 2*time.Second),
		CAPMTSocketToken:  os.Getenv("TVCORE_CAPMT_SOCKET_TOKEN"),
		LogQueueCapacity:  getEnvInt("TVCORE_LOG_QUEUE_CAPACITY", 10000),
		LogFile:           os.Getenv("TVCORE_LOG_FILE"),
		LogStderrColor:    getEnvBool("TVCORE_LOG_COLOR", true),
	}
	if cmdline := os.Getenv("TVCORE_CAPMT_COMMAND"); cmdline != "" {
		c.CAPMTCommand = strings.Fields(cmdline)
	}
	if c.LogQueueCapacity <= 0 {
		c.LogQueueCapacity = 10000
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 10 * time.Second
	}
	if c.DataTimeoutEvery <= 0 {
		c.DataTimeoutEvery = 5 * time.Second
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvUint32(key string, defaultVal uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseUint(v, 0, 32)
	if err != nil {
		return defaultVal
	}
	return uint32(n)
}
