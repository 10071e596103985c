package config

import (
	"flag"
	"os"
	"strconv"
)

// Config holds all server configuration.
type Config struct {
	// Server
	HTTPPort int
	Host     string

	// Engine
	Workers        int
	LogDir         string
	EventQueueSize int

	// Streaming
	SendBufferSize int

	// Database (empty URI = persistence disabled)
	MongoURI           string
	TradeRetentionDays int
	TradeBufferSize    int

	// Trade archiver (opt-in: only active when ArchiveDir is set)
	ArchiveDir           string
	ArchiveMaxGB         int
	ArchiveIntervalHours int
	ArchiveAfterHours    int
}

func Load() *Config {
	c := &Config{}

	flag.IntVar(&c.HTTPPort, "port", envInt("MATCH_PORT", 8200), "HTTP/WebSocket server port")
	flag.StringVar(&c.Host, "host", envStr("MATCH_HOST", "0.0.0.0"), "Listen host")

	flag.IntVar(&c.Workers, "workers", envInt("MATCH_WORKERS", 0), "Worker pool size (0 = one per CPU)")
	flag.StringVar(&c.LogDir, "log-dir", envStr("MATCH_LOG_DIR", "logs"), "Directory for orders/trades/requests logs")
	flag.IntVar(&c.EventQueueSize, "event-queue", envInt("MATCH_EVENT_QUEUE", 65536), "Event writer queue capacity")

	flag.IntVar(&c.SendBufferSize, "send-buffer", envInt("SEND_BUFFER", 4096), "Per-client send buffer size")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", ""), "MongoDB connection URI (empty = persistence disabled)")
	flag.IntVar(&c.TradeRetentionDays, "trade-retention", envInt("TRADE_RETENTION_DAYS", 7), "Trade retention in days (0 = keep forever)")
	flag.IntVar(&c.TradeBufferSize, "trade-buffer", envInt("TRADE_BUFFER", 4096), "Trade persistence buffer size")

	flag.StringVar(&c.ArchiveDir, "archive-dir", envStr("ARCHIVE_DIR", ""), "Directory for trade archives (empty = disabled)")
	flag.IntVar(&c.ArchiveMaxGB, "archive-max-gb", envInt("ARCHIVE_MAX_GB", 10), "Max total archive size in GB")
	flag.IntVar(&c.ArchiveIntervalHours, "archive-interval", envInt("ARCHIVE_INTERVAL_HOURS", 6), "Hours between archive runs")
	flag.IntVar(&c.ArchiveAfterHours, "archive-after", envInt("ARCHIVE_AFTER_HOURS", 24), "Archive trades older than this many hours")

	flag.Parse()

	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
