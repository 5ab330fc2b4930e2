package logger

import (
	"Agora/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// LogWriter gin 访问日志的输出目标
var LogWriter io.Writer = os.Stdout

func InitLogger() {
	level := ParseLevel(config.Cfg.Log.Level)
	cfg := config.Cfg.Logstash

	var remote io.Writer
	if cfg.Address != "" {
		conn, err := net.DialTimeout("tcp", cfg.Address, 3*time.Second)
		if err != nil {
			log.Warn("Failed to connect to Logstash, logging to stdout only", "err", err)
		} else {
			remote = conn
			LogWriter = conn
		}
	}

	log.SetDefault(log.New(NewHandler(os.Stdout, remote, level, cfg)))
}

// NewHandler 本地 JSON 输出，配置了远端时经过滤后同时上报
func NewHandler(local, remote io.Writer, level log.Level, cfg config.LogstashConfig) log.Handler {
	opts := &log.HandlerOptions{Level: level}
	var h log.Handler = log.NewJSONHandler(local, opts)
	if remote != nil {
		hRemote := log.NewJSONHandler(remote, opts).WithAttrs([]log.Attr{
			log.String("target_index", cfg.Index),
			log.String("log_token", cfg.Token),
		})
		h = &TeeHandler{handlers: []log.Handler{h, &RemoteFilterHandler{next: hRemote}}}
	}
	return &ContextHandler{h}
}

func ParseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
