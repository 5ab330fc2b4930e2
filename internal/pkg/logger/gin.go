package logger

import (
	"Agora/internal/api/config"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupGin 注册访问日志与 Recovery，访问日志带 trace_id 与调用者
func SetupGin(r *gin.Engine) {
	var index, token string
	if config.Cfg != nil {
		index, token = config.Cfg.Logstash.Index, config.Cfg.Logstash.Token
	}

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    LogWriter,
		SkipPaths: []string{"/api/ping"},
		Formatter: func(p gin.LogFormatterParams) string {
			var traceID string
			var userID uint64
			if p.Keys != nil {
				traceID, _ = p.Keys[TraceIDKey].(string)
				userID, _ = p.Keys["user_id"].(uint64)
			}
			if traceID == "" && p.Request != nil {
				traceID = TraceID(p.Request.Context())
			}

			return fmt.Sprintf(
				`{"time":"%s","level":"INFO","msg":"GIN_ACCESS","trace_id":"%s","log_token":"%s","target_index":"%s","method":"%s","path":"%s","status":%d,"latency":"%v","user_id":%d}`+"\n",
				p.TimeStamp.Format(time.RFC3339),
				traceID,
				token,
				index,
				p.Method,
				p.Path,
				p.StatusCode,
				p.Latency,
				userID,
			)
		},
	}))

	r.Use(gin.Recovery())
}
