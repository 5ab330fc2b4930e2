package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"time"
)

// HTTPTransport 记录对外 HTTP 调用（身份服务等）
type HTTPTransport struct {
	Transport http.RoundTripper
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{Transport: http.DefaultTransport}
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Duration("latency", elapsed),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "HTTP Call Error", append(fields, log.Any("err", err))...)
		return nil, err
	}

	fields = append(fields, log.Int("status", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest && resp.Body != nil {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewReader(body))
		log.WarnContext(req.Context(), "HTTP Call Failed", append(fields, log.String("res_body", string(body)))...)
		return resp, nil
	}

	if elapsed > 500*time.Millisecond {
		log.WarnContext(req.Context(), "HTTP Call Slow", fields...)
	} else {
		log.InfoContext(req.Context(), "HTTP Call", fields...)
	}

	return resp, nil
}
