package providers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"llmsweep/internal/logger"
)

// DebugTransport is an http.RoundTripper that records every provider exchange
// as one JSON line on its writer. Credential headers are masked.
type DebugTransport struct {
	base http.RoundTripper
	mu   sync.Mutex
	out  io.Writer
}

// NewDebugTransport wraps base (http.DefaultTransport when nil).
func NewDebugTransport(base http.RoundTripper, out io.Writer) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, out: out}
}

type exchange struct {
	Request  map[string]interface{} `json:"http_request"`
	Response map[string]interface{} `json:"http_response"`
	Timing   map[string]interface{} `json:"timing"`
}

// RoundTrip implements http.RoundTripper.
func (dt *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	requestData := dt.captureRequest(req)

	resp, err := dt.base.RoundTrip(req)
	end := time.Now()

	var responseData map[string]interface{}
	if err != nil {
		responseData = map[string]interface{}{"error": err.Error()}
	} else {
		responseData = dt.captureResponse(resp)
	}

	dt.write(exchange{
		Request:  requestData,
		Response: responseData,
		Timing: map[string]interface{}{
			"request_time":  start.Format(time.RFC3339Nano),
			"response_time": end.Format(time.RFC3339Nano),
			"duration_ms":   end.Sub(start).Milliseconds(),
		},
	})
	return resp, err
}

func (dt *DebugTransport) captureRequest(req *http.Request) map[string]interface{} {
	data := map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": sanitizeHeaders(req.Header),
	}
	if req.Body == nil || req.GetBody == nil {
		return data
	}
	// read a copy so the transport still sends the original body
	body, err := req.GetBody()
	if err != nil {
		return data
	}
	defer body.Close()
	if raw, err := io.ReadAll(body); err == nil {
		data["body"] = bodyValue(raw)
	}
	return data
}

func (dt *DebugTransport) captureResponse(resp *http.Response) map[string]interface{} {
	data := map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     sanitizeHeaders(resp.Header),
	}
	if resp.Body == nil {
		return data
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		data["body_error"] = err.Error()
		return data
	}
	data["body"] = bodyValue(raw)
	return data
}

func (dt *DebugTransport) write(e exchange) {
	line, err := json.Marshal(e)
	if err != nil {
		logger.Error("Failed to encode HTTP trace", "error", err)
		return
	}

	dt.mu.Lock()
	defer dt.mu.Unlock()
	if _, err := dt.out.Write(append(line, '\n')); err != nil {
		logger.Warn("Failed to write HTTP trace", "error", err)
	}
}

// bodyValue keeps JSON bodies structured and falls back to a string.
func bodyValue(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	return string(raw)
}

// sanitizeHeaders masks credential-bearing headers.
func sanitizeHeaders(headers http.Header) map[string][]string {
	const masked = "***[MASKED]***"
	sanitized := make(map[string][]string, len(headers))
	for name, values := range headers {
		lower := strings.ToLower(name)
		switch {
		case lower == "authorization":
			// keeps the scheme and a short prefix, e.g. "Bearer sk-"
			value := masked
			if len(values) > 0 && len(values[0]) > 10 {
				value = values[0][:10] + masked
			}
			sanitized[name] = []string{value}
		case strings.Contains(lower, "api-key") || strings.Contains(lower, "token") || strings.Contains(lower, "authorization"):
			sanitized[name] = []string{masked}
		default:
			sanitized[name] = values
		}
	}
	return sanitized
}
