package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/m4xw311/restgpt/budget"
	"github.com/m4xw311/restgpt/errors"
)

// Methods are the HTTP methods the agent may use.
var Methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

const (
	maxBodyBytes    = 4 << 20
	maxErrorExcerpt = 300
)

// Request is a fully resolved API call.
type Request struct {
	Method string
	URL    string
	Params map[string]interface{}
	Data   interface{}
}

// Response is the outcome of a successful (2xx) call. JSON is nil when the
// body is empty or not JSON.
type Response struct {
	Status int
	Body   []byte
	JSON   interface{}
}

// RequestTool performs HTTP calls with a single method.
type RequestTool struct {
	method  string
	client  *http.Client
	headers map[string]string
}

func NewRequestTool(method string, client *http.Client, headers map[string]string) *RequestTool {
	if client == nil {
		client = http.DefaultClient
	}
	return &RequestTool{method: strings.ToUpper(method), client: client, headers: headers}
}

func toolName(method string) string {
	return "requests_" + strings.ToLower(method)
}

func (t *RequestTool) Name() string { return toolName(t.method) }

func (t *RequestTool) Description() string {
	desc := fmt.Sprintf("Sends an HTTP %s request. Args: url (string), params (object, optional)", t.method)
	if t.method != http.MethodGet && t.method != http.MethodDelete {
		desc += ", data (object, optional JSON body)"
	}
	return desc + "."
}

// Execute implements Tool by returning the raw response body.
func (t *RequestTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	rawURL, ok := args["url"].(string)
	if !ok || rawURL == "" {
		return "", errors.Mark(errors.ErrExecution, "missing or invalid 'url' argument")
	}
	req := Request{Method: t.method, URL: rawURL, Data: args["data"]}
	if params, ok := args["params"].(map[string]interface{}); ok {
		req.Params = params
	}
	resp, err := t.Do(ctx, req)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// Do sends req. Transport failures and non-2xx statuses are ErrExecution.
func (t *RequestTool) Do(ctx context.Context, req Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Mark(errors.ErrExecution, "invalid url %q", req.URL)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, paramString(v))
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Data != nil {
		data, err := json.Marshal(req.Data)
		if err != nil {
			return nil, errors.MarkWrap(err, errors.ErrExecution, "could not encode request body")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, t.method, u.String(), body)
	if err != nil {
		return nil, errors.MarkWrap(err, errors.ErrExecution, "could not build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.MarkWrap(err, errors.ErrExecution, "%s %s", t.method, u.Path)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.MarkWrap(err, errors.ErrExecution, "reading response of %s %s", t.method, u.Path)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, errors.Mark(errors.ErrExecution, "%s %s returned status %d: %s", t.method, u.Path, httpResp.StatusCode, excerpt(data))
	}

	resp := &Response{Status: httpResp.StatusCode, Body: data}
	if len(bytes.TrimSpace(data)) > 0 {
		var parsed interface{}
		if err := json.Unmarshal(data, &parsed); err == nil {
			resp.JSON = parsed
		}
	}
	return resp, nil
}

// paramString renders a query value; lists become comma-separated, the
// convention of most REST APIs for multi-valued ids.
func paramString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		parts := make([]string, len(val))
		for i, p := range val {
			parts[i] = paramString(p)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(val, ",")
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprint(val)
	}
}

func excerpt(b []byte) string {
	s := budget.Clip(strings.Join(strings.Fields(string(b)), " "), maxErrorExcerpt)
	if s == "" {
		return "(empty body)"
	}
	return s
}
