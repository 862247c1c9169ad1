package rexel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Response is the uniform result of every successful call. Enveloped
// backend bodies pass through with their own message, status and
// timestamp; bare payloads are wrapped with the HTTP status and the time
// they were received.
type Response struct {
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message,omitempty"`
	Status    int             `json:"status,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`

	// Transport metadata, never part of the envelope.
	HTTPStatus int             `json:"-"`
	Header     http.Header     `json:"-"`
	Body       json.RawMessage `json:"-"`
	Enveloped  bool            `json:"-"`
}

// Decode unmarshals the response data into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Data) == 0 {
		return fmt.Errorf("rexel: response has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// DecodeData unmarshals the response data into a T.
func DecodeData[T any](r *Response) (T, error) {
	var out T
	err := r.Decode(&out)
	return out, err
}

func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	out.Data = cloneRaw(r.Data)
	out.Body = cloneRaw(r.Body)
	out.Header = r.Header.Clone()
	return &out
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	return append(json.RawMessage(nil), b...)
}

// Normalize turns a decoded success body into a Response. A JSON object
// with a "data" key is treated as an envelope and kept as is; anything else
// becomes {data: body, status: httpStatus, timestamp: now}.
func Normalize(body []byte, httpStatus int, now time.Time) *Response {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		trimmed = []byte("null")
	}

	if !json.Valid(trimmed) {
		text, _ := json.Marshal(string(body))
		trimmed = text
	}

	if resp, ok := parseEnvelope(trimmed); ok {
		resp.HTTPStatus = httpStatus
		return resp
	}

	return &Response{
		Data:       json.RawMessage(trimmed),
		Status:     httpStatus,
		Timestamp:  now.UTC().Format(timestampLayout),
		HTTPStatus: httpStatus,
		Body:       json.RawMessage(trimmed),
	}
}

func parseEnvelope(body []byte) (*Response, bool) {
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, false
	}
	data, ok := fields["data"]
	if !ok {
		return nil, false
	}

	resp := &Response{
		Data:      data,
		Body:      json.RawMessage(body),
		Enveloped: true,
	}
	// Envelope fields of an unexpected type stay available through Body.
	if raw, ok := fields["message"]; ok {
		_ = json.Unmarshal(raw, &resp.Message)
	}
	if raw, ok := fields["status"]; ok {
		_ = json.Unmarshal(raw, &resp.Status)
	}
	if raw, ok := fields["timestamp"]; ok {
		_ = json.Unmarshal(raw, &resp.Timestamp)
	}
	return resp, true
}
