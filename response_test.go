package rexel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalizeWrapsBarePayload(t *testing.T) {
	resp := Normalize([]byte(`[{"id":1},{"id":2}]`), 200, testNow)

	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(resp.Data))
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "2024-03-01T12:00:00.000Z", resp.Timestamp)
	assert.Empty(t, resp.Message)
	assert.False(t, resp.Enveloped)
}

func TestNormalizeKeepsEnvelope(t *testing.T) {
	body := []byte(`{"data":{"id":7},"message":"created","status":201,"timestamp":"2024-01-01T00:00:00.000Z"}`)

	resp := Normalize(body, 201, testNow)

	assert.True(t, resp.Enveloped)
	assert.JSONEq(t, `{"id":7}`, string(resp.Data))
	assert.Equal(t, "created", resp.Message)
	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", resp.Timestamp)
	assert.Equal(t, 201, resp.HTTPStatus)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize([]byte(`{"name":"cable"}`), 200, testNow)
	encoded, err := json.Marshal(first)
	require.NoError(t, err)

	second := Normalize(encoded, 200, testNow.Add(time.Hour))

	assert.JSONEq(t, string(first.Data), string(second.Data))
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, first.Message, second.Message)
}

func TestNormalizeObjectWithoutDataKey(t *testing.T) {
	resp := Normalize([]byte(`{"status":"ok"}`), 200, testNow)

	assert.False(t, resp.Enveloped)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Data))
}

func TestNormalizeNonJSONBody(t *testing.T) {
	resp := Normalize([]byte("OK"), 200, testNow)

	assert.Equal(t, `"OK"`, string(resp.Data))
}

func TestNormalizeEmptyBody(t *testing.T) {
	resp := Normalize(nil, 204, testNow)

	assert.Equal(t, "null", string(resp.Data))
	assert.Equal(t, 204, resp.Status)
}

func TestDecodeData(t *testing.T) {
	type product struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	resp := Normalize([]byte(`{"data":[{"id":1,"name":"cable"}]}`), 200, testNow)

	products, err := DecodeData[[]product](resp)

	require.NoError(t, err)
	assert.Equal(t, []product{{ID: 1, Name: "cable"}}, products)
}

func TestDecodeEmptyResponse(t *testing.T) {
	var resp *Response
	_, err := DecodeData[map[string]any](resp)
	assert.Error(t, err)
}
