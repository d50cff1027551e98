package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPRequest(t *testing.T) {
	req, err := toHTTPRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/login",
		Headers:               map[string]string{"Content-Type": "application/json"},
		QueryStringParameters: map[string]string{"next": "/"},
		Body:                  base64.StdEncoding.EncodeToString([]byte(`{"username":"user"}`)),
		IsBase64Encoded:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/login", req.URL.Path)
	assert.Equal(t, "/", req.URL.Query().Get("next"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"username":"user"}`, string(body))
}

func TestToHTTPRequest_BadBase64(t *testing.T) {
	_, err := toHTTPRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/",
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	assert.Error(t, err)
}

func TestToProxyResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.Header().Add("Set-Cookie", "a=1")
	rec.Header().Add("Set-Cookie", "b=2")
	rec.WriteHeader(http.StatusAccepted)
	_, _ = rec.WriteString(`{"ok":true}`)

	res := toProxyResponse(rec)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, `{"ok":true}`, res.Body)
	assert.Equal(t, "application/json", res.Headers["Content-Type"])
	assert.Equal(t, []string{"a=1", "b=2"}, res.MultiValueHeaders["Set-Cookie"])
}
