// PicoChat - AWS Lambda serverless handler
// Receives API Gateway proxy events and routes them through the chat HTTP handler.
// Sessions live in the warm container; a cold start begins with none.
//
// Environment variables:
//   PICOCHAT_CONFIG_JSON       - Full config JSON (alternative to config file)
//   PICOCHAT_CONFIG_PATH       - Config file path (default: config.json)
//   PICOCHAT_STORE_PATH        - Transcript database path (default: /tmp/picochat/transcripts.db)

package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sipeed/picochat/pkg/auth"
	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/config"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/session"
	"github.com/sipeed/picochat/pkg/transcript"
	"github.com/sipeed/picochat/pkg/web"
)

var (
	httpHandler http.Handler
	cfg         *config.Config
	initOnce    sync.Once
	initErr     error
)

func initialize() error {
	initOnce.Do(func() {
		initErr = doInit()
	})
	return initErr
}

func doInit() error {
	var err error
	cfg, err = loadLambdaConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(os.Stderr, logger.ParseLevel(cfg.Log.Level))

	// Only /tmp is writable on Lambda
	if cfg.Store.Backend == "sqlite" && os.Getenv("PICOCHAT_STORE_PATH") == "" {
		cfg.Store.Path = "/tmp/picochat/transcripts.db"
	}

	store, err := transcript.Open(cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}

	registry := session.NewRegistry(store, session.Options{
		Welcome:   cfg.Chat.WelcomeMessage,
		Responder: chat.PlaceholderResponder{Text: cfg.Chat.ReplyText, Delay: cfg.ReplyDelay()},
		TTL:       cfg.SessionTTL(),
	})
	gate := auth.NewGate(cfg.WebChat.Username, cfg.WebChat.Password)
	httpHandler = web.NewServer(cfg.ListenAddr(), gate, registry, cfg.SessionTTL()).Handler()

	logger.InfoCF("lambda", "Lambda initialized", map[string]interface{}{"store": cfg.Store.Backend})
	return nil
}

func loadLambdaConfig() (*config.Config, error) {
	configPath := os.Getenv("PICOCHAT_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	// PICOCHAT_CONFIG_JSON takes precedence inside LoadConfig
	return config.LoadConfig(configPath)
}

// toHTTPRequest rebuilds the proxied request for the in-process handler.
func toHTTPRequest(ctx context.Context, request events.APIGatewayProxyRequest) (*http.Request, error) {
	body := request.Body
	if request.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("decoding body: %w", err)
		}
		body = string(raw)
	}

	query := url.Values{}
	for k, vs := range request.MultiValueQueryStringParameters {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	for k, v := range request.QueryStringParameters {
		if _, ok := query[k]; !ok {
			query.Set(k, v)
		}
	}

	target := request.Path
	if target == "" {
		target = "/"
	}
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, request.HTTPMethod, target, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range request.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range request.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.RemoteAddr = request.RequestContext.Identity.SourceIP
	return req, nil
}

func toProxyResponse(rec *httptest.ResponseRecorder) events.APIGatewayProxyResponse {
	res := rec.Result()
	headers := make(map[string]string, len(res.Header))
	for k, vs := range res.Header {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        res.StatusCode,
		Headers:           headers,
		MultiValueHeaders: res.Header,
		Body:              rec.Body.String(),
	}
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := initialize(); err != nil {
		logger.ErrorCF("lambda", "Init error", map[string]interface{}{"error": err.Error()})
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError}, nil
	}

	req, err := toHTTPRequest(ctx, request)
	if err != nil {
		logger.WarnCF("lambda", "Bad proxy request", map[string]interface{}{"error": err.Error()})
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	rec := httptest.NewRecorder()
	httpHandler.ServeHTTP(rec, req)
	return toProxyResponse(rec), nil
}

func main() {
	lambda.Start(handler)
}
