package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/amp-labs/statecrawler/binding"
	"github.com/amp-labs/statecrawler/config"
	"github.com/amp-labs/statecrawler/fleet"
	"github.com/amp-labs/statecrawler/httpsystem"
	"github.com/amp-labs/statecrawler/logger"
	"github.com/amp-labs/statecrawler/statemachine"
	"github.com/amp-labs/statecrawler/statemachine/actions"
	"github.com/aws/aws-lambda-go/events"
)

var (
	errDeclarationRequired = errors.New("declaration is required")
	errBaseURLRequired     = errors.New("baseUrl is required")
)

// CrawlRequest asks for one declaration to be verified against a system
// reachable over HTTP.
type CrawlRequest struct {
	Declaration string `json:"declaration"`
	Format      string `json:"format,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Full        bool   `json:"full,omitempty"`
}

// Handler runs crawl requests. Only http and composite actions are
// available: a request must never be able to run commands.
type Handler struct {
	settings *config.Settings
	factory  *statemachine.ActionFactory
}

// NewHandler creates a handler whose defaults come from settings.
func NewHandler(settings *config.Settings) *Handler {
	factory := statemachine.NewActionFactory()
	httpsystem.Register(factory)
	actions.Register(factory)

	return &Handler{settings: settings, factory: factory}
}

// Crawl verifies the requested declaration and answers with its result.
// A failed verification is still a 200; the result says whether it passed.
func (h *Handler) Crawl(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return errorResp(http.StatusBadRequest, "invalid body", err), nil
	}

	var in CrawlRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return errorResp(http.StatusBadRequest, "invalid json", err), nil
	}

	decl, baseURL, err := h.parse(in)
	if err != nil {
		return errorResp(http.StatusBadRequest, "invalid request", err), nil
	}

	ctx = logger.With(ctx, "declaration", decl.Name, "request_id", req.RequestContext.RequestID)

	runner := fleet.NewRunner(h.systemFor(baseURL),
		fleet.WithConcurrency(1),
		fleet.WithPattern(in.Pattern),
		fleet.WithFull(in.Full),
		fleet.WithActionFactory(h.factory),
	)

	report, err := runner.Run(ctx, []fleet.Declaration{{Config: decl}})
	if err != nil {
		return errorResp(http.StatusInternalServerError, "crawl failed", err), nil
	}

	return jsonResp(http.StatusOK, report.Results[0]), nil
}

func (h *Handler) parse(in CrawlRequest) (*statemachine.Config, *url.URL, error) {
	if in.Declaration == "" {
		return nil, nil, errDeclarationRequired
	}

	format := in.Format
	if format == "" {
		format = statemachine.FormatYAML
	}

	decl, err := statemachine.LoadConfigFromBytes([]byte(in.Declaration), format)
	if err != nil {
		return nil, nil, err
	}

	baseURL := h.settings.BaseURL

	if in.BaseURL != "" {
		baseURL, err = url.Parse(in.BaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	if baseURL == nil {
		return nil, nil, errBaseURLRequired
	}

	return decl, baseURL, nil
}

func (h *Handler) systemFor(baseURL *url.URL) fleet.SystemFactory {
	return func(ctx context.Context, _ fleet.Declaration) (statemachine.System, error) {
		opts := []httpsystem.Option{httpsystem.WithTimeout(h.settings.Timeout)}
		if h.settings.InsecureTLS {
			opts = append(opts, httpsystem.WithInsecureTLS())
		}

		client, err := httpsystem.New(ctx, baseURL.String(), opts...)
		if err != nil {
			return nil, err
		}

		return &binding.System{HTTP: client}, nil
	}
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}

	return []byte(req.Body), nil
}

func errorResp(status int, message string, err error) events.APIGatewayV2HTTPResponse {
	return jsonResp(status, map[string]any{"error": message, "details": err.Error()})
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	data, _ := json.Marshal(body)

	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(data),
	}
}
