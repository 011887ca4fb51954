package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/temirov/reposync/internal/metrics"
	"github.com/temirov/reposync/internal/reposync"
)

const (
	livenessMessageConstant           = "hello yes this is reposync dot container dot jpg"
	livenessPatternConstant           = "GET /{$}"
	deployPatternConstant             = "GET /deploy/{ref...}"
	updatePatternConstant             = "GET /update/{ref...}"
	deployWebhookPatternConstant      = "POST /webhook/deploy"
	updateWebhookPatternConstant      = "POST /webhook/update"
	metricsPatternConstant            = "GET /metrics"
	referencePathValueConstant        = "ref"
	contentTypeHeaderConstant         = "Content-Type"
	plainTextContentTypeConstant      = "text/plain; charset=utf-8"
	githubEventHeaderConstant         = "X-GitHub-Event"
	githubSignatureHeaderConstant     = "X-Hub-Signature-256"
	githubPingEventConstant           = "ping"
	githubPushEventConstant           = "push"
	pongMessageConstant               = "pong"
	signaturePrefixConstant           = "sha256="
	workflowCompletedTemplateConstant = "%s %s: ok\n"
	eventIgnoredTemplateConstant      = "ignored %s event\n"
	gatewayMissingMessageConstant     = "gateway not configured"
	invalidSignatureMessageConstant   = "invalid signature"
	unreadableBodyMessageConstant     = "cannot read request body"
	invalidPayloadMessageConstant     = "cannot decode push payload"
	requestHandledMessageConstant     = "Request handled"
	requestFailedMessageConstant      = "Request failed"
	webhookRejectedMessageConstant    = "Webhook rejected"
	logFieldMethodConstant            = "method"
	logFieldPathConstant              = "path"
	logFieldReferenceConstant         = "ref"
	logFieldActionConstant            = "action"
	logFieldStatusConstant            = "status"
	logFieldEventConstant             = "event"
	logFieldDurationConstant          = "duration"
	maximumWebhookBodyBytesConstant   = 25 << 20
)

// ErrGatewayNotConfigured indicates a handler without a Gateway.
var ErrGatewayNotConfigured = errors.New(gatewayMissingMessageConstant)

// HandlerDependencies enumerates the collaborators of the HTTP handler.
type HandlerDependencies struct {
	Gateway       reposync.Gateway
	Logger        *zap.Logger
	Recorder      metrics.WorkflowRecorder
	Gatherer      prometheus.Gatherer
	Configuration Configuration
}

// PushEvent is the part of a GitHub push payload the webhook routes read.
type PushEvent struct {
	// Ref is the full pushed ref, e.g. refs/heads/main or refs/tags/v3.14.1.
	Ref    string `json:"ref"`
	Before string `json:"before"`
	After  string `json:"after"`
}

type handler struct {
	gateway       reposync.Gateway
	logger        *zap.Logger
	recorder      metrics.WorkflowRecorder
	webhookSecret string
}

// NewHandler routes the workflow, webhook, liveness and metrics endpoints.
func NewHandler(dependencies HandlerDependencies) (http.Handler, error) {
	if dependencies.Gateway == nil {
		return nil, ErrGatewayNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	configuration := dependencies.Configuration.Sanitize()

	routes := &handler{
		gateway:       dependencies.Gateway,
		logger:        logger,
		recorder:      dependencies.Recorder,
		webhookSecret: configuration.WebhookSecret,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(livenessPatternConstant, routes.serveLiveness)
	mux.HandleFunc(deployPatternConstant, routes.serveReference(reposync.ActionDeploy))
	mux.HandleFunc(updatePatternConstant, routes.serveReference(reposync.ActionUpdate))
	mux.HandleFunc(deployWebhookPatternConstant, routes.serveWebhook(reposync.ActionDeploy))
	mux.HandleFunc(updateWebhookPatternConstant, routes.serveWebhook(reposync.ActionUpdate))
	if configuration.MetricsEnabled && dependencies.Gatherer != nil {
		mux.Handle(metricsPatternConstant, promhttp.HandlerFor(dependencies.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux, nil
}

func (routes *handler) serveLiveness(responseWriter http.ResponseWriter, _ *http.Request) {
	writePlainText(responseWriter, http.StatusOK, livenessMessageConstant)
}

func (routes *handler) serveReference(action string) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		routes.runWorkflow(responseWriter, request, action, request.PathValue(referencePathValueConstant))
	}
}

func (routes *handler) serveWebhook(action string) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		body, readError := io.ReadAll(io.LimitReader(request.Body, maximumWebhookBodyBytesConstant))
		if readError != nil {
			routes.rejectWebhook(responseWriter, request, unreadableBodyMessageConstant, readError)
			return
		}

		if !routes.isValidSignature(body, request.Header.Get(githubSignatureHeaderConstant)) {
			routes.rejectWebhook(responseWriter, request, invalidSignatureMessageConstant, nil)
			return
		}

		// Every event other than push is acknowledged so GitHub marks the delivery successful.
		event := request.Header.Get(githubEventHeaderConstant)
		if event == githubPingEventConstant {
			writePlainText(responseWriter, http.StatusOK, pongMessageConstant)
			return
		}
		if event != githubPushEventConstant {
			writePlainText(responseWriter, http.StatusOK, fmt.Sprintf(eventIgnoredTemplateConstant, event))
			return
		}

		var payload PushEvent
		if decodeError := json.Unmarshal(body, &payload); decodeError != nil {
			routes.rejectWebhook(responseWriter, request, invalidPayloadMessageConstant, decodeError)
			return
		}

		routes.runWorkflow(responseWriter, request, action, payload.Ref)
	}
}

func (routes *handler) runWorkflow(responseWriter http.ResponseWriter, request *http.Request, action string, reference string) {
	startTime := time.Now()
	synchronizer, synchronizerError := reposync.NewSynchronizer(reference, reposync.Dependencies{
		Gateway:  routes.gateway,
		Logger:   routes.logger,
		Recorder: routes.recorder,
	})
	if synchronizerError == nil {
		// r10k and librarian-puppet run to completion even when the client disconnects.
		synchronizerError = synchronizer.Run(context.WithoutCancel(request.Context()), action)
	}

	fields := []zap.Field{
		zap.String(logFieldMethodConstant, request.Method),
		zap.String(logFieldPathConstant, request.URL.Path),
		zap.String(logFieldActionConstant, action),
		zap.String(logFieldReferenceConstant, reference),
		zap.Duration(logFieldDurationConstant, time.Since(startTime)),
	}
	if synchronizerError != nil {
		routes.logger.Error(requestFailedMessageConstant, append(fields, zap.Int(logFieldStatusConstant, http.StatusInternalServerError), zap.Error(synchronizerError))...)
		writePlainText(responseWriter, http.StatusInternalServerError, synchronizerError.Error())
		return
	}

	routes.logger.Info(requestHandledMessageConstant, append(fields, zap.Int(logFieldStatusConstant, http.StatusOK))...)
	writePlainText(responseWriter, http.StatusOK, fmt.Sprintf(workflowCompletedTemplateConstant, action, reference))
}

func (routes *handler) rejectWebhook(responseWriter http.ResponseWriter, request *http.Request, message string, cause error) {
	fields := []zap.Field{
		zap.String(logFieldPathConstant, request.URL.Path),
		zap.String(logFieldEventConstant, request.Header.Get(githubEventHeaderConstant)),
		zap.Int(logFieldStatusConstant, http.StatusBadRequest),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	routes.logger.Warn(webhookRejectedMessageConstant+": "+message, fields...)
	writePlainText(responseWriter, http.StatusBadRequest, message)
}

// isValidSignature accepts every payload when no secret is configured.
func (routes *handler) isValidSignature(message []byte, signature string) bool {
	if len(routes.webhookSecret) == 0 {
		return true
	}
	return hmac.Equal([]byte(signature), []byte(ComputeSignature(message, routes.webhookSecret)))
}

// ComputeSignature returns the X-Hub-Signature-256 value GitHub sends for message.
func ComputeSignature(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return signaturePrefixConstant + hex.EncodeToString(mac.Sum(nil))
}

func writePlainText(responseWriter http.ResponseWriter, status int, body string) {
	responseWriter.Header().Set(contentTypeHeaderConstant, plainTextContentTypeConstant)
	responseWriter.WriteHeader(status)
	_, _ = io.WriteString(responseWriter, body)
}
