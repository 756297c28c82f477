// Package api provides the RESTful HTTP API of the composer.
//
// SYSTEM ARCHITECTURE ROLE:
// This module implements the HTTP interface layer. Every route authenticates the caller,
// opens (or reuses) that user's composition store from a store.Registry, and runs the
// matching command through the CommandExecutor shared with the CLI.
//
// INTEGRATION POINTS:
// - internal/commands/types.go: handlers execute all operations through CommandExecutor
// - internal/errors/handlers.go: HTTPErrorHandler maps AppError codes to status codes and bodies
// - internal/validation/middleware.go: BindJSON parses and validates request bodies
// - internal/auth/auth.go: Authenticate middleware resolves the user from the bearer token
// - internal/metrics/prometheus.go: Metrics middleware and the /metrics endpoint
//
// MIDDLEWARE STACK:
// - Recover: panic recovery
// - Request logging: logrus entry per request with a generated request id
// - Metrics: request counts and latencies per route pattern
// - CORS: cross-origin access for browser clients
// - Auth: bearer token (Supabase) or static user (local mode) on /api/v1
//
// ENDPOINT STRUCTURE:
// - /api/v1/templates: template CRUD, ordering, type assignment and rendering
// - /api/v1/snippets: snippet edits, toggling and deletion
// - /api/v1/types: template types
// - /api/v1/search: fuzzy template search
// - /api/v1/health: store health for the caller
// - /health, /metrics, /api/openapi.json, /api/docs: unauthenticated
package api

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/auth"
	"github.com/dpshade/prompt-composer/internal/commands"
	"github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/metrics"
	"github.com/dpshade/prompt-composer/internal/store"
	"github.com/dpshade/prompt-composer/internal/validation"
)

// APIServer serves the composer over HTTP
type APIServer struct {
	app          *fiber.App
	registry     *store.Registry
	auth         auth.Authenticator
	errorHandler *errors.HTTPErrorHandler
	log          *logrus.Entry
}

// NewAPIServer creates a server whose routes are ready to be served or tested
func NewAPIServer(registry *store.Registry, authenticator auth.Authenticator, log *logrus.Entry, includeDetails bool) *APIServer {
	s := &APIServer{
		registry:     registry,
		auth:         authenticator,
		errorHandler: errors.NewHTTPErrorHandler(includeDetails, log),
		log:          log,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "prompt-composer",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleFiberError,
	})

	metrics.InitAPIMetrics()
	metrics.InitStoreMetrics()

	s.routes()
	return s
}

// App exposes the fiber application, mainly for app.Test
func (s *APIServer) App() *fiber.App {
	return s.app
}

// Start listens on addr until Shutdown
func (s *APIServer) Start(addr string) error {
	s.log.WithField("addr", addr).Info("Starting API server")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and flushes every open store
func (s *APIServer) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.registry.Close()
	return err
}

func (s *APIServer) routes() {
	s.app.Use(recover.New())
	s.app.Use(RequestLogger(s.log))
	s.app.Use(Metrics())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Prompt composer is healthy",
		})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	s.app.Get("/api/openapi.json", s.handleOpenAPISpec)
	s.app.Get("/api/docs", s.handleOpenAPI)

	v1 := s.app.Group("/api/v1", Authenticate(s.auth, s.errorHandler))

	v1.Get("/health", s.handleHealth)

	v1.Get("/templates", s.handleListTemplates)
	v1.Post("/templates", s.handleCreateTemplate)
	v1.Put("/templates/order", s.handleReorderTemplates)
	v1.Get("/templates/:id", s.handleGetTemplate)
	v1.Patch("/templates/:id", s.handleRenameTemplate)
	v1.Delete("/templates/:id", s.handleDeleteTemplate)
	v1.Post("/templates/:id/activate", s.handleActivate)
	v1.Post("/templates/:id/type", s.handleSetType)
	v1.Post("/templates/:id/snippets", s.handleAddSnippet)
	v1.Put("/templates/:id/snippets/order", s.handleReorderSnippets)
	v1.Put("/templates/:id/placeholders/:key", s.handleSetPlaceholder)
	v1.Get("/templates/:id/render", s.handleRender)

	v1.Patch("/snippets/:id", s.handleEditSnippet)
	v1.Post("/snippets/:id/toggle", s.handleToggleSnippet)
	v1.Delete("/snippets/:id", s.handleDeleteSnippet)
	v1.Get("/snippets/:id/categories", s.handleCategoryOptions)

	v1.Get("/types", s.handleListTypes)
	v1.Post("/types", s.handleCreateType)

	v1.Get("/search", s.handleSearch)
}

// execute runs a command against the caller's store and writes the response
func (s *APIServer) execute(c *fiber.Ctx, name string, params map[string]interface{}, status int) error {
	st, err := s.registry.Get(c.UserContext(), UserID(c))
	if err != nil {
		return s.writeError(c, err)
	}

	result, err := commands.NewCommandExecutor(st).Execute(c.UserContext(), name, params)
	if err != nil {
		return s.writeError(c, err)
	}
	if !result.Success {
		return s.writeError(c, result.Err())
	}
	return s.writeJSON(c, status, result)
}

func (s *APIServer) writeJSON(c *fiber.Ctx, status int, result *commands.CommandResult) error {
	body := fiber.Map{
		"status": "success",
		"data":   result.Data,
	}
	if result.Message != "" {
		body["message"] = result.Message
	}
	return c.Status(status).JSON(body)
}

func (s *APIServer) writeError(c *fiber.Ctx, err error) error {
	err = s.errorHandler.HandleError(err)
	return c.Status(s.errorHandler.StatusCode(err)).JSON(s.errorHandler.Body(err))
}

// handleFiberError answers routing errors (404, 405) and recovered panics
func (s *APIServer) handleFiberError(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		code := errors.ErrCodeInternalError
		switch fe.Code {
		case fiber.StatusNotFound:
			code = errors.ErrCodeNotFound
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest:
			code = errors.ErrCodeInvalidInput
		}
		appErr := errors.NewAppError(code, fe.Message)
		return c.Status(fe.Code).JSON(s.errorHandler.Body(appErr))
	}
	return s.writeError(c, errors.InternalError(fmt.Sprintf("unhandled error: %v", err)))
}

// ---- request bodies ------------------------------------------------------

type createTemplateRequest struct {
	Name string `json:"name"`
}

type renameTemplateRequest struct {
	Name string `json:"name" validate:"required"`
}

type orderRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type setTypeRequest struct {
	TypeID *string `json:"type_id"`
}

type createTypeRequest struct {
	Name     string `json:"name"`
	MasterID string `json:"master_id" validate:"required"`
}

type snippetRequest struct {
	Label    *string `json:"label"`
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

func (r snippetRequest) params() map[string]interface{} {
	params := map[string]interface{}{}
	if r.Label != nil {
		params["label"] = *r.Label
	}
	if r.Text != nil {
		params["text"] = *r.Text
	}
	if r.Category != nil {
		params["category"] = *r.Category
	}
	return params
}

type placeholderRequest struct {
	Value string `json:"value"`
}

// ---- handlers -------------------------------------------------------------

func (s *APIServer) handleHealth(c *fiber.Ctx) error {
	return s.execute(c, "health", nil, fiber.StatusOK)
}

func (s *APIServer) handleListTemplates(c *fiber.Ctx) error {
	return s.execute(c, "list-templates", nil, fiber.StatusOK)
}

func (s *APIServer) handleCreateTemplate(c *fiber.Ctx) error {
	var req createTemplateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	return s.execute(c, "add-template", map[string]interface{}{"name": req.Name}, fiber.StatusCreated)
}

func (s *APIServer) handleReorderTemplates(c *fiber.Ctx) error {
	var req orderRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	return s.execute(c, "reorder-templates", map[string]interface{}{"ids": req.IDs}, fiber.StatusOK)
}

func (s *APIServer) handleGetTemplate(c *fiber.Ctx) error {
	return s.execute(c, "get-template", map[string]interface{}{"id": c.Params("id")}, fiber.StatusOK)
}

func (s *APIServer) handleRenameTemplate(c *fiber.Ctx) error {
	var req renameTemplateRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	return s.execute(c, "rename-template", map[string]interface{}{"id": c.Params("id"), "name": req.Name}, fiber.StatusOK)
}

func (s *APIServer) handleDeleteTemplate(c *fiber.Ctx) error {
	params := map[string]interface{}{
		"id":      c.Params("id"),
		"confirm": validation.QueryBool(c, "confirm"),
	}
	return s.execute(c, "delete-template", params, fiber.StatusOK)
}

func (s *APIServer) handleActivate(c *fiber.Ctx) error {
	return s.execute(c, "set-active", map[string]interface{}{"id": c.Params("id")}, fiber.StatusOK)
}

func (s *APIServer) handleSetType(c *fiber.Ctx) error {
	var req setTypeRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	params := map[string]interface{}{"template_id": c.Params("id"), "type_id": ""}
	if req.TypeID != nil {
		params["type_id"] = *req.TypeID
	}
	return s.execute(c, "set-type", params, fiber.StatusOK)
}

func (s *APIServer) handleAddSnippet(c *fiber.Ctx) error {
	var req snippetRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	params := req.params()
	params["template_id"] = c.Params("id")
	return s.execute(c, "add-snippet", params, fiber.StatusCreated)
}

func (s *APIServer) handleReorderSnippets(c *fiber.Ctx) error {
	var req orderRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	return s.execute(c, "reorder-snippets", map[string]interface{}{"template_id": c.Params("id"), "ids": req.IDs}, fiber.StatusOK)
}

func (s *APIServer) handleSetPlaceholder(c *fiber.Ctx) error {
	key, err := validation.RequireParam(c, "key")
	if err != nil {
		return s.writeError(c, err)
	}
	var req placeholderRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	params := map[string]interface{}{
		"template_id": c.Params("id"),
		"key":         key,
		"value":       req.Value,
	}
	return s.execute(c, "set-placeholder", params, fiber.StatusOK)
}

func (s *APIServer) handleRender(c *fiber.Ctx) error {
	params := map[string]interface{}{
		"template_id": c.Params("id"),
		"format":      c.Query("format", commands.FormatText),
		"width":       c.QueryInt("width", 0),
	}
	return s.execute(c, "render", params, fiber.StatusOK)
}

func (s *APIServer) handleEditSnippet(c *fiber.Ctx) error {
	var req snippetRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	params := req.params()
	params["id"] = c.Params("id")
	return s.execute(c, "edit-snippet", params, fiber.StatusOK)
}

func (s *APIServer) handleToggleSnippet(c *fiber.Ctx) error {
	return s.execute(c, "toggle-snippet", map[string]interface{}{"id": c.Params("id")}, fiber.StatusOK)
}

func (s *APIServer) handleDeleteSnippet(c *fiber.Ctx) error {
	return s.execute(c, "delete-snippet", map[string]interface{}{"id": c.Params("id")}, fiber.StatusOK)
}

func (s *APIServer) handleCategoryOptions(c *fiber.Ctx) error {
	return s.execute(c, "category-options", map[string]interface{}{"snippet_id": c.Params("id")}, fiber.StatusOK)
}

func (s *APIServer) handleListTypes(c *fiber.Ctx) error {
	return s.execute(c, "list-types", nil, fiber.StatusOK)
}

func (s *APIServer) handleCreateType(c *fiber.Ctx) error {
	var req createTypeRequest
	if err := validation.BindJSON(c, &req); err != nil {
		return s.writeError(c, err)
	}
	params := map[string]interface{}{"name": req.Name, "master_id": req.MasterID}
	return s.execute(c, "create-type", params, fiber.StatusCreated)
}

func (s *APIServer) handleSearch(c *fiber.Ctx) error {
	return s.execute(c, "search", map[string]interface{}{"query": c.Query("q")}, fiber.StatusOK)
}
