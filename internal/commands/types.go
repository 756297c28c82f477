// Package commands implements the unified command execution system for the composer.
//
// SYSTEM ARCHITECTURE ROLE:
// This module serves as the coordination layer between user interfaces (CLI, HTTP, TUI) and
// the composition store. It implements the Command Pattern so every interface drives the
// store through the same named operations, parameter validation and result format.
//
// KEY RESPONSIBILITIES:
// - Define standardized command interface and execution patterns
// - Decode loosely typed parameter maps into typed, tag-validated command structs
// - Enforce presentation rules the store leaves advisory (category exclusivity)
// - Standardize response formats across all interfaces
//
// INTEGRATION POINTS:
// - internal/cli/cli.go: CLI verbs build parameter maps and call CommandExecutor.Execute()
// - internal/api/server.go: API handlers use executor.Execute() for all endpoint operations
// - internal/store/store.go: Commands delegate to store.Store operations and views
// - internal/validation/validator.go: Command structs are checked against their `validate` tags
// - internal/errors/errors.go: Command failures are converted to ErrorInfo via AppError conversion
// - internal/commands/template_commands.go: Template, type, snippet and render commands
// - internal/commands/utility_commands.go: Health and command listing
//
// COMMAND FLOW:
// 1. Interface receives user input (CLI args, HTTP request, TUI interaction)
// 2. Interface converts input to command parameters map
// 3. Command instance is created and bound to the user's store
// 4. Parameters are decoded into the command and validated
// 5. Command executes against the store
// 6. Results are formatted into standardized CommandResult
// 7. Interface converts CommandResult to appropriate display format
package commands

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/store"
	"github.com/dpshade/prompt-composer/internal/validation"
)

// CommandResult represents the result of executing a command
type CommandResult struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Success bool        `json:"success"`
	Error   *ErrorInfo  `json:"error,omitempty"`

	err *errors.AppError
}

// Err returns the failure as an AppError, or nil for a successful result
func (r *CommandResult) Err() error {
	if r.Success || r.err == nil {
		return nil
	}
	return r.err
}

// ErrorInfo provides structured error information
type ErrorInfo struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Category string                 `json:"category,omitempty"`
	Severity string                 `json:"severity,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// failure builds the result of a failed command
func failure(err error) *CommandResult {
	appErr := errors.GetAppError(err)
	return &CommandResult{
		Success: false,
		Error: &ErrorInfo{
			Code:     string(appErr.Code),
			Message:  appErr.Message,
			Details:  appErr.Details,
			Category: string(appErr.Category),
			Severity: string(appErr.Severity),
			Context:  appErr.Context,
		},
		err: appErr,
	}
}

func success(data interface{}, message string) *CommandResult {
	return &CommandResult{Success: true, Data: data, Message: message}
}

// Command represents a unified command interface
type Command interface {
	Execute(ctx context.Context) (*CommandResult, error)
	Validate() error
	GetName() string
	GetDescription() string
}

// ParameterizedCommand interface for commands that accept parameters
type ParameterizedCommand interface {
	SetParameters(params map[string]interface{}) error
}

// StoreAwareCommand interface for commands that operate on a user's store
type StoreAwareCommand interface {
	SetStore(st *store.Store)
}

// storeCommand is embedded by every command that needs the store
type storeCommand struct {
	store *store.Store
}

func (c *storeCommand) SetStore(st *store.Store) {
	c.store = st
}

func (c *storeCommand) Validate() error {
	if c.store == nil {
		return errors.InternalError("store not set")
	}
	return nil
}

// decodeParams fills the exported fields of target from params using their json names
func decodeParams(params map[string]interface{}, target interface{}) error {
	if len(params) == 0 {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid parameters")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid parameters").WithDetails(err.Error())
	}
	return nil
}

// CommandRegistry manages available commands
type CommandRegistry struct {
	commands map[string]func() Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]func() Command),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory func() Command) {
	r.commands[name] = factory
}

// Get retrieves a command factory by name
func (r *CommandRegistry) Get(name string) (func() Command, bool) {
	factory, exists := r.commands[name]
	return factory, exists
}

// List returns all available command names in alphabetical order
func (r *CommandRegistry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandExecutor provides a unified way to execute commands against one store
type CommandExecutor struct {
	store    *store.Store
	registry *CommandRegistry
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor(st *store.Store) *CommandExecutor {
	executor := &CommandExecutor{
		store:    st,
		registry: NewCommandRegistry(),
	}

	// Register all available commands
	executor.registerCommands()

	return executor
}

// Store returns the store the executor operates on
func (e *CommandExecutor) Store() *store.Store {
	return e.store
}

// Execute runs a command by name with the given parameters. Command failures are
// reported in the result; the error return is reserved for the executor itself.
func (e *CommandExecutor) Execute(ctx context.Context, commandName string, params map[string]interface{}) (*CommandResult, error) {
	factory, exists := e.registry.Get(commandName)
	if !exists {
		return failure(errors.CommandNotFoundError(commandName)), nil
	}

	cmd := factory()

	if parameterized, ok := cmd.(ParameterizedCommand); ok {
		if err := parameterized.SetParameters(params); err != nil {
			return failure(err), nil
		}
		if err := validation.Check(cmd); err != nil {
			return failure(err), nil
		}
	}

	if err := cmd.Validate(); err != nil {
		return failure(err), nil
	}

	result, err := cmd.Execute(ctx)
	if err != nil {
		return failure(err), nil
	}
	return result, nil
}

// register adds a command whose instances are bound to the executor's store
func (e *CommandExecutor) register(name string, factory func() Command) {
	e.registry.Register(name, func() Command {
		cmd := factory()
		if storeAware, ok := cmd.(StoreAwareCommand); ok {
			storeAware.SetStore(e.store)
		}
		return cmd
	})
}

// registerCommands registers all available commands
func (e *CommandExecutor) registerCommands() {
	// Templates
	e.register("list-templates", func() Command { return &ListTemplatesCommand{} })
	e.register("get-template", func() Command { return &GetTemplateCommand{} })
	e.register("add-template", func() Command { return &AddTemplateCommand{} })
	e.register("rename-template", func() Command { return &RenameTemplateCommand{} })
	e.register("delete-template", func() Command { return &DeleteTemplateCommand{} })
	e.register("reorder-templates", func() Command { return &ReorderTemplatesCommand{} })
	e.register("set-active", func() Command { return &SetActiveCommand{} })
	e.register("search", func() Command { return &SearchTemplatesCommand{} })

	// Types
	e.register("list-types", func() Command { return &ListTypesCommand{} })
	e.register("create-type", func() Command { return &CreateTypeCommand{} })
	e.register("set-type", func() Command { return &SetTypeCommand{} })

	// Snippets
	e.register("add-snippet", func() Command { return &AddSnippetCommand{} })
	e.register("edit-snippet", func() Command { return &EditSnippetCommand{} })
	e.register("toggle-snippet", func() Command { return &ToggleSnippetCommand{} })
	e.register("delete-snippet", func() Command { return &DeleteSnippetCommand{} })
	e.register("reorder-snippets", func() Command { return &ReorderSnippetsCommand{} })
	e.register("category-options", func() Command { return &CategoryOptionsCommand{} })

	// Placeholders and output
	e.register("set-placeholder", func() Command { return &SetPlaceholderCommand{} })
	e.register("render", func() Command { return &RenderCommand{} })

	// Utility
	e.register("health", func() Command { return &HealthCheckCommand{} })
	e.register("list-commands", func() Command { return &ListCommandsCommand{registry: e.registry} })
}
