// Package commands/utility_commands implements system utility and metadata commands.
//
// COMMAND IMPLEMENTATIONS:
// - HealthCheckCommand: Reports store status for monitoring and debugging
// - ListCommandsCommand: Lists registered commands with their descriptions
package commands

import (
	"context"
	"fmt"
	"time"
)

// HealthCheckCommand provides system health information
type HealthCheckCommand struct {
	storeCommand
}

func (c *HealthCheckCommand) GetName() string {
	return "health"
}

func (c *HealthCheckCommand) GetDescription() string {
	return "Check system health and store status"
}

func (c *HealthCheckCommand) Execute(ctx context.Context) (*CommandResult, error) {
	snap := c.store.Snapshot()
	healthData := map[string]interface{}{
		"status":    "healthy",
		"service":   "prompt-composer",
		"user_id":   snap.UserID,
		"templates": len(snap.Templates),
		"types":     len(snap.Types),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	return success(healthData, "Service is healthy"), nil
}

// CommandInfo describes one registered command
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCommandsCommand lists every registered command
type ListCommandsCommand struct {
	registry *CommandRegistry
}

func (c *ListCommandsCommand) Validate() error {
	if c.registry == nil {
		return fmt.Errorf("registry not set")
	}
	return nil
}

func (c *ListCommandsCommand) GetName() string {
	return "list-commands"
}

func (c *ListCommandsCommand) GetDescription() string {
	return "List available commands"
}

func (c *ListCommandsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	names := c.registry.List()
	infos := make([]CommandInfo, 0, len(names))
	for _, name := range names {
		factory, _ := c.registry.Get(name)
		infos = append(infos, CommandInfo{Name: name, Description: factory().GetDescription()})
	}
	return success(infos, fmt.Sprintf("%d commands", len(infos))), nil
}
