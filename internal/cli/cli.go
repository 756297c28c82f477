// Package cli implements the composer's command-line verbs.
//
// Every verb runs through the same CommandExecutor as the HTTP API, so parameter
// validation and error codes are identical on both surfaces. The store is opened
// lazily on the first verb and must be closed with Close so debounced and
// in-flight writes reach the backend before the process exits.
//
// The active template is not persisted: verbs that take an optional template id
// default to the first template of a freshly loaded library.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dpshade/prompt-composer/internal/clipboard"
	"github.com/dpshade/prompt-composer/internal/commands"
	apperrors "github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/models"
	"github.com/dpshade/prompt-composer/internal/placeholder"
	"github.com/dpshade/prompt-composer/internal/renderer"
	"github.com/dpshade/prompt-composer/internal/storage"
	"github.com/dpshade/prompt-composer/internal/store"
)

// Opener opens the caller's loaded store
type Opener func(ctx context.Context) (*store.Store, error)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// CLI runs composer verbs against one store
type CLI struct {
	open   Opener
	out    io.Writer
	format string
	clip   clipboard.Writer

	mu sync.Mutex
	st *store.Store

	filled   lipgloss.Style
	unfilled lipgloss.Style
	muted    lipgloss.Style
}

// NewCLI creates a CLI printing to out
func NewCLI(open Opener, out io.Writer) *CLI {
	r := lipgloss.NewRenderer(out)
	return &CLI{
		open:     open,
		out:      out,
		format:   OutputTable,
		clip:     clipboard.System,
		filled:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB")),
		unfilled: r.NewStyle().Foreground(lipgloss.Color("#D97706")),
		muted:    r.NewStyle().Foreground(lipgloss.Color("#64748B")),
	}
}

// SetFormat selects table or json output
func (c *CLI) SetFormat(format string) {
	c.format = format
}

// SetClipboard replaces the system clipboard, mainly for tests
func (c *CLI) SetClipboard(w clipboard.Writer) {
	c.clip = w
}

// Close flushes pending writes and releases the store
func (c *CLI) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st != nil {
		c.st.Close()
		c.st = nil
	}
}

func (c *CLI) store(ctx context.Context) (*store.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		st, err := c.open(ctx)
		if err != nil {
			return nil, err
		}
		c.st = st
	}
	return c.st, nil
}

// execute runs a registered command and converts failures into errors
func (c *CLI) execute(cmd *cobra.Command, name string, params map[string]interface{}) (*commands.CommandResult, error) {
	st, err := c.store(cmd.Context())
	if err != nil {
		return nil, err
	}
	result, err := commands.NewCommandExecutor(st).Execute(cmd.Context(), name, params)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, result.Err()
	}
	return result, nil
}

func (c *CLI) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// report prints the data as JSON, or the result message in table mode
func (c *CLI) report(result *commands.CommandResult) error {
	if c.format == OutputJSON {
		return c.printJSON(result.Data)
	}
	if result.Message != "" {
		fmt.Fprintln(c.out, result.Message)
	}
	return nil
}

// Commands returns every composer verb
func (c *CLI) Commands() []*cobra.Command {
	return []*cobra.Command{
		c.templatesCmd(),
		c.showCmd(),
		c.addTemplateCmd(),
		c.renameCmd(),
		c.deleteCmd(),
		c.reorderCmd(),
		c.addSnippetCmd(),
		c.editSnippetCmd(),
		c.toggleCmd(),
		c.rmSnippetCmd(),
		c.reorderSnippetsCmd(),
		c.categoriesCmd(),
		c.setCmd(),
		c.renderCmd(),
		c.copyCmd(),
		c.typesCmd(),
		c.createTypeCmd(),
		c.setTypeCmd(),
		c.searchCmd(),
		c.exportCmd(),
		c.importCmd(),
	}
}

// ---- templates -------------------------------------------------------------

func (c *CLI) templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "templates",
		Aliases: []string{"ls"},
		Short:   "List templates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "list-templates", nil)
			if err != nil {
				return err
			}
			return c.printSummaries(result.Data.([]commands.TemplateSummary))
		},
	}
}

func (c *CLI) printSummaries(list []commands.TemplateSummary) error {
	if c.format == OutputJSON {
		return c.printJSON(list)
	}
	fmt.Fprintf(c.out, "  %-36s %-30s %-16s %s\n", "ID", "Name", "Type", "Snippets")
	fmt.Fprintln(c.out, strings.Repeat("-", 96))
	for _, t := range list {
		marker := " "
		if t.IsActive {
			marker = "*"
		}
		typeName := t.TypeName
		if t.IsMaster {
			typeName += " (master)"
		}
		fmt.Fprintf(c.out, "%s %-36s %-30s %-16s %d/%d\n",
			marker, t.ID, truncate(t.Name, 30), truncate(typeName, 16), t.Enabled, t.Snippets)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func (c *CLI) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [template-id]",
		Short: "Show a template with its snippets and placeholder values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "get-template", map[string]interface{}{"id": optional(args, 0)})
			if err != nil {
				return err
			}
			view := result.Data.(commands.TemplateView)
			if c.format == OutputJSON {
				return c.printJSON(view)
			}
			c.printView(view)
			return nil
		},
	}
}

func (c *CLI) printView(view commands.TemplateView) {
	active := ""
	if view.IsActive {
		active = " (active)"
	}
	fmt.Fprintf(c.out, "%s%s\n", view.Name, active)
	fmt.Fprintf(c.out, "ID: %s\n", view.ID)
	if view.Type != nil {
		fmt.Fprintf(c.out, "Type: %s\n", view.Type.Name)
	}
	if view.MasterOf != nil {
		fmt.Fprintf(c.out, "Master of: %s\n", view.MasterOf.Name)
	}

	fmt.Fprintln(c.out, "\nSnippets:")
	if len(view.Snippets) == 0 {
		fmt.Fprintln(c.out, c.muted.Render("  (none)"))
	}
	for i, s := range view.Snippets {
		check := "[x]"
		if !s.Active {
			check = "[ ]"
		}
		vars := ""
		if s.Vars > 0 {
			vars = c.muted.Render(fmt.Sprintf(" %d vars", s.Vars))
		}
		fmt.Fprintf(c.out, "  %d. %s %-12s %s%s  %s\n", i+1, check, s.Category, s.Label, vars, c.muted.Render(s.ID))
	}

	if len(view.Placeholders) > 0 {
		fmt.Fprintln(c.out, "\nPlaceholders:")
		for _, key := range view.Placeholders {
			value, ok := view.Values[key]
			if !ok || strings.TrimSpace(value) == "" {
				fmt.Fprintf(c.out, "  %-20s %s\n", key, c.unfilled.Render(placeholder.Label(key)))
				continue
			}
			fmt.Fprintf(c.out, "  %-20s %s\n", key, c.filled.Render(value))
		}
	}
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (c *CLI) addTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-template [name]",
		Short: "Create a template and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "add-template", map[string]interface{}{"name": optional(args, 0)})
			if err != nil {
				return err
			}
			if c.format == OutputJSON {
				return c.printJSON(result.Data)
			}
			t := result.Data.(models.TemplateWithSnippets)
			fmt.Fprintf(c.out, "%s\n%s\n", result.Message, t.ID)
			return nil
		},
	}
}

func (c *CLI) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <template-id> <name>",
		Short: "Rename a template",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "rename-template", map[string]interface{}{
				"id":   args[0],
				"name": strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
}

func (c *CLI) deleteCmd() *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:     "delete <template-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a template",
		Long: `Delete a template.

Deleting the master template of a type also deletes the type and leaves the
templates that used it untyped. That needs --confirm.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "delete-template", map[string]interface{}{"id": args[0], "confirm": confirm})
			if err != nil {
				if apperrors.GetAppError(err).Code == apperrors.ErrCodeConfirmationRequired && result != nil {
					c.printPlan(result.Error.Context)
				}
				return err
			}
			return c.report(result)
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm deleting a master template and its type")
	return cmd
}

func (c *CLI) printPlan(ctx map[string]interface{}) {
	plan, ok := ctx["plan"].(store.DeletePlan)
	if !ok {
		return
	}
	fmt.Fprintf(c.out, "This template is the master of type %q.\n", plan.TypeName)
	fmt.Fprintf(c.out, "Deleting it deletes the type and untypes %d other template(s).\n", len(plan.AffectedTemplates))
	fmt.Fprintln(c.out, "Run again with --confirm to proceed.")
}

func (c *CLI) reorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <template-id>...",
		Short: "Reorder templates; unlisted templates keep their relative order after the listed ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "reorder-templates", map[string]interface{}{"ids": args})
			if err != nil {
				return err
			}
			return c.printSummaries(result.Data.([]commands.TemplateSummary))
		},
	}
}

// ---- snippets --------------------------------------------------------------

// snippetFlags passes only the flags the user set
func snippetFlags(cmd *cobra.Command, params map[string]interface{}) {
	for _, name := range []string{"label", "text", "category"} {
		if cmd.Flags().Changed(name) {
			v, _ := cmd.Flags().GetString(name)
			params[name] = v
		}
	}
}

func addSnippetFlags(cmd *cobra.Command) {
	cmd.Flags().String("label", "", "snippet label")
	cmd.Flags().String("text", "", "snippet text; {name} marks a placeholder")
	cmd.Flags().String("category", "", "snippet category")
}

func (c *CLI) addSnippetCmd() *cobra.Command {
	var templateID string
	cmd := &cobra.Command{
		Use:   "add-snippet",
		Short: "Add a snippet to a template",
		Long: `Add a snippet to a template (the active one by default).

In a typed template the new snippet starts from the first master category
the template does not use yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"template_id": templateID}
			snippetFlags(cmd, params)
			result, err := c.execute(cmd, "add-snippet", params)
			if err != nil {
				return err
			}
			if c.format == OutputJSON {
				return c.printJSON(result.Data)
			}
			sn := result.Data.(models.Snippet)
			fmt.Fprintf(c.out, "%s\n%s\n", result.Message, sn.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id (default: active template)")
	addSnippetFlags(cmd)
	return cmd
}

func (c *CLI) editSnippetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit-snippet <snippet-id>",
		Short: "Edit a snippet's label, text or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"id": args[0]}
			snippetFlags(cmd, params)
			result, err := c.execute(cmd, "edit-snippet", params)
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
	addSnippetFlags(cmd)
	return cmd
}

func (c *CLI) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <snippet-id>",
		Short: "Include or exclude a snippet from the prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "toggle-snippet", map[string]interface{}{"id": args[0]})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
}

func (c *CLI) rmSnippetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm-snippet <snippet-id>",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "delete-snippet", map[string]interface{}{"id": args[0]})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
}

func (c *CLI) reorderSnippetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder-snippets <template-id> <snippet-id>...",
		Short: "Reorder the snippets of a template",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "reorder-snippets", map[string]interface{}{
				"template_id": args[0],
				"ids":         args[1:],
			})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
}

func (c *CLI) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories <snippet-id>",
		Short: "List the categories a snippet can switch to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "category-options", map[string]interface{}{"snippet_id": args[0]})
			if err != nil {
				return err
			}
			options := result.Data.([]store.CategoryOption)
			if c.format == OutputJSON {
				return c.printJSON(options)
			}
			for _, o := range options {
				if o.Disabled {
					fmt.Fprintln(c.out, c.muted.Render(o.Name+" (in use)"))
					continue
				}
				fmt.Fprintln(c.out, o.Name)
			}
			return nil
		},
	}
}

// ---- placeholders and rendering -------------------------------------------

func (c *CLI) setCmd() *cobra.Command {
	var templateID string
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a placeholder value",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "set-placeholder", map[string]interface{}{
				"template_id": templateID,
				"key":         args[0],
				"value":       strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "template id (default: active template)")
	return cmd
}

func (c *CLI) render(cmd *cobra.Command, templateID, format string, width int) (commands.RenderOutput, error) {
	result, err := c.execute(cmd, "render", map[string]interface{}{
		"template_id": templateID,
		"format":      format,
		"width":       width,
	})
	if err != nil {
		return commands.RenderOutput{}, err
	}
	return result.Data.(commands.RenderOutput), nil
}

func (c *CLI) renderCmd() *cobra.Command {
	var format string
	var width int
	cmd := &cobra.Command{
		Use:   "render [template-id]",
		Short: "Render the final prompt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.render(cmd, optional(args, 0), format, width)
			if err != nil {
				return err
			}
			if c.format == OutputJSON {
				return c.printJSON(out)
			}
			if out.Format == commands.FormatSpans {
				c.printBlocks(out.Blocks)
				return nil
			}
			fmt.Fprintln(c.out, out.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", commands.FormatText, "text, json, spans or markdown")
	cmd.Flags().IntVar(&width, "width", 0, "word wrap width for markdown (default 80)")
	return cmd
}

// printBlocks highlights filled values and unfilled placeholders
func (c *CLI) printBlocks(blocks []renderer.Block) {
	for _, b := range blocks {
		fmt.Fprintln(c.out, c.muted.Render("# "+b.Label))
		var line strings.Builder
		for _, s := range b.Spans {
			switch s.Kind {
			case renderer.SpanFilled:
				line.WriteString(c.filled.Render(s.Value))
			case renderer.SpanUnfilled:
				line.WriteString(c.unfilled.Render(s.Value))
			default:
				line.WriteString(s.Value)
			}
		}
		fmt.Fprintln(c.out, line.String())
		if !b.IsLast {
			fmt.Fprintln(c.out)
		}
	}
}

func (c *CLI) copyCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "copy [template-id]",
		Short: "Copy the final prompt to the clipboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.render(cmd, optional(args, 0), format, 0)
			if err != nil {
				return err
			}
			if err := clipboard.CopyTo(c.clip, out.Text); err != nil {
				fmt.Fprintf(c.out, "Warning: %v\n", err)
				fmt.Fprintln(c.out, out.Text)
				return nil
			}
			fmt.Fprintf(c.out, "Copied %d characters to clipboard!\n", len([]rune(out.Text)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", commands.FormatText, "text or json")
	return cmd
}

// ---- types -----------------------------------------------------------------

func (c *CLI) typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List template types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "list-types", nil)
			if err != nil {
				return err
			}
			types := result.Data.([]models.TemplateType)
			if c.format == OutputJSON {
				return c.printJSON(types)
			}
			fmt.Fprintf(c.out, "%-36s %-20s %s\n", "ID", "Name", "Master")
			fmt.Fprintln(c.out, strings.Repeat("-", 96))
			for _, tt := range types {
				fmt.Fprintf(c.out, "%-36s %-20s %s\n", tt.ID, truncate(tt.Name, 20), tt.MasterTemplateID)
			}
			return nil
		},
	}
}

func (c *CLI) createTypeCmd() *cobra.Command {
	var master string
	cmd := &cobra.Command{
		Use:   "create-type <name>",
		Short: "Create a type whose categories come from a master template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if master == "" {
				st, err := c.store(cmd.Context())
				if err != nil {
					return err
				}
				master = st.Snapshot().ActiveID
			}
			result, err := c.execute(cmd, "create-type", map[string]interface{}{
				"name":      strings.Join(args, " "),
				"master_id": master,
			})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
	cmd.Flags().StringVar(&master, "master", "", "master template id (default: active template)")
	return cmd
}

func (c *CLI) setTypeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-type <template-id> [type-id]",
		Short: "Set the type of a template; omit the type to make it untyped",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "set-type", map[string]interface{}{
				"template_id": args[0],
				"type_id":     optional(args, 1),
			})
			if err != nil {
				return err
			}
			return c.report(result)
		},
	}
}

func (c *CLI) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search templates by name and snippet labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.execute(cmd, "search", map[string]interface{}{"query": strings.Join(args, " ")})
			if err != nil {
				return err
			}
			return c.printSummaries(result.Data.([]commands.TemplateSummary))
		},
	}
}

// ---- export / import -------------------------------------------------------

func (c *CLI) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the library as YAML (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.store(cmd.Context())
			if err != nil {
				return err
			}
			lib := storage.Export(st.Snapshot(), time.Now())
			if len(args) == 0 {
				return lib.Encode(c.out)
			}
			if err := storage.WriteFile(args[0], lib); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Exported %d templates to %s\n", len(lib.Templates), args[0])
			return nil
		},
	}
}

func (c *CLI) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append the templates of an exported library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var lib *storage.Library
			var err error
			if args[0] == "-" {
				lib, err = storage.Decode(os.Stdin)
			} else {
				lib, err = storage.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			st, err := c.store(cmd.Context())
			if err != nil {
				return err
			}
			result, err := storage.Import(st, lib)
			if err != nil {
				return err
			}
			if c.format == OutputJSON {
				return c.printJSON(result)
			}
			fmt.Fprintf(c.out, "Imported %d templates, %d snippets, %d types and %d values\n",
				result.Templates, result.Snippets, result.Types, result.Values)
			return nil
		},
	}
}
