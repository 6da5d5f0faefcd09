package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/petal-labs/applebooks-mcp/books"
)

// Arg declares one required string argument of a tool.
type Arg struct {
	Name        string
	Description string
	// Text marks a free-text search argument. Whitespace is a valid query
	// there and is passed through; identifiers must not be blank.
	Text bool
}

// Args holds validated argument values keyed by name.
type Args map[string]string

// Handler runs one tool against the library and returns its text payload.
type Handler func(ctx context.Context, lib books.Library, args Args) (string, error)

// Tool is one entry of the catalog.
type Tool struct {
	Name        string
	Description string
	Args        []Arg
	Handler     Handler
}

// ArgNames returns the declared argument names in declaration order.
func (t Tool) ArgNames() []string {
	names := make([]string, 0, len(t.Args))
	for _, arg := range t.Args {
		names = append(names, arg.Name)
	}
	return names
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Library  books.Library
	Observer Observer
	Logger   *logrus.Entry
}

// Registry maps tool names to handlers over one injected library. The
// catalog is fixed at construction and never mutated afterwards.
type Registry struct {
	lib      books.Library
	tools    []Tool
	byName   map[string]int
	observer Observer
	log      *logrus.Entry
}

// NewRegistry builds the registry from the built-in catalog.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Library == nil {
		return nil, errors.New("tool: registry library is required")
	}
	return newRegistry(cfg, Catalog())
}

func newRegistry(cfg RegistryConfig, tools []Tool) (*Registry, error) {
	observer := cfg.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	byName := make(map[string]int, len(tools))
	for i, t := range tools {
		if strings.TrimSpace(t.Name) == "" || t.Handler == nil {
			return nil, fmt.Errorf("tool: catalog entry %d is incomplete", i)
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("tool: duplicate tool name %q", t.Name)
		}
		byName[t.Name] = i
	}

	return &Registry{
		lib:      cfg.Library,
		tools:    tools,
		byName:   byName,
		observer: observer,
		log:      log.WithField("component", "tool"),
	}, nil
}

// Tools returns the catalog in declaration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Call validates args and dispatches to the named tool. Failures are
// returned as *ToolError wrapping the library error unchanged.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	start := time.Now()
	text, err := r.call(ctx, name, args)
	elapsed := time.Since(start)

	code := ErrorCode(err)
	r.observer.ObserveInvoke(ctx, InvokeObservation{
		ToolName:  name,
		Duration:  elapsed,
		Success:   err == nil,
		ErrorCode: code,
	})

	entry := r.log.WithFields(logrus.Fields{
		"tool":     name,
		"duration": elapsed,
	})
	if err != nil {
		entry = entry.WithField("code", code)
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			for key, value := range toolErr.Details {
				if key != "tool" {
					entry = entry.WithField(key, value)
				}
			}
		}
		entry.WithError(err).Info("tool call failed")
		return "", err
	}
	entry.Debug("tool call")
	return text, nil
}

func (r *Registry) call(ctx context.Context, name string, raw map[string]any) (string, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return "", newToolError(ToolErrorCodeToolNotFound, "", fmt.Errorf("%w: tool %q", books.ErrNotFound, name))
	}

	args, err := bindArgs(t, raw)
	if err != nil {
		return "", err
	}

	text, err := t.Handler(ctx, r.lib, args)
	if err != nil {
		return "", newToolError(classify(err), "", err)
	}
	return text, nil
}

// bindArgs enforces presence of every declared argument as a string.
// Identifiers must also be non-blank. Semantic checks belong to the library.
func bindArgs(t Tool, raw map[string]any) (Args, error) {
	args := make(Args, len(t.Args))
	for _, arg := range t.Args {
		value, present := raw[arg.Name]
		if !present || value == nil {
			return nil, invalidArg(t.Name, arg.Name, "is required")
		}
		s, ok := value.(string)
		if !ok {
			return nil, invalidArg(t.Name, arg.Name, fmt.Sprintf("must be a string, got %T", value))
		}
		if !arg.Text && strings.TrimSpace(s) == "" {
			return nil, invalidArg(t.Name, arg.Name, "must not be blank")
		}
		args[arg.Name] = s
	}
	return args, nil
}

func invalidArg(toolName, argName, problem string) error {
	cause := fmt.Errorf("%w: %s: argument %q %s", books.ErrInvalidArgument, toolName, argName, problem)
	return withToolErrorDetails(newToolError(ToolErrorCodeInvalidArgument, "", cause), map[string]any{
		"tool":     toolName,
		"argument": argName,
	})
}
