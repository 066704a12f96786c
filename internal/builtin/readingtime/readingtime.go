// Package readingtime is a built-in plugin that appends an estimated
// reading time to rendered post content. It doubles as a reference for
// plugin authors: one manifest, one filter, one action, no state.
package readingtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/embercms/ember/internal/hooks"
	"github.com/embercms/ember/internal/plugins"
)

const wordsPerMinute = 200

// Plugin implements plugins.Plugin.
type Plugin struct {
	logger *slog.Logger
}

// New creates the plugin.
func New(logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{logger: logger.With("plugin", "readingtime")}
}

// Manifest implements plugins.Plugin.
func (p *Plugin) Manifest() plugins.Manifest {
	return plugins.Manifest{
		ID:          "readingtime",
		Name:        "Reading Time",
		Version:     "1.0.0",
		Description: "Appends an estimated reading time to rendered content",
		Author:      "Ember",
	}
}

// Activate implements plugins.Plugin. The render filter runs at a late
// priority so it sees content after shortcode and markup filters.
func (p *Plugin) Activate(ctx context.Context, b *plugins.HookBinding) error {
	if _, err := b.AddFilter(hooks.FilterContentRender, p.appendEstimate,
		hooks.WithPriority(90), hooks.WithName("append reading time")); err != nil {
		return err
	}
	if _, err := b.AddAction(hooks.EventPostCreated, p.logEstimate,
		hooks.WithName("log reading time")); err != nil {
		return err
	}
	return nil
}

// Deactivate implements plugins.Plugin.
func (p *Plugin) Deactivate(ctx context.Context) error {
	return nil
}

func (p *Plugin) appendEstimate(ctx context.Context, value any, args ...any) (any, error) {
	content, ok := value.(string)
	if !ok {
		// Not a string pipeline; stay transparent.
		return value, nil
	}
	return content + fmt.Sprintf("\n<p class=\"reading-time\">%d min read</p>", Estimate(content)), nil
}

func (p *Plugin) logEstimate(ctx context.Context, args ...any) error {
	if len(args) < 2 {
		return nil
	}
	content, ok := args[1].(string)
	if !ok {
		return nil
	}
	p.logger.Info("post created", "post", args[0], "minutes", Estimate(content))
	return nil
}

// Estimate returns the estimated reading time in whole minutes, never
// less than one.
func Estimate(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
