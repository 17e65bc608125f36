package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/devpilot/internal/gemini"
	"github.com/existflow/devpilot/internal/logger"
	"github.com/existflow/devpilot/internal/metrics"
	"github.com/existflow/devpilot/internal/model"
)

// Trigger names what started a pipeline run
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerChat      Trigger = "chat"
)

// ProjectSource supplies the portfolio snapshot
type ProjectSource interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// Generator sends a prompt to the remote model
type Generator interface {
	GenerateFor(ctx context.Context, operation, prompt string, gc gemini.GenerationConfig) (string, error)
}

// Sink receives derived notifications
type Sink interface {
	Add(n model.Notification) (model.Notification, error)
}

// Result is the outcome of one run
type Result struct {
	Insight       model.Insight
	Notifications []model.Notification
	Fallback      bool // the response could not be parsed
}

// Pipeline runs snapshot -> prompt -> remote call -> parse -> notifications
type Pipeline struct {
	projects ProjectSource
	gen      Generator
	sink     Sink
	now      func() time.Time
}

// NewPipeline wires the pipeline collaborators
func NewPipeline(projects ProjectSource, gen Generator, sink Sink) *Pipeline {
	return &Pipeline{
		projects: projects,
		gen:      gen,
		sink:     sink,
		now:      time.Now,
	}
}

// SetClock replaces the time source
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Run executes the pipeline once. Configuration, remote and empty
// response errors are returned; a parse failure degrades to the fallback
// insight and is not an error.
func (p *Pipeline) Run(ctx context.Context, trigger Trigger) (*Result, error) {
	log := logger.WithFields(logger.F("trigger", string(trigger)))
	now := p.now()

	projects, err := p.projects.ListProjects(ctx)
	if err != nil {
		metrics.RecordInsightRun(string(trigger), "error")
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	prompt := BuildDailyPrompt(projects, now)
	log.Info("Generating insights", logger.F("projects", len(projects)))

	text, err := p.gen.GenerateFor(ctx, "insight", prompt, gemini.InsightGeneration)
	if err != nil {
		metrics.RecordInsightRun(string(trigger), "error")
		log.Error("Insight generation failed", logger.Err(err))
		return nil, err
	}

	res := &Result{}
	ins, err := ParseInsight(text)
	var pe *ParseError
	switch {
	case err == nil:
		res.Insight = ins
	case errors.As(err, &pe):
		log.Warn("Unparseable insight response, using fallback", logger.Err(err))
		res.Insight = FallbackInsight()
		res.Fallback = true
	default:
		metrics.RecordInsightRun(string(trigger), "error")
		return nil, err
	}

	for _, n := range ToNotifications(res.Insight, now) {
		stored, err := p.sink.Add(n)
		if err != nil {
			// the in-memory list is updated even if persistence fails
			log.Error("Failed to persist notification", logger.F("id", n.ID), logger.Err(err))
		}
		res.Notifications = append(res.Notifications, stored)
	}

	status := "success"
	if res.Fallback {
		status = "fallback"
	}
	metrics.RecordInsightRun(string(trigger), status)
	log.Info("Insights generated",
		logger.F("notifications", len(res.Notifications)),
		logger.F("score", res.Insight.ProductivityScore),
		logger.F("fallback", res.Fallback))
	return res, nil
}
