// Package agent implements the three model-backed roles of a repair run:
// the auditor that finds issues, the fixer that rewrites files, and the
// judge that rules on each iteration. All model traffic goes through the
// governor, and every exchange is journaled.
package agent

import (
	"context"
	"fmt"

	"github.com/CodexForgeBR/refactor-loop/internal/governor"
	"github.com/CodexForgeBR/refactor-loop/internal/journal"
	"github.com/CodexForgeBR/refactor-loop/internal/logging"
)

// Config carries the shared wiring every agent needs.
type Config struct {
	Governor  *governor.Governor
	Transport governor.Transport
	Journal   *journal.Journal
	Model     string
	Root      string
}

// caller is the shared model-invocation path: governed send, then a
// journal entry. Journal failures are logged, not fatal; losing one
// record must not abort a repair run.
type caller struct {
	gov       *governor.Governor
	transport governor.Transport
	journal   *journal.Journal
	model     string
}

func newCaller(cfg Config) caller {
	return caller{
		gov:       cfg.Governor,
		transport: cfg.Transport,
		journal:   cfg.Journal,
		model:     cfg.Model,
	}
}

// invoke sends system+body as one governed request and journals the
// exchange under the given agent name and action. Failed exchanges are
// journaled too, with the error in Details, so the record of what was
// asked survives the failure.
func (c *caller) invoke(ctx context.Context, name string, action journal.Action, iteration int, system, body string) (string, error) {
	prompt := system + "\n\n" + body

	response, err := c.gov.Invoke(ctx, c.transport, prompt)

	if c.journal != nil {
		rec := journal.Record{
			Agent:     name,
			Action:    action,
			Iteration: iteration,
			Model:     c.model,
			Prompt:    prompt,
			Response:  response,
		}
		if err != nil {
			rec.Details = err.Error()
		}
		if jerr := c.journal.Append(rec); jerr != nil {
			logging.Warn(fmt.Sprintf("Failed to journal %s exchange: %v", name, jerr))
		}
	}
	if err != nil {
		return "", err
	}
	return response, nil
}
