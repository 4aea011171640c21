package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"SearchMapper/pkg/logger"
	"SearchMapper/pkg/mapping"
	"SearchMapper/pkg/query"
	"SearchMapper/pkg/scheduler"
	"SearchMapper/pkg/search"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildCommand validates a mapping and prints its serialized form.
func buildCommand(c *cli.Context) error {
	m, _, err := buildMapping(c)
	if err != nil {
		return err
	}
	out, err := mapping.Serialize(m, c.Bool("include-defaults"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(out))
	return nil
}

type subfieldReport struct {
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	MinChars     int    `json:"min_chars,omitempty"`
	MaxChars     int    `json:"max_chars,omitempty"`
	IndexOptions string `json:"index_options"`
	TermVector   string `json:"term_vector"`
}

// deriveCommand prints the auxiliary sub-fields.
func deriveCommand(c *cli.Context) error {
	m, _, err := buildMapping(c)
	if err != nil {
		return err
	}
	report := []subfieldReport{}
	for _, a := range mapping.Derive(m) {
		report = append(report, subfieldReport{
			Kind:         a.Kind.String(),
			Name:         a.Name,
			MinChars:     a.MinChars,
			MaxChars:     a.MaxChars,
			IndexOptions: a.IndexOptions.String(),
			TermVector:   a.TermVector.String(),
		})
	}
	return printJSON(c, report)
}

// planCommand plans one query and prints it.
func planCommand(c *cli.Context) error {
	m, _, err := buildMapping(c)
	if err != nil {
		return err
	}
	p := query.NewPlanner(m)
	text := strings.Join(c.Args().Slice(), " ")

	var q query.Query
	switch op := c.String("op"); op {
	case "phrase":
		q = p.PlanPhrase(text, c.Int("slop"))
	case "phrase_prefix":
		q = p.PlanPhrasePrefix(text, c.Int("slop"))
	case "prefix":
		q = p.PlanPrefix(text)
	case "exists":
		q = p.PlanExists()
	default:
		return fmt.Errorf("unknown operation [%s]", op)
	}
	fmt.Fprintln(c.App.Writer, query.Format(q))
	return nil
}

// exportCommand prints the bleve index mapping.
func exportCommand(c *cli.Context) error {
	m, reg, err := buildMapping(c)
	if err != nil {
		return err
	}
	idx, err := search.BuildIndexMapping(reg, m)
	if err != nil {
		return err
	}
	return printJSON(c, idx)
}

// putCommand merges a mapping into the persisted schema.
func putCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	sr, st, err := openSchema(c, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	mc, err := readMapping(c)
	if err != nil {
		return err
	}
	m, err := sr.PutConfig(c.Context, mc)
	if err != nil {
		return err
	}
	rev, err := st.Latest(c.Context, m.Name())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s version %d\n", m.Name(), rev.Version)
	return nil
}

// historyCommand lists persisted revisions.
func historyCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	_, st, err := openSchema(c, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	revs, err := st.History(c.Context, c.String("name"))
	if err != nil {
		return err
	}
	for _, r := range revs {
		fmt.Fprintf(c.App.Writer, "%d\t%s\t%s\n", r.Version, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), r.Source)
	}
	return nil
}

// watchCommand periodically reloads the schema until SIGINT or SIGTERM.
func watchCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	sr, st, err := openSchema(c, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	spec := cfg.RefreshSchedule
	if c.IsSet("schedule") {
		spec = c.String("schedule")
	}
	cr := scheduler.NewCron(nil)
	if _, err := cr.Add(spec, "schema-refresh", scheduler.FuncJob(sr.Restore)); err != nil {
		return fmt.Errorf("invalid schedule [%s]: %w", spec, err)
	}
	cr.Start()
	defer cr.Stop()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Info("watching schema", zap.String("schedule", spec), zap.Strings("fields", sr.Names()))
	<-ctx.Done()
	return nil
}
