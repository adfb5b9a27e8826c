package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphpush/internal/analyzer"
	"github.com/roach88/graphpush/internal/pushdown"
)

// AnalysisReport describes how one query would be pushed down.
type AnalysisReport struct {
	File      string            `json:"file"`
	Roles     map[string]string `json:"roles"`
	Conflicts []string          `json:"conflicts,omitempty"`
	Plans     []string          `json:"plans,omitempty"`
	Refused   string            `json:"refused,omitempty"`
	Reason    string            `json:"reason,omitempty"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <query-file>",
		Short: "Show variable roles and the strategy chosen for each triple",
		Long: `Analyze a YAML pattern query without emitting Cypher.

Prints the structural role of every variable in the required patterns
(node, predicate or ambiguous) and, when the query compiles, the render
strategy chosen for each triple.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runAnalyze(opts *RootOptions, file string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	req, err := loadRequest(file)
	if err != nil {
		return failLoad(formatter, err)
	}
	if !analyzer.CanPushdown(req.Patterns) {
		return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, file+": pattern set is empty")
	}

	an, err := analyzer.Analyze(req.Patterns)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalidQuery, err.Error())
	}

	report := AnalysisReport{
		File:      file,
		Roles:     make(map[string]string),
		Conflicts: an.Conflicts(),
	}
	for _, v := range an.AllVars() {
		role, _ := an.Role(v)
		report.Roles[v] = role.String()
	}

	compiler, err := newCompiler(opts, cmd.ErrOrStderr())
	if err != nil {
		return failLoad(formatter, err)
	}
	engine := pushdown.New(compiler, nil, nil, pushdown.WithLogger(opts.logger(cmd.ErrOrStderr())))
	res, _, err := engine.Compile(context.Background(), req)
	if err != nil {
		report.Refused = refusalCode(err)
		report.Reason = err.Error()
	} else {
		for _, p := range res.Plans {
			report.Plans = append(report.Plans, p.String())
		}
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "== %s\n", file)
	fmt.Fprintln(w, "roles:")
	for _, v := range an.AllVars() {
		fmt.Fprintf(w, "  ?%s: %s\n", v, report.Roles[v])
	}
	if len(report.Conflicts) > 0 {
		fmt.Fprintf(w, "conflicts: %v\n", report.Conflicts)
	}
	if report.Refused != "" {
		fmt.Fprintf(w, "refused: %s\n", report.Reason)
		return nil
	}
	fmt.Fprintln(w, "plans:")
	for _, p := range report.Plans {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}
