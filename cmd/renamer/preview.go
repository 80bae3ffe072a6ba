package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/rename-agent/internal/cli"
	"github.com/Veraticus/rename-agent/internal/engine"
	"github.com/Veraticus/rename-agent/internal/model"
)

func previewCmd() *cobra.Command {
	var (
		docType string
		fields  []string
		dest    string
		record  bool
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the name a document would receive",
		Long: `Select the best pattern for a document's fields and print the proposed name.
Nothing is renamed. With --record the proposal is kept in history as a dry run.`,
		Example: `  renamer preview scan001.pdf --type receipt \
    --field Date=2024-03-15 --field Merchant=Amazon --field Amount=19.99`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			parsedType, err := model.ParseDocumentType(docType)
			if err != nil {
				return err
			}
			parsedFields, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			eng := st.newEngine(appConfig)
			req := engine.Request{
				Path:         args[0],
				Dir:          dest,
				DocumentType: parsedType,
				Fields:       parsedFields,
				DryRun:       true,
			}

			decision, err := eng.Decide(ctx, req)
			if err != nil {
				return err
			}

			if record {
				if err := eng.Record(ctx, req, decision, model.OutcomeDryRun, ""); err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderDecision(decision))
			return err
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "document type (see: renamer types)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "extracted field as Name=Value (repeatable)")
	cmd.Flags().StringVar(&dest, "dest", "", "directory the file would be moved into")
	cmd.Flags().BoolVar(&record, "record", false, "record the proposal in history as a dry run")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func renderDecision(decision *engine.Decision) string {
	var b strings.Builder
	fmt.Fprintln(&b, cli.FormatRename(filepath.Base(decision.Source), decision.Name.Name))
	fmt.Fprintln(&b)

	rule := decision.Selection.Pattern
	fmt.Fprintf(&b, "  Pattern:    %s (%s)\n", rule.ID, rule.Template)
	fmt.Fprintf(&b, "  Confidence: %.0f%%\n", decision.Selection.Confidence*100)
	fmt.Fprintf(&b, "  Target:     %s", decision.Target)

	var notes []string
	if decision.Name.Truncated {
		notes = append(notes, "name was shortened to fit the length limit")
	}
	if decision.Name.Suffixed {
		notes = append(notes, "a number was added because the name is taken")
	}
	if decision.Unchanged() {
		notes = append(notes, "the file already has this name")
	}
	for _, note := range notes {
		fmt.Fprintf(&b, "\n  %s", cli.SubtleStyle.Render(note))
	}

	return cli.RenderBox("Proposed Name", b.String())
}
