package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/rename-agent/internal/cli"
	"github.com/Veraticus/rename-agent/internal/model"
	"github.com/Veraticus/rename-agent/internal/service"
	"github.com/Veraticus/rename-agent/internal/template"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Manage naming patterns",
		Long: `Manage the naming patterns kept for each document type. Built-in patterns are
seeded the first time a type is used; patterns you add or teach are marked learned.`,
	}

	// Subcommands
	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsShowCmd())
	cmd.AddCommand(patternsAddCmd())
	cmd.AddCommand(patternsUpdateCmd())
	cmd.AddCommand(patternsRetireCmd())
	cmd.AddCommand(patternsLearnCmd())
	cmd.AddCommand(patternsTestCmd())
	cmd.AddCommand(patternsExportCmd())
	cmd.AddCommand(patternsStatsCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	var (
		docType string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List naming patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filterType, err := parseOptionalType(docType)
			if err != nil {
				return err
			}

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			var rules []model.PatternRule
			if filterType != nil {
				if all {
					rules, err = st.patterns.AllPatterns(ctx)
				} else {
					rules, err = st.patterns.PatternsFor(ctx, *filterType)
				}
			} else {
				rules, err = st.patterns.AllPatterns(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get patterns: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tTYPE\tTEMPLATE\tORIGIN\tUSES\tLAST USED\tSTATUS")
			_, _ = fmt.Fprintln(w, "──\t────\t────────\t──────\t────\t─────────\t──────")

			for _, rule := range rules {
				if filterType != nil && rule.DocumentType != *filterType {
					continue
				}
				if !all && !rule.IsActive() {
					continue
				}

				lastUsed := "never"
				if rule.LastUsed != nil {
					lastUsed = formatRelativeTime(*rule.LastUsed)
				}
				status := "active"
				if !rule.IsActive() {
					status = "retired"
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					rule.ID,
					rule.DocumentType,
					truncateString(rule.Template, 60),
					rule.Origin,
					rule.UsageCount,
					lastUsed,
					status)
			}

			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "only patterns for this document type")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include retired patterns")
	return cmd
}

func patternsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one naming pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := st.patterns.GetPattern(ctx, args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderRule(rule))
			return err
		},
	}
}

func renderRule(rule *model.PatternRule) string {
	content := fmt.Sprintf("  Type:        %s\n  Template:    %s\n  Origin:      %s\n  Uses:        %d",
		rule.DocumentType.DisplayName(), rule.Template, rule.Origin, rule.UsageCount)

	if tokens, err := template.Parse(rule.Template); err == nil {
		content += "\n  Fields:     "
		for _, name := range tokens.Fields() {
			content += " {" + string(name) + "}"
		}
	}
	if rule.Description != "" {
		content += "\n  Description: " + rule.Description
	}
	if len(rule.MatchKeywords) > 0 {
		content += fmt.Sprintf("\n  Keywords:    %v", rule.MatchKeywords)
	}
	if len(rule.MatchInstitutions) > 0 {
		content += fmt.Sprintf("\n  Institutions: %v", rule.MatchInstitutions)
	}
	if rule.Priority != 0 {
		content += fmt.Sprintf("\n  Priority:    %d", rule.Priority)
	}
	content += "\n  Created:     " + rule.CreatedAt.Local().Format("2006-01-02 15:04")
	if rule.LastUsed != nil {
		content += "\n  Last used:   " + formatRelativeTime(*rule.LastUsed)
	}
	if rule.RetiredAt != nil {
		content += "\n  " + cli.WarningStyle.Render("Retired "+rule.RetiredAt.Local().Format("2006-01-02"))
	}

	title := rule.ID
	if rule.Name != "" {
		title = rule.Name + " (" + rule.ID + ")"
	}
	return cli.RenderBox(title, content)
}

func patternsAddCmd() *cobra.Command {
	var (
		docType      string
		tmpl         string
		opts         service.PatternOptions
		keywords     []string
		institutions []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a naming pattern",
		Example: `  renamer patterns add --type bill --template "{Date:YYYY-MM} - {Service Provider} - {Account Number}"
  renamer patterns add --type receipt --template "{Date:YYYYMMDD} {Merchant}" --keyword coffee`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			parsedType, err := model.ParseDocumentType(docType)
			if err != nil {
				return err
			}
			opts.MatchKeywords = keywords
			opts.MatchInstitutions = institutions

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := st.patterns.AddPattern(ctx, parsedType, tmpl, opts)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added pattern %s", rule.ID)))
			return err
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "document type")
	cmd.Flags().StringVar(&tmpl, "template", "", "pattern template, e.g. \"{Date:YYYY-MM-DD} - {Merchant}\"")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "only use for documents mentioning this keyword (repeatable)")
	cmd.Flags().StringSliceVar(&institutions, "institution", nil, "only use for this institution (repeatable)")
	cmd.Flags().IntVar(&opts.Priority, "priority", 0, "tie-break priority, higher wins")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func patternsUpdateCmd() *cobra.Command {
	var (
		tmpl         string
		name         string
		description  string
		keywords     []string
		institutions []string
		priority     int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a naming pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var update service.PatternUpdate
			flags := cmd.Flags()
			if flags.Changed("template") {
				update.Template = &tmpl
			}
			if flags.Changed("name") {
				update.Name = &name
			}
			if flags.Changed("description") {
				update.Description = &description
			}
			if flags.Changed("keyword") {
				update.MatchKeywords = keywords
			}
			if flags.Changed("institution") {
				update.MatchInstitutions = institutions
			}
			if flags.Changed("priority") {
				update.Priority = &priority
			}

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := st.patterns.UpdatePattern(ctx, args[0], update)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderRule(rule))
			return err
		},
	}

	cmd.Flags().StringVar(&tmpl, "template", "", "new template")
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "replace keywords (repeatable)")
	cmd.Flags().StringSliceVar(&institutions, "institution", nil, "replace institutions (repeatable)")
	cmd.Flags().IntVar(&priority, "priority", 0, "new priority")

	return cmd
}

func patternsRetireCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "retire <id>",
		Aliases: []string{"delete"},
		Short:   "Retire a naming pattern",
		Long:    `Retired patterns are kept for history but no longer selected.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := st.patterns.RetirePattern(ctx, args[0]); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Retired pattern "+args[0]))
			return err
		},
	}
}

func patternsLearnCmd() *cobra.Command {
	var (
		docType     string
		tmpl        string
		institution string
	)

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Teach the naming you prefer for a type or institution",
		Long: `Register a learned pattern. With --institution the pattern only applies to that
institution and replaces the one previously learned for it.`,
		Example: `  renamer patterns learn --type bank_statement --institution Chase \
    --template "{Date:YYYY-MM} Chase {Last 4 Digits}"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			parsedType, err := model.ParseDocumentType(docType)
			if err != nil {
				return err
			}

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			rule, err := st.patterns.LearnPattern(ctx, parsedType, tmpl, institution)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Learned pattern %s: %s", rule.ID, rule.Template)))
			return err
		},
	}

	cmd.Flags().StringVarP(&docType, "type", "t", "", "document type")
	cmd.Flags().StringVar(&tmpl, "template", "", "pattern template")
	cmd.Flags().StringVar(&institution, "institution", "", "institution the pattern applies to")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func patternsTestCmd() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:     "test <template>",
		Short:   "Validate a template and render it against sample fields",
		Example: `  renamer patterns test "{Date:YYYY-MM} - {Bank Name}" --field Date=2024-03-15 --field "Bank Name=Chase"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := template.Validate(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Template is valid: "+tokens.String()))
			if len(fields) == 0 {
				return nil
			}

			parsedFields, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}
			rendered, err := tokens.Render(parsedFields)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, cli.FormatInfo("Renders as: "+rendered))
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "sample field as Name=Value (repeatable)")
	return cmd
}

// exportedRule is the stable export shape of a pattern rule.
type exportedRule struct {
	LastUsed          *time.Time `json:"lastUsed,omitempty" yaml:"lastUsed,omitempty"`
	ID                string     `json:"id" yaml:"id"`
	Template          string     `json:"template" yaml:"template"`
	Name              string     `json:"name,omitempty" yaml:"name,omitempty"`
	Origin            string     `json:"origin" yaml:"origin"`
	MatchKeywords     []string   `json:"matchKeywords,omitempty" yaml:"matchKeywords,omitempty"`
	MatchInstitutions []string   `json:"matchInstitutions,omitempty" yaml:"matchInstitutions,omitempty"`
	UsageCount        int        `json:"usageCount" yaml:"usageCount"`
	Priority          int        `json:"priority,omitempty" yaml:"priority,omitempty"`
	Retired           bool       `json:"retired,omitempty" yaml:"retired,omitempty"`
}

func patternsExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all patterns as JSON or YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			rules, err := st.patterns.AllPatterns(ctx)
			if err != nil {
				return err
			}

			export := make(map[string][]exportedRule)
			for _, rule := range rules {
				export[string(rule.DocumentType)] = append(export[string(rule.DocumentType)], exportedRule{
					ID:                rule.ID,
					Template:          rule.Template,
					Name:              rule.Name,
					Origin:            string(rule.Origin),
					UsageCount:        rule.UsageCount,
					LastUsed:          rule.LastUsed,
					MatchKeywords:     rule.MatchKeywords,
					MatchInstitutions: rule.MatchInstitutions,
					Priority:          rule.Priority,
					Retired:           !rule.IsActive(),
				})
			}

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(export, "", "  ")
				data = append(data, '\n')
			case "yaml":
				data, err = yaml.Marshal(export)
			default:
				return fmt.Errorf("unsupported format %q: use json or yaml", format)
			}
			if err != nil {
				return fmt.Errorf("failed to encode patterns: %w", err)
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			_, err = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(fmt.Sprintf("Exported %d patterns to %s", len(rules), output)))
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func patternsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the pattern store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, cleanup, err := openStores(ctx, appConfig)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := st.patterns.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Patterns: %d (%d active, %d learned)\n\n", stats.TotalPatterns, stats.ActivePatterns, stats.LearnedCount)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TYPE\tPATTERNS\tUSES")
			for _, docType := range model.DocumentTypes() {
				typeStats, ok := stats.ByType[docType]
				if !ok {
					continue
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", docType.DisplayName(), typeStats.Patterns, typeStats.Uses)
			}
			return w.Flush()
		},
	}
}
