package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/rename-agent/internal/model"
)

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List document types and the fields they use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TYPE\tNAME\tFIELDS\tDESCRIPTION")
			_, _ = fmt.Fprintln(w, "────\t────\t──────\t───────────")

			for _, info := range model.DocumentTypeInfos() {
				names := make([]string, len(info.ExtractFields))
				for i, field := range info.ExtractFields {
					names[i] = string(field)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Type, info.Name, strings.Join(names, ", "), info.Description)
			}
			return w.Flush()
		},
	}
}
