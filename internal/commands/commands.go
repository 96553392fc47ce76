package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"evalgo.org/fireedge/internal/command"
)

var commandsCmd = &cobra.Command{
	Use:   "commands [resource]",
	Short: "List the oned commands exposed by the gateway",
	Long: `List the command catalog with the HTTP route and parameters of each command.

Examples:
  fireedge commands
  fireedge commands vm`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resource := ""
		if len(args) == 1 {
			resource = args[0]
		}
		return printCatalog(cmd.OutOrStdout(), command.DefaultCatalog(), resource)
	},
}

func printCatalog(out io.Writer, cat *command.Catalog, resource string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tMETHOD\tROUTE\tPARAMS")

	n := 0
	for _, c := range cat.All() {
		if resource != "" && c.Resource() != resource {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t/api%s\t%s\n", c.Name, c.Method, c.Path(), describeParams(c.Params))
		n++
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if n == 0 && resource != "" {
		return fmt.Errorf("no commands for resource %q", resource)
	}
	return nil
}

// describeParams renders params as name:source, with * marking required ones.
func describeParams(params []command.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := fmt.Sprintf("%s:%s", p.Name, p.From)
		if p.Required {
			s += "*"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
