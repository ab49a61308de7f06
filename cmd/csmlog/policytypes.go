package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"mercator-hq/csmlog/pkg/cli"
	"mercator-hq/csmlog/pkg/csm/policytype"
)

var policyTypesFlags struct {
	format string
}

var policyTypesCmd = &cobra.Command{
	Use:   "policytypes",
	Short: "List content policy types",
	Long: `List the content policy types known to csmlog with their numeric codes.

Blocks may carry either the code or the name of a type; unknown values are
reported as TYPE_UNKNOWN.`,
	Args: cobra.NoArgs,
	RunE: runPolicyTypes,
}

func init() {
	rootCmd.AddCommand(policyTypesCmd)

	policyTypesCmd.Flags().StringVar(&policyTypesFlags.format, "format", "text", "output format: text, json, yaml")
}

type policyTypeEntry struct {
	Code int    `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

type policyTypeList []policyTypeEntry

// String renders the list as an aligned two-column table.
func (l policyTypeList) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%4s  %s", "CODE", "NAME")
	for _, e := range l {
		fmt.Fprintf(&sb, "\n%4d  %s", e.Code, e.Name)
	}
	return sb.String()
}

func listPolicyTypes() policyTypeList {
	all := policytype.All()
	list := make(policyTypeList, 0, len(all))
	for _, t := range all {
		list = append(list, policyTypeEntry{Code: t.Code(), Name: t.String()})
	}
	return list
}

func runPolicyTypes(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(strings.ToLower(policyTypesFlags.format)))
	if err != nil {
		return err
	}
	var out io.Writer = os.Stdout
	if cmd != nil {
		out = cmd.OutOrStdout()
	}
	return formatter.FormatTo(out, listPolicyTypes())
}
