// Package cli carries helpers shared by the maitred binaries. The
// --help-json flag dumps a machine-readable description of the command
// tree for deployment tooling.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

type flagSpec struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

type commandSpec struct {
	Name        string        `json:"name"`
	Use         string        `json:"use,omitempty"`
	Description string        `json:"description,omitempty"`
	Long        string        `json:"long,omitempty"`
	Flags       []flagSpec    `json:"flags,omitempty"`
	Subcommands []commandSpec `json:"subcommands,omitempty"`
}

// AddHelpJSONFlag registers --help-json on the command.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// CheckHelpJSON scans os.Args for --help-json and, when present, prints
// the schema of the addressed subcommand and exits. Runs before
// cmd.Execute() so it wins over argument validation.
func CheckHelpJSON(root *cobra.Command) {
	for i, arg := range os.Args {
		if arg != "--"+helpJSONFlag {
			continue
		}
		target := resolveCommand(root, os.Args[1:i])
		out, err := json.MarshalIndent(describe(target), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		os.Exit(0)
	}
}

func describe(cmd *cobra.Command) commandSpec {
	spec := commandSpec{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
	}

	required := false
	if cmd.Annotations != nil {
		_, required = cmd.Annotations[cobra.BashCompOneRequiredFlag]
	}
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == helpJSONFlag || f.Name == "help" {
			return
		}
		spec.Flags = append(spec.Flags, flagSpec{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    required,
		})
	})

	for _, sub := range cmd.Commands() {
		if sub.Name() == "help" || sub.Hidden {
			continue
		}
		spec.Subcommands = append(spec.Subcommands, describe(sub))
	}

	return spec
}

// resolveCommand walks the args typed before --help-json down the
// command tree, stopping at the deepest match.
func resolveCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return resolveCommand(sub, args[1:])
		}
	}
	return cmd
}
