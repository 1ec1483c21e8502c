package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/tconf/pkg/pipeline"
)

// modelFormats are the --out extensions of disk and sphere.
var modelFormats = []string{
	pipeline.FormatGeo,
	pipeline.FormatMsh,
	pipeline.FormatJSON,
	pipeline.FormatSVG,
	pipeline.FormatPNG,
	pipeline.FormatPDF,
	pipeline.FormatDOT,
}

// topologyFormats are the --out extensions of topology.
var topologyFormats = []string{
	pipeline.FormatSVG,
	pipeline.FormatPDF,
	pipeline.FormatPNG,
	pipeline.FormatDOT,
}

// completeOutputs completes --out with files of the given extensions.
func completeOutputs(cmd *cobra.Command, exts ...string) {
	_ = cmd.RegisterFlagCompletionFunc("out", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return exts, cobra.ShellCompDirectiveFilterFileExt
	})
}

// completeConfig completes --config with TOML files.
func completeConfig(cmd *cobra.Command) {
	_ = cmd.MarkFlagFilename("config", "toml")
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tconf.

Besides commands and flags, the scripts complete --out with the file types a
command can write and --config with .toml parameter files.

Bash:
  $ source <(tconf completion bash)
  $ tconf completion bash > /etc/bash_completion.d/tconf

Zsh:
  $ tconf completion zsh > "${fpath[1]}/_tconf"

Fish:
  $ tconf completion fish > ~/.config/fish/completions/tconf.fish

PowerShell:
  PS> tconf completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
