package main

import (
	"github.com/spf13/cobra"

	"github.com/matsen/chromacli/internal/completion"
)

func init() {
	rootCmd.AddCommand(completionCmd)
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate completion scripts for your shell.

Bash:
  $ source <(chromacli completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ chromacli completion bash > /etc/bash_completion.d/chromacli
  # macOS:
  $ chromacli completion bash > $(brew --prefix)/etc/bash_completion.d/chromacli

Zsh:
  $ chromacli completion zsh > "${fpath[1]}/_chromacli"

Fish:
  $ chromacli completion fish > ~/.config/fish/completions/chromacli.fish

PowerShell:
  PS> chromacli completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  usageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return completion.Bash(out, rootCmd.Name(), completion.Default())
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
	},
}
