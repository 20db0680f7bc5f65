package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for uvbrew.

To load completions:

Bash:
  $ source <(uvbrew completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ uvbrew completion bash > /etc/bash_completion.d/uvbrew
  # macOS:
  $ uvbrew completion bash > $(brew --prefix)/etc/bash_completion.d/uvbrew

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ uvbrew completion zsh > "${fpath[1]}/_uvbrew"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ uvbrew completion fish | source

  # To load completions for each session, execute once:
  $ uvbrew completion fish > ~/.config/fish/completions/uvbrew.fish

PowerShell:
  PS> uvbrew completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> uvbrew completion powershell > uvbrew.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(c.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(c.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(c.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(c.Stdout)
			}
			return nil
		},
	}

	return cmd
}
