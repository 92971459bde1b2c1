package translate

import (
	"github.com/spf13/cobra"
)

type translateOptions struct {
	message  string
	to       string
	from     string
	provider string
	model    string
	debug    bool
}

func NewTranslateCommand() *cobra.Command {
	var opts translateOptions

	cmd := &cobra.Command{
		Use:     "translate",
		Aliases: []string{"t"},
		Short:   "Translate text with the configured provider",
		Example: `babelrelay translate -m "Hola a todos" --to English
babelrelay translate --to ja`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return translateCmd(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Translate one message and exit")
	cmd.Flags().StringVar(&opts.to, "to", "English", "Destination language name or tag")
	cmd.Flags().StringVar(&opts.from, "from", "", "Source language, for logging only")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "Override the configured provider (openai, anthropic)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Override the configured model")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}
