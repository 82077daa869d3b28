package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askTopK int

var askCmd = &cobra.Command{
	Use:   "ask <id> <question...>",
	Short: "Ask a question about a processed document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := components(currentConfig, log)
		if err != nil {
			return err
		}
		question := strings.Join(args[1:], " ")
		answer, err := p.Ask(cmd.Context(), args[0], question, askTopK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, answer.Result.String())
		if len(answer.Sources) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, titleStyle.Render("Sources"))
			for _, s := range answer.Sources {
				fmt.Fprintf(out, "%s %s\n", mutedStyle.Render(fmt.Sprintf("[chunk %d, d=%.3f]", s.Position, s.Distance)), preview(s.Text, 100))
			}
		}
		return nil
	},
}

var (
	summarizeChunks    int
	summarizeOffline   bool
	summarizeSentences int
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize a processed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if summarizeOffline {
			p, err := documents(currentConfig, log)
			if err != nil {
				return err
			}
			clauses, err := p.Highlights(cmd.Context(), args[0], summarizeSentences)
			if err != nil {
				return err
			}
			for _, c := range clauses {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+c)
			}
			return nil
		}
		p, err := components(currentConfig, log)
		if err != nil {
			return err
		}
		res, err := p.Summarize(cmd.Context(), args[0], summarizeChunks)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.String())
		return nil
	},
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	summarizeCmd.Flags().IntVar(&summarizeChunks, "chunks", 0, "number of chunks to sample (default from config)")
	summarizeCmd.Flags().BoolVar(&summarizeOffline, "offline", false, "list key clauses instead of asking the model")
	summarizeCmd.Flags().IntVar(&summarizeSentences, "sentences", 0, "number of key clauses with --offline (default 5)")
}

// preview flattens whitespace and cuts text to n runes.
func preview(text string, n int) string {
	flat := []rune(strings.Join(strings.Fields(text), " "))
	if len(flat) <= n {
		return string(flat)
	}
	return string(flat[:n]) + "…"
}
