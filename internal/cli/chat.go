package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docqa/internal/tui"
)

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat <id>",
	Short: "Interactive question loop for a processed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := components(currentConfig, log)
		if err != nil {
			return err
		}
		// fail before starting the UI if the document is unknown
		chunks, err := p.Chunks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		summary := preview(chunks[0], 200)
		m := tui.New(cmd.Context(), p, args[0], summary, chatTopK)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
}
