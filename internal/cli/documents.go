package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"docqa/internal/chunker"
	"docqa/internal/extract"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

var chunksCmd = &cobra.Command{
	Use:   "chunks <file>",
	Short: "Show how a document would be chunked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := extract.File(args[0])
		if err != nil {
			return err
		}
		c := chunker.NewParagraphChunker(currentConfig.Chunker.Size, currentConfig.Chunker.Overlap)
		counter := tokenCounter(currentConfig, log)
		out := cmd.OutOrStdout()
		chunks := c.Chunk(text)
		for i, ch := range chunks {
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render(fmt.Sprintf("#%d", i)),
				mutedStyle.Render(fmt.Sprintf("%d chars, %d tokens", len([]rune(ch)), counter.Count(ch))))
			fmt.Fprintln(out, preview(ch, 160))
		}
		fmt.Fprintf(out, "\n%d chunks\n", len(chunks))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List processed documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := documents(currentConfig, log)
		if err != nil {
			return err
		}
		ids, err := p.Documents(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a processed document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := documents(currentConfig, log)
		if err != nil {
			return err
		}
		if err := p.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted "+args[0])
		return nil
	},
}
