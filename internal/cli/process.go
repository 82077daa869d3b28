package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docqa/internal/entities"
	"docqa/internal/extract"
	"docqa/internal/service"
)

var processID string

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Extract, chunk, index and summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := extract.File(args[0])
		if err != nil {
			return err
		}
		log.Info("text extracted", "file", args[0], "chars", len([]rune(text)))

		p, err := components(currentConfig, log)
		if err != nil {
			return err
		}
		id := processID
		if id == "" {
			id = uuid.NewString()
		}
		analysis, err := p.Process(cmd.Context(), id, text)
		if err != nil {
			if st, ok := p.Status(id); ok && st.Stage == service.StageFailed {
				return fmt.Errorf("processing %s failed during %s: %w", id, st.FailedAt, err)
			}
			return fmt.Errorf("processing failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Document ")+analysis.DocumentID)
		fmt.Fprintf(out, "%d chunks indexed\n\n", analysis.ChunkCount)
		fmt.Fprintln(out, titleStyle.Render("Summary"))
		fmt.Fprintln(out, analysis.Summary.String())
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("Entities"))
		for _, category := range entities.Categories {
			values := analysis.Entities[category]
			if len(values) == 0 {
				continue
			}
			fmt.Fprintf(out, "%-13s %s\n", category, strings.Join(values, "; "))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, titleStyle.Render("Key terms"))
		fmt.Fprintln(out, formatTerms(analysis.KeyTerms))
		return nil
	},
}

func formatTerms(terms []entities.Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = fmt.Sprintf("%s (%d)", t.Word, t.Count)
	}
	return strings.Join(parts, ", ")
}

func init() {
	processCmd.Flags().StringVar(&processID, "id", "", "document id (default: random UUID)")
}
