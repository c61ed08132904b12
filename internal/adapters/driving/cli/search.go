package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/logger"
)

var (
	matchThreshold float64
	matchTopK      int
	outputJSON     bool
	showSources    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [doc-id] [question]",
	Short: "Answer a question about a document",
	Long: `Embeds the question, matches it against the chunks of one document,
and asks the language model to answer using the best matches as context.

A question with no matching chunks is still answered, with an empty context.`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

var searchCmd = &cobra.Command{
	Use:   "search [doc-id] [query]",
	Short: "List the chunks of a document most similar to a query",
	Long: `Embeds the query and returns the matching chunks of one document,
most similar first. Only chunks at or above the similarity threshold are
returned, at most --top-k of them.`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	for _, c := range []*cobra.Command{askCmd, searchCmd} {
		c.Flags().Float64Var(&matchThreshold, "threshold", domain.DefaultThreshold, "minimum cosine similarity")
		c.Flags().IntVarP(&matchTopK, "top-k", "k", domain.DefaultTopK, "maximum number of matches")
		c.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	}
	askCmd.Flags().BoolVar(&showSources, "sources", false, "list the matched chunks with their scores")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(searchCmd)
}

// MatchOutput is the JSON form of a match.
type MatchOutput struct {
	Index      int     `json:"index"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// AnswerOutput is the JSON form of an answer.
type AnswerOutput struct {
	DocumentID string        `json:"document_id"`
	Answer     string        `json:"answer"`
	Sources    []MatchOutput `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	req := domain.AskRequest{
		DocumentID: args[0],
		Question:   args[1],
		Owner:      resolveOwner(),
	}
	req.Threshold, req.TopK = matchOverrides(cmd)

	answer, err := retrievalService.Ask(contextOf(cmd), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrNotFound) ||
			errors.Is(err, domain.ErrForbidden) {
			return err
		}
		logger.Error("ask %s: %v", req.DocumentID, err)
		return domain.ErrAnswerUnavailable
	}

	if outputJSON {
		return printJSON(cmd, AnswerOutput{
			DocumentID: req.DocumentID,
			Answer:     answer.Text,
			Sources:    matchOutputs(answer.Matches),
		})
	}

	cmd.Println(answer.Text)
	if showSources {
		cmd.Println()
		printMatches(cmd, answer.Matches)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	req := domain.SearchRequest{
		DocumentID: args[0],
		Query:      args[1],
		Owner:      resolveOwner(),
	}
	req.Threshold, req.TopK = matchOverrides(cmd)

	matches, err := retrievalService.Search(contextOf(cmd), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if outputJSON {
		return printJSON(cmd, matchOutputs(matches))
	}
	printMatches(cmd, matches)
	return nil
}

// matchOverrides returns the threshold and top-k flags, but only those
// given on the command line. Unset flags defer to configuration.
func matchOverrides(cmd *cobra.Command) (*float64, int) {
	var threshold *float64
	if cmd.Flags().Changed("threshold") {
		t := matchThreshold
		threshold = &t
	}
	topK := 0
	if cmd.Flags().Changed("top-k") {
		topK = matchTopK
	}
	return threshold, topK
}

func matchOutputs(matches []domain.Match) []MatchOutput {
	out := make([]MatchOutput, len(matches))
	for i := range matches {
		out[i] = MatchOutput{
			Index:      matches[i].Chunk.Index,
			Similarity: matches[i].Similarity,
			Content:    matches[i].Chunk.Content,
		}
	}
	return out
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printMatches(cmd *cobra.Command, matches []domain.Match) {
	if len(matches) == 0 {
		cmd.Println("No matching chunks.")
		return
	}

	cmd.Println("Sources:")
	cmd.Println()
	for i := range matches {
		cmd.Printf("  [%d] chunk %d (%.3f)\n", i+1, matches[i].Chunk.Index, matches[i].Similarity)
		cmd.Printf("      %s\n", snippet(matches[i].Chunk.Content, 160))
		cmd.Println()
	}
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
