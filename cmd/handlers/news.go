package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewNewsCmd creates the batch news generation command.
func NewNewsCmd() *cobra.Command {
	var category string
	var keywordsFlag string

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Generate a batch of grounded short news items",
		RunE: func(cmd *cobra.Command, args []string) error {
			keywords := splitKeywords(keywordsFlag)
			if len(keywords) == 0 {
				return fmt.Errorf("at least one keyword is required (--keywords)")
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			items, rejection := a.service.GenerateNewsItems(cmd.Context(), category, keywords)
			if rejection != nil {
				return printRejection(rejection)
			}
			return printJSON(map[string]any{"items": items})
		},
	}

	cmd.Flags().StringVar(&category, "category", "neutral", "emotion category for the batch")
	cmd.Flags().StringVar(&keywordsFlag, "keywords", "", "comma-separated topic keywords")
	_ = cmd.MarkFlagRequired("keywords")
	return cmd
}

func splitKeywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRejection emits the machine-readable rejection on stdout and fails
// the command so scripts can branch on the exit code.
func printRejection(rejection error) error {
	if err := printJSON(rejection); err != nil {
		return err
	}
	return fmt.Errorf("generation rejected")
}
