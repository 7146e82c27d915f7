package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsgate/internal/core"
)

// NewDraftCmd creates the single draft/longform generation command.
func NewDraftCmd() *cobra.Command {
	var mode string
	var topic string
	var refTitle, refURL, refSource, refSummary string

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Generate one grounded draft or long-form article",
		RunE: func(cmd *cobra.Command, args []string) error {
			var m core.Mode
			switch mode {
			case "draft":
				m = core.ModeDraft
			case "longform":
				m = core.ModeLongform
			default:
				return fmt.Errorf("unknown mode %q (want draft or longform)", mode)
			}

			var selected *core.ReferenceArticle
			if refURL != "" {
				selected = &core.ReferenceArticle{
					Title:   refTitle,
					Summary: refSummary,
					URL:     refURL,
					Source:  refSource,
				}
			}

			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			artifact, rejection := a.service.GenerateDraft(cmd.Context(), m, topic, selected)
			if rejection != nil {
				return printRejection(rejection)
			}
			return printJSON(artifact)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "draft", "generation mode: draft or longform")
	cmd.Flags().StringVar(&topic, "topic", "", "topic to write about")
	cmd.Flags().StringVar(&refURL, "ref-url", "", "URL of a caller-selected reference article")
	cmd.Flags().StringVar(&refTitle, "ref-title", "", "title of the caller-selected reference")
	cmd.Flags().StringVar(&refSource, "ref-source", "", "source of the caller-selected reference")
	cmd.Flags().StringVar(&refSummary, "ref-summary", "", "summary of the caller-selected reference")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
