package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/rfp-analysis-backend/internal/embedding"
)

func newRequeueCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <rfp-id>",
		Short: "Enqueue a fresh analysis job for an RFP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid rfp id %q: %w", args[0], err)
			}
			var out map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/rfps/"+id.String()+"/requeue", nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newDeadLettersCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "dead-letters",
		Short: "List dead-lettered analysis jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]any
			path := "/api/jobs/dead-letters?limit=" + strconv.Itoa(limit)
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum jobs to list")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		rfpID string
		topK  int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over indexed clauses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"query": args[0], "topK": topK}
			if rfpID != "" {
				if _, err := uuid.Parse(rfpID); err != nil {
					return fmt.Errorf("invalid --rfp %q: %w", rfpID, err)
				}
				req["rfpId"] = rfpID
			}
			var out map[string]any
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/search/clauses", req, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&rfpID, "rfp", "", "Restrict results to one RFP id")
	cmd.Flags().IntVar(&topK, "top-k", 5, "Number of results")
	return cmd
}

func newEmbedCmd() *cobra.Command {
	var dim int
	cmd := &cobra.Command{
		Use:   "embed <text>",
		Short: "Print the embedding vector the service would compute for text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"dim":    dim,
				"vector": embedding.Embed(args[0], dim),
			})
		},
	}
	cmd.Flags().IntVar(&dim, "dim", embedding.DefaultDim, "Embedding dimension")
	return cmd
}
