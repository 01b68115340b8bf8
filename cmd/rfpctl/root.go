package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/rfp-analysis-backend/internal/platform/envutil"
)

type rootOptions struct {
	apiURL  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "rfpctl",
		Short: "Operate the RFP analysis service",
		Long: `rfpctl talks to a running RFP analysis API.

Commands:
  requeue       Enqueue a fresh analysis for an RFP
  dead-letters  List jobs that exhausted their retries
  search        Semantic search over indexed clauses
  embed         Print the embedding vector for a text`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", envutil.String("RFP_API_URL", "http://localhost:8080"), "Base URL of the RFP analysis API")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "HTTP timeout per request")

	cmd.AddCommand(
		newRequeueCmd(opts),
		newDeadLettersCmd(opts),
		newSearchCmd(opts),
		newEmbedCmd(),
	)
	return cmd
}

func (o *rootOptions) client() *apiClient {
	return &apiClient{baseURL: o.apiURL, http: &http.Client{Timeout: o.timeout}}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
