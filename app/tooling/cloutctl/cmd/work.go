package cmd

import (
	"encoding/json"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/spf13/cobra"
)

var (
	workPayload  string
	workPriority int
	workEstimate time.Duration
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Submit and track distributed work.",
}

var workSubmitCmd = &cobra.Command{
	Use:   "submit <compile|verify|process>",
	Short: "Submit a unit of work.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := struct {
			Kind        string          `json:"kind"`
			Payload     json.RawMessage `json:"payload,omitempty"`
			Priority    int             `json:"priority"`
			EstimatedMs int64           `json:"estimatedMs"`
		}{
			Kind:        args[0],
			Priority:    workPriority,
			EstimatedMs: workEstimate.Milliseconds(),
		}
		if workPayload != "" {
			body.Payload = json.RawMessage(workPayload)
		}

		return call(cmd, http.MethodPost, "/v1/work", body)
	},
}

var workGetCmd = &cobra.Command{
	Use:   "get <work-id>",
	Short: "Print the state of a unit of work.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, http.MethodGet, "/v1/work/"+neturl.PathEscape(args[0]), nil)
	},
}

func init() {
	rootCmd.AddCommand(workCmd)
	workCmd.AddCommand(workSubmitCmd, workGetCmd)
	workSubmitCmd.Flags().StringVarP(&workPayload, "payload", "d", "", "JSON payload of the work.")
	workSubmitCmd.Flags().IntVarP(&workPriority, "priority", "p", 1, "Priority of the work.")
	workSubmitCmd.Flags().DurationVarP(&workEstimate, "estimate", "e", 5*time.Second, "Estimated run time.")
}
