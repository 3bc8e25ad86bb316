package cmd

import (
	"encoding/json"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/spf13/cobra"
)

var cacheTTL time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Work with the node cache.",
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the cached value for the key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, http.MethodGet, "/v1/cache?key="+neturl.QueryEscape(args[0]), nil)
	},
}

var cacheSetCmd = &cobra.Command{
	Use:   "set <key> <json-value>",
	Short: "Store the value under the key. Values that are not JSON are stored as strings.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := json.RawMessage(args[1])
		if !json.Valid(value) {
			quoted, err := json.Marshal(args[1])
			if err != nil {
				return err
			}
			value = quoted
		}

		body := struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
			TTL   int64           `json:"ttl"`
		}{
			Key:   args[0],
			Value: value,
			TTL:   cacheTTL.Milliseconds(),
		}

		return call(cmd, http.MethodPost, "/v1/cache", body)
	},
}

var cacheDelCmd = &cobra.Command{
	Use:   "del <key>",
	Short: "Delete the key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, http.MethodDelete, "/v1/cache/"+neturl.PathEscape(args[0]), nil)
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the cache statistics.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, http.MethodGet, "/v1/cache/stats", nil)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheGetCmd, cacheSetCmd, cacheDelCmd, cacheStatsCmd)
	cacheSetCmd.Flags().DurationVarP(&cacheTTL, "ttl", "t", 0, "Time to live, the node default is used when zero.")
}
