package cmd

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var shardName string

var shardCmd = &cobra.Command{
	Use:   "shard <file>",
	Short: "Split the file into shards on the network.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		name := shardName
		if name == "" {
			name = filepath.Base(args[0])
		}

		body := struct {
			Name string `json:"name"`
			Data []byte `json:"data"`
		}{
			Name: name,
			Data: data,
		}

		return call(cmd, http.MethodPost, "/v1/shards", body)
	},
}

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct <shard-id>...",
	Short: "Reassemble the data held by the shards, in order.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := struct {
			ShardIDs []string `json:"shardIds"`
		}{
			ShardIDs: args,
		}

		return call(cmd, http.MethodPost, "/v1/shards/reconstruct", body)
	},
}

func init() {
	rootCmd.AddCommand(shardCmd, reconstructCmd)
	shardCmd.Flags().StringVarP(&shardName, "name", "n", "", "Name the shard ids are derived from, the file name by default.")
}
