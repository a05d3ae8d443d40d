// Command departureboard serves a live departure board for a fixed set of stations.
package main

import (
	"fmt"
	"os"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

var (
	cfg = defaultConfig()

	rootCmd = &cobra.Command{
		Use:           "departureboard",
		Short:         "Live departure board",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `departureboard polls a departure source for a station and pushes the
board to browsers over a websocket.

Without a feed URL, departures are obtained from a search-grounded generative
model (set GEMINI_API_KEY). With --siri_json_url, --siri_xml_url or --gtfsrt_url
they come from that feed instead.`,
	}

	// Version information
	Version = "dev"
	Commit  = "none"

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("departureboard version %s\n", Version)
			fmt.Printf("  commit: %s\n", Commit)
		},
	}
)

func init() {
	cfg.bindSourceFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var userMessage string
		if fmsg := failure.MessageOf(err); fmsg != "" {
			userMessage = fmsg.String()
		} else {
			userMessage = err.Error()
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", userMessage)
		os.Exit(1)
	}
}
