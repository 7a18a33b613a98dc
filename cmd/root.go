package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName = "realestate"
	version = "0.1.0"
)

var (
	cfgFile string
	apiHost string
	rootCmd = &cobra.Command{
		Use:                   fmt.Sprintf("%s <command> [<options>]", appName),
		Short:                 "On-chain real estate marketplace service and client",
		DisableFlagsInUseLine: true,
		SilenceErrors:         true,
		SilenceUsage:          true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	versionCmd = &cobra.Command{
		Use:                   "version",
		Short:                 fmt.Sprintf("Print the version number of %s", appName),
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
)

// Execute はルートコマンドを実行し、エラーなら終了コード1で終了する
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "C", "", "Set config file")
	rootCmd.AddCommand(versionCmd)
}
