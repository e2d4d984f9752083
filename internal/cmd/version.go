package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ciforge/internal/version"
)

// versionReport is the --json shape. user_agent is what the remote stores
// see on every upload.
type versionReport struct {
	version.Info
	UserAgent string `json:"user_agent"`
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	var verbose, asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the driver version",
		Long: `Print the driver version. With --verbose the commit, build date,
toolchain and the user agent sent to artifact stores are listed as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeVersion(cmd.OutOrStdout(), version.GetInfo(), verbose, asJSON)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list build details and the store user agent")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a JSON object for the orchestrator")
	return cmd
}

func writeVersion(w io.Writer, info version.Info, verbose, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(versionReport{Info: info, UserAgent: info.UserAgent()})
	}

	if !verbose {
		_, err := fmt.Fprintf(w, "ciforge %s\n", info.Version)
		return err
	}

	rows := [][2]string{
		{"version", info.Version},
		{"commit", info.ShortCommit()},
		{"built", info.Date},
		{"go", info.GoVersion},
		{"platform", info.Platform},
		{"user agent", info.UserAgent()},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "%-11s %s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return nil
}
