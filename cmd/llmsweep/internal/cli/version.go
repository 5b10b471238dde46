package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"llmsweep/internal/version"
)

// addVersionCommand adds the version command
func (app *App) addVersionCommand(rootCmd *cobra.Command) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the version of llmsweep with build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			detailed, _ := cmd.Flags().GetBool("detailed")
			asJSON, _ := cmd.Flags().GetBool("json")
			minVersion, _ := cmd.Flags().GetString("min")

			if minVersion != "" {
				if err := version.RequireAtLeast(minVersion); err != nil {
					return err
				}
			}

			switch {
			case asJSON:
				info, err := version.GetInfo()
				if err != nil {
					return err
				}
				enc := json.NewEncoder(app.out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			case detailed:
				if err := version.ValidateVersion(); err != nil {
					return err
				}
				fmt.Fprintln(app.out, version.GetDetailedVersion())
			default:
				fmt.Fprintln(app.out, version.GetFormattedVersion())
			}
			return nil
		},
	}

	versionCmd.Flags().Bool("detailed", false, "Show detailed version information")
	versionCmd.Flags().Bool("json", false, "Print version information as JSON")
	versionCmd.Flags().String("min", "", "Fail unless this build is at least the given version")
	rootCmd.AddCommand(versionCmd)
}
