package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mrz1836/testament/internal/version"
)

const (
	releaseOwner = "mrz1836"
	releaseRepo  = "testament"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var versionCheck bool

// newReleaseChecker builds the release checker. Tests replace it.
//
//nolint:gochecknoglobals // Replaceable for testing
var newReleaseChecker = func() *version.Checker {
	return version.NewChecker(version.WithUserAgent("testament/" + currentVersion()))
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Long: `Print the build version. With --check, also look up the latest release.

Example:
  testament version
  testament version --check`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

// VersionResponse is the JSON output of version.
type VersionResponse struct {
	Version         string `json:"version"`
	Commit          string `json:"commit"`
	Date            string `json:"date"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"update_available,omitempty"`
	ReleaseURL      string `json:"release_url,omitempty"`
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}

func currentVersion() string {
	if buildInfo.Version == "" {
		return version.DevVersion
	}
	return buildInfo.Version
}

func runVersion(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	resp := VersionResponse{
		Version: currentVersion(),
		Commit:  buildInfo.Commit,
		Date:    buildInfo.Date,
	}

	if versionCheck {
		ctx, cancel := contextWithTimeout(cmd, version.DefaultTimeout)
		defer cancel()

		rel, err := newReleaseChecker().Latest(ctx, releaseOwner, releaseRepo)
		if err != nil {
			return err
		}
		resp.Latest = rel.Version()
		resp.UpdateAvailable = version.IsNewer(resp.Version, resp.Latest)
		resp.ReleaseURL = rel.HTMLURL
	}

	return cc.Fmt.PrintEither(resp, func(w io.Writer) error {
		outln(w, "testament", formatVersion(buildInfo))
		if !versionCheck {
			return nil
		}
		switch {
		case version.IsDevBuild(resp.Version):
			out(w, "Development build; latest release is %s\n", resp.Latest)
		case resp.UpdateAvailable:
			out(w, "A newer release is available: %s\n", resp.Latest)
			if resp.ReleaseURL != "" {
				out(w, "  %s\n", resp.ReleaseURL)
			}
		default:
			outln(w, "You are on the latest release.")
		}
		return nil
	})
}
