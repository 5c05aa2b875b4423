// cmd/version/version.go

package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/shared"
)

// VersionCmd prints the build identity baked in at link time.
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the appdctl version",
	Args:  cobra.NoArgs,
	RunE: appdctl_cli.Wrap(func(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		fmt.Printf("appdctl %s\n", shared.Version)
		fmt.Printf("  commit: %s\n", shared.GitCommit)
		fmt.Printf("  built:  %s\n", shared.BuildDate)
		return nil
	}),
}
