// cmd/truststore/truststore.go

package truststore

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"

	"github.com/opsdep/appdctl/pkg/appdctl_cli"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
	"github.com/opsdep/appdctl/pkg/preflight"
	"github.com/opsdep/appdctl/pkg/systemctl"
	ts "github.com/opsdep/appdctl/pkg/truststore"
)

// TruststoreCmd groups truststore operations.
var TruststoreCmd = &cobra.Command{
	Use:   "truststore",
	Short: "Manage the agent's TLS truststore",

	RunE: appdctl_cli.Wrap(func(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		otelzap.Ctx(rc.Ctx).Info("No subcommand provided for truststore")
		return cmd.Help()
	}),
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Trust the controller's TLS certificate chain",
	Long: `Fetch the TLS certificate chain the controller presents, import every
certificate into the agent's truststore, wire the truststore into the
agent's JVM options, and restart the service.

The run is idempotent: certificates already in the truststore are
skipped and the JVM options are only added once. Host and port default
to the values in controller-info.xml.

Examples:
  appdctl truststore setup
  appdctl truststore setup --host appd.example.com --port 443
  appdctl truststore setup --no-restart`,
	Args: cobra.NoArgs,
	RunE: appdctl_cli.Wrap(runSetup),
}

func init() {
	TruststoreCmd.AddCommand(setupCmd)

	setupCmd.Flags().String("host", "", "Controller host (default: from controller-info.xml)")
	setupCmd.Flags().Int("port", 0, "Controller TLS port (default: from controller-info.xml, else 443)")
	setupCmd.Flags().String("install-dir", "", "Agent installation directory (default: standard path or a running agent)")
	setupCmd.Flags().String("storepass", "", "Truststore password (default: prompt on a terminal, else changeit)")
	setupCmd.Flags().String("alias-prefix", ts.DefaultAliasPrefix, "Alias prefix for imported certificates")
	setupCmd.Flags().Bool("no-restart", false, "Skip the service restart at the end")
}

func runSetup(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	if err := preflight.RequireRoot(rc); err != nil {
		return err
	}

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	installDir, _ := cmd.Flags().GetString("install-dir")
	storePass, _ := cmd.Flags().GetString("storepass")
	aliasPrefix, _ := cmd.Flags().GetString("alias-prefix")
	noRestart, _ := cmd.Flags().GetBool("no-restart")

	if storePass == "" && appdctl_io.StdinIsTerminal() {
		secret, err := appdctl_io.ReadPassword(rc, "Truststore password (empty for the keytool default)")
		if err != nil {
			return err
		}
		storePass = secret
	}

	report, err := ts.Run(rc, systemctl.NewExecClient(), ts.Options{
		Host:        host,
		Port:        port,
		InstallDir:  installDir,
		StorePass:   storePass,
		AliasPrefix: aliasPrefix,
		NoRestart:   noRestart,
	})
	if err != nil {
		return err
	}

	fmt.Printf("truststore %s: %d imported, %d already present\n",
		report.TruststorePath, len(report.Imported), len(report.Skipped))
	if report.BackupPath != "" {
		fmt.Printf("previous truststore saved at %s\n", report.BackupPath)
	}
	if report.OptionsPatched {
		fmt.Println("agent startup options updated")
	}
	if report.Restarted {
		fmt.Println("agent service restarted")
	}
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
