// pkg/appdctl_cli/wrap.go

package appdctl_cli

import (
	"context"

	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsdep/appdctl/pkg/appdctl_err"
	"github.com/opsdep/appdctl/pkg/appdctl_io"
)

// Wrap adapts a handler taking a RuntimeContext to a cobra RunE, adding
// panic recovery, telemetry and stack annotation of unexpected errors.
func Wrap(fn func(rc *appdctl_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rc := appdctl_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)

		defer func() {
			if r := recover(); r != nil {
				err = cerr.AssertionFailedf("panic: %v", r)
				rc.Log.Error("Panic recovered", zap.Any("panic", r))
			}
		}()

		err = fn(rc, cmd, args)
		if err != nil && !appdctl_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}
