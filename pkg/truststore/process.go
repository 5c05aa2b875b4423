// pkg/truststore/process.go

package truststore

import (
	"context"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/opsdep/appdctl/pkg/shared"
)

// DiscoverInstallDir finds a running agent process and derives the
// installation directory from the jar path on its command line. Used
// when neither a flag nor the standard path points at an install.
func DiscoverInstallDir(ctx context.Context) (string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return "", cerr.Wrap(err, "list processes")
	}

	for _, p := range procs {
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		for _, arg := range args {
			if !strings.HasSuffix(arg, shared.AgentJar) {
				continue
			}
			dir := filepath.Dir(arg)
			if dir == "." || dir == "/" {
				continue
			}
			return dir, nil
		}
	}
	return "", cerr.New("no running agent process found")
}
