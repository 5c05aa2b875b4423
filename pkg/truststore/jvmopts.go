// pkg/truststore/jvmopts.go

package truststore

import (
	"os"
	"strings"

	cerr "github.com/cockroachdb/errors"
)

// EnsureJavaOptions guarantees each option is part of the startup
// script's JAVA_OPTS. Missing options are appended as one
// JAVA_OPTS="${JAVA_OPTS} ..." line after the last existing assignment,
// or after the shebang when the script has none. Options already present
// anywhere in the script are left alone, so repeated runs are no-ops.
// Reports whether the file changed.
func EnsureJavaOptions(scriptPath string, options ...string) (bool, error) {
	info, err := os.Stat(scriptPath)
	if err != nil {
		return false, cerr.Wrapf(err, "stat %s", scriptPath)
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return false, cerr.Wrapf(err, "read %s", scriptPath)
	}
	content := string(data)

	var missing []string
	for _, opt := range options {
		if !strings.Contains(content, opt) {
			missing = append(missing, opt)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	addition := `JAVA_OPTS="${JAVA_OPTS} ` + strings.Join(missing, " ") + `"`
	lines := strings.Split(content, "\n")
	insertAt := insertionPoint(lines)

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:insertAt]...)
	out = append(out, addition)
	out = append(out, lines[insertAt:]...)

	if err := os.WriteFile(scriptPath, []byte(strings.Join(out, "\n")), info.Mode().Perm()); err != nil {
		return false, cerr.Wrapf(err, "write %s", scriptPath)
	}
	return true, nil
}

// insertionPoint picks the line index to insert after: the last
// JAVA_OPTS assignment, else the shebang, else the top.
func insertionPoint(lines []string) int {
	last := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "JAVA_OPTS=") {
			last = i
		}
	}
	if last >= 0 {
		return last + 1
	}
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#!") {
		return 1
	}
	return 0
}
