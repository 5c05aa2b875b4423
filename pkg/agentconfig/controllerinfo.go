// pkg/agentconfig/controllerinfo.go

// Package agentconfig reads and writes the Machine Agent's
// conf/controller-info.xml as a structured document. Deployment settings
// are applied through the schema in schema.go, never by substring
// replacement, and elements this package does not model survive a
// load/save round-trip.
package agentconfig

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
)

// ControllerInfo models the flat tags of controller-info.xml. Connection
// fields are always serialized, optional identity fields only when set.
type ControllerInfo struct {
	XMLName xml.Name `xml:"controller-info"`

	ControllerHost       string `xml:"controller-host"`
	ControllerPort       string `xml:"controller-port"`
	ControllerSSLEnabled string `xml:"controller-ssl-enabled"`
	EnableOrchestration  string `xml:"enable-orchestration"`
	UniqueHostID         string `xml:"unique-host-id"`
	AccountAccessKey     string `xml:"account-access-key"`
	AccountName          string `xml:"account-name"`
	SimEnabled           string `xml:"sim-enabled"`

	IsSapMachine    string `xml:"is-sap-machine,omitempty"`
	MachinePath     string `xml:"machine-path,omitempty"`
	ApplicationName string `xml:"application-name,omitempty"`
	TierName        string `xml:"tier-name,omitempty"`
	NodeName        string `xml:"node-name,omitempty"`

	// Extra keeps vendor elements this tool does not manage.
	Extra []GenericElement `xml:",any"`
}

// GenericElement preserves an unmodeled element verbatim.
type GenericElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Default returns the minimal skeleton used when no vendor template exists.
func Default() *ControllerInfo {
	return &ControllerInfo{
		ControllerSSLEnabled: "false",
		EnableOrchestration:  "false",
		SimEnabled:           "true",
	}
}

// Load parses the configuration file at path.
func Load(path string) (*ControllerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "read %s", path)
	}
	ci := &ControllerInfo{}
	if err := xml.Unmarshal(data, ci); err != nil {
		return nil, cerr.Wrapf(err, "parse %s", path)
	}
	return ci, nil
}

// Save serializes the document to path with stable indentation, creating
// the parent directory if needed.
func (ci *ControllerInfo) Save(path string) error {
	data, err := xml.MarshalIndent(ci, "", "    ")
	if err != nil {
		return cerr.Wrap(err, "serialize controller-info")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerr.Wrapf(err, "create %s", filepath.Dir(path))
	}
	content := xml.Header + string(data) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return cerr.Wrapf(err, "write %s", path)
	}
	return nil
}

// Validate checks the fields a reporting agent cannot run without.
func (ci *ControllerInfo) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(ci.ControllerHost) == "" {
		result = multierror.Append(result, cerr.New("controller-host is not set"))
	}
	if strings.TrimSpace(ci.ControllerPort) == "" {
		result = multierror.Append(result, cerr.New("controller-port is not set"))
	}
	if strings.TrimSpace(ci.AccountName) == "" {
		result = multierror.Append(result, cerr.New("account-name is not set"))
	}
	if strings.TrimSpace(ci.AccountAccessKey) == "" {
		result = multierror.Append(result, cerr.New("account-access-key is not set"))
	}
	return result.ErrorOrNil()
}

// Redacted returns a copy safe for logs and status output.
func (ci *ControllerInfo) Redacted() *ControllerInfo {
	out := *ci
	if out.AccountAccessKey != "" {
		out.AccountAccessKey = "********"
	}
	return &out
}
