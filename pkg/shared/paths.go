// pkg/shared/paths.go

package shared

const (
	AgentParentDir  = "/opt/appdynamics"
	AgentInstallDir = AgentParentDir + "/machine-agent"
	AgentPackageDir = AgentParentDir + "/packages"
	AgentBackupRoot = AgentParentDir + "/backups"

	AgentConfDirName      = "conf"
	AgentControllerInfo   = AgentConfDirName + "/controller-info.xml"
	AgentBundledUnitPath  = "etc/systemd/system" // relative, inside an extracted bundle
	AgentSidecarVersion   = "version.txt"
	AgentJar              = "machineagent.jar"
	AgentTruststore       = AgentConfDirName + "/cacerts.jks"
	AgentPackagePattern   = "machineagent-bundle-*.zip"
	BackupMetadataFile    = "backup-metadata.txt"
	BackupInstallDirEntry = "machine-agent"

	AgentServiceName = "appdynamics-machine-agent"
	AgentUnitFile    = AgentServiceName + ".service"
	SystemdUnitDir   = "/etc/systemd/system"

	AgentRunUser  = "appdynamics"
	AgentRunGroup = "appdynamics"

	AppdctlID      = "appdctl"
	AppdctlLogDir  = "/var/log/appdctl/"
	AppdctlLogs    = AppdctlLogDir + "appdctl.log"
	AppdctlLogsPWD = "./appdctl.log"
)

const (
	// Permission modes (in octal)
	DirPermStandard        = 0755
	RuntimeDirPerms        = 0750
	FilePermStandard       = 0644
	FilePermOwnerReadWrite = 0600
	FilePermOwnerOnlyDir   = 0700
)

// ServiceStopWait is how long to wait after a stop request before the
// single confirmation poll, and StartupWait the same for start.
const (
	ServiceStopWaitSeconds  = 5
	ServiceStartWaitSeconds = 5
)
