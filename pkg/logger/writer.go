// pkg/logger/writer.go

package logger

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"go.uber.org/zap/zapcore"

	"github.com/opsdep/appdctl/pkg/shared"
)

// EnsureLogPermissions creates the log directory and file with modes that
// let both root invocations and the agent user's probe runs append.
func EnsureLogPermissions(logFilePath string) error {
	dir := filepath.Dir(logFilePath)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, shared.RuntimeDirPerms); err != nil {
			return err
		}
	}

	if _, err := os.Stat(logFilePath); os.IsNotExist(err) {
		file, err := os.Create(logFilePath)
		if err != nil {
			return err
		}
		_ = file.Close()
	}
	if err := os.Chmod(logFilePath, 0o640); err != nil {
		return err
	}

	// Group ownership to the agent user where it exists, so that probe
	// scripts launched by the Machine Agent can share the log file.
	chownToAgentUser(dir)
	chownToAgentUser(logFilePath)
	return nil
}

func chownToAgentUser(path string) {
	if os.Geteuid() != 0 {
		return
	}
	agent, err := user.Lookup(shared.AgentRunUser)
	if err != nil {
		return
	}
	gid, err := strconv.Atoi(agent.Gid)
	if err != nil {
		return
	}
	_ = os.Chown(path, -1, gid)
}

// GetLogFileWriter opens an append writer at path, creating it if needed.
func GetLogFileWriter(path string) (zapcore.WriteSyncer, error) {
	if err := EnsureLogPermissions(path); err != nil {
		return zapcore.AddSync(os.Stderr), fmt.Errorf("log permission error: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return zapcore.AddSync(os.Stderr), fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.AddSync(file), nil
}

// FindWritableLogPath returns the first usable platform log path.
func FindWritableLogPath() (string, error) {
	for _, path := range PlatformLogPaths() {
		if _, err := GetLogFileWriter(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no writable log path found")
}
