package main

import (
	"github.com/opsdep/appdctl/cmd"
	"github.com/opsdep/appdctl/pkg/logger"
	"github.com/opsdep/appdctl/pkg/shared"
	"github.com/opsdep/appdctl/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback()

	if err := telemetry.Init(shared.AppdctlID); err != nil {
		logger.L().Warn("Telemetry disabled: " + err.Error())
	}

	cmd.Execute()
}
