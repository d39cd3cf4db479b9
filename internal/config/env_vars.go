package config

import (
	"fmt"
	"os"
	"time"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	reconcileVar = "RECONCILE_INTERVAL"
	shutdownVar  = "SHUTDOWN_TIMEOUT"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetReconcileInterval() time.Duration
	GetShutdownTimeout() time.Duration
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Session Server")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetReconcileInterval returns the period for background reconciliation runs.
// Zero (the default) disables the periodic schedule; the startup run always
// happens.
func (EnvVars) GetReconcileInterval() time.Duration {
	raw := GetEnv(reconcileVar, "")
	if raw == "" {
		return 0
	}
	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return interval
}

func (EnvVars) GetShutdownTimeout() time.Duration {
	raw := GetEnv(shutdownVar, "5s")
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 5 * time.Second
	}
	return timeout
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
