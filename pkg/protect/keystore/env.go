package keystore

import (
	"os"
	"strings"
	"sync"
)

// Env reads license keys from environment variables, for containers and
// CI where no OS credential store exists. Save and Delete only affect
// the current process.
type Env struct {
	mu sync.Mutex
}

// NewEnv returns a Store backed by KEYGATE_LICENSE_KEY_<APPID> variables.
func NewEnv() *Env {
	return &Env{}
}

func envVarName(appID string) string {
	id := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(appID))
	return "KEYGATE_LICENSE_KEY_" + id
}

func (e *Env) Save(appID, licenseKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return os.Setenv(envVarName(appID), licenseKey)
}

func (e *Env) Load(appID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v := os.Getenv(envVarName(appID)); v != "" {
		return v, nil
	}
	// Single-app deployments commonly set the unsuffixed variable.
	if v := os.Getenv("KEYGATE_LICENSE_KEY"); v != "" {
		return v, nil
	}
	return "", ErrNotFound
}

func (e *Env) Delete(appID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return os.Unsetenv(envVarName(appID))
}
