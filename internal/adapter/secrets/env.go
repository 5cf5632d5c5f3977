// Package secrets implements the SecretStore port against the process
// environment.
package secrets

import (
	"context"
	"fmt"
	"os"
)

// EnvStore resolves secrets from environment variables. No real secret
// manager client appears anywhere in the example pack, so this is the
// degenerate adapter the SecretStore interface must still support for
// local and development use.
type EnvStore struct{}

func NewEnvStore() *EnvStore { return &EnvStore{} }

func (e *EnvStore) GetSecret(_ context.Context, name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("secret %q not set in environment", name)
	}
	return v, nil
}
