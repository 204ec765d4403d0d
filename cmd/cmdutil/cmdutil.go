// Package cmdutil holds the wiring shared by the pipeline commands:
// session creation, account discovery and store construction from the
// resolved global configuration.
package cmdutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/session"

	awsinternal "costscope/internal/aws"
	"costscope/internal/config"
	"costscope/internal/store"
)

// NewSession creates an AWS session for the configured profile and region
func NewSession() (*session.Session, error) {
	return awsinternal.NewSession(config.Config.Profile, config.Config.Region)
}

// ResolveAccountID returns the configured account ID, falling back to STS
// discovery on the session's credentials.
func ResolveAccountID(sess *session.Session) (string, error) {
	if config.Config.AccountID != "" {
		return config.Config.AccountID, nil
	}
	return awsinternal.CurrentAccountID(sess)
}

// RequirePersistentStore rejects store backends that do not outlive the
// process. The memory backend starts empty on every run, so a pipeline
// stage writing through it would discard its output at exit.
func RequirePersistentStore() error {
	if config.Config.StoreBackend == "memory" {
		return fmt.Errorf("store backend %q does not persist between runs; use dynamodb for this command", config.Config.StoreBackend)
	}
	return nil
}

// OpenStore constructs the configured store backend. The DynamoDB backend is
// verified reachable before use so commands fail fast on misconfiguration.
func OpenStore(ctx context.Context, sess *session.Session) (store.Store, error) {
	switch config.Config.StoreBackend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "dynamodb":
		ds := store.NewDynamoStore(sess, config.Config.CostTable, config.Config.StoreEndpoint)
		if err := ds.TableExists(ctx); err != nil {
			return nil, err
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", config.Config.StoreBackend)
	}
}
