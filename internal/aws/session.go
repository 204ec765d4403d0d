package aws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sts"

	"costscope/internal/logging"
)

// NewSession creates a new AWS session with the specified profile and region
func NewSession(profile string, region string) (*session.Session, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}

	// Short client timeout so throttled billing calls fail into the retry
	// path instead of hanging the stage
	cfg = cfg.WithHTTPClient(&http.Client{Timeout: 25 * time.Second})

	// Create session options with profile
	opts := session.Options{
		Config:            *cfg,
		Profile:           profile,
		SharedConfigState: session.SharedConfigEnable,
	}

	// Create session with profile
	return session.NewSessionWithOptions(opts)
}

// GetSessionInRegion creates a new session in the specified region using credentials from an existing session
func GetSessionInRegion(sess *session.Session, region string) (*session.Session, error) {
	if region == "" {
		return sess, nil
	}

	newSess, err := session.NewSession(sess.Config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return newSess, nil
}

// CurrentAccountID resolves the account ID of the session credentials via STS
func CurrentAccountID(sess *session.Session) (string, error) {
	svc := sts.New(sess)
	identity, err := svc.GetCallerIdentity(&sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}

	logging.Debug("Resolved account identity", map[string]interface{}{
		"account_id": aws.StringValue(identity.Account),
		"arn":        aws.StringValue(identity.Arn),
	})

	return aws.StringValue(identity.Account), nil
}
