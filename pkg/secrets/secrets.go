// Package secrets resolves credentials from AWS Secrets Manager with a plain
// value fallback for local development.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("secrets: secret not found")

// API is the subset of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type Manager struct {
	api    API
	logger *zap.Logger
}

// NewManager uses the default AWS configuration chain (environment, shared
// config, IAM role).
func NewManager(ctx context.Context, logger *zap.Logger) (*Manager, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return NewManagerWithAPI(secretsmanager.NewFromConfig(cfg), logger), nil
}

func NewManagerWithAPI(api API, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, logger: logger}
}

// GetSecretString fetches arn when it is set and falls back to fallback when
// it is not or the fetch fails. A secret stored as single-key JSON is
// unwrapped to its value.
func (m *Manager) GetSecretString(ctx context.Context, arn, fallback string) (string, error) {
	if arn != "" && m != nil && m.api != nil {
		value, err := m.fetch(ctx, arn)
		if err == nil {
			return value, nil
		}
		m.logger.Warn("failed to retrieve secret from Secrets Manager, using fallback",
			zap.String("secret_arn", arn),
			zap.Error(err))
	}

	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("%w: arn %q has no value and no fallback is set", ErrNotFound, arn)
}

func (m *Manager) fetch(ctx context.Context, arn string) (string, error) {
	out, err := m.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(arn)})
	if err != nil {
		return "", err
	}
	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, arn)
	}

	var single map[string]string
	if json.Unmarshal([]byte(raw), &single) == nil && len(single) == 1 {
		for _, v := range single {
			m.logger.Debug("fetched secret from Secrets Manager (single-key JSON)", zap.String("secret_arn", arn))
			return v, nil
		}
	}
	m.logger.Debug("fetched secret from Secrets Manager", zap.String("secret_arn", arn))
	return raw, nil
}
