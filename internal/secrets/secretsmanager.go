// Package secrets fetches named secrets from the secret storage collaborator.
package secrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// ManagerStore implements the application's SecretStore over AWS Secrets
// Manager.
type ManagerStore struct {
	client *secretsmanager.Client
}

// NewManagerStore builds a ManagerStore from the ambient AWS credential chain.
func NewManagerStore(ctx context.Context, region string) (*ManagerStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("secrets: load aws config: %w", err)
	}
	return &ManagerStore{client: secretsmanager.NewFromConfig(cfg)}, nil
}

// GetSecret fetches a secret value by name. String secrets are returned as-is;
// binary secrets are returned as their decoded bytes.
func (s *ManagerStore) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get %s: %w", name, err)
	}
	if out.SecretString != nil {
		return *out.SecretString, nil
	}
	return string(out.SecretBinary), nil
}
