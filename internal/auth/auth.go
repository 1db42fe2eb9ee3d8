// Package auth finds, validates and stores the user's Gemini API key.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	// KeyPrefix is carried by every Gemini API key.
	KeyPrefix = "AIza"

	credentialFile = "credentials.env"
	credentialVar  = "GEMINI_API_KEY"
)

// Environment variables consulted by GetAPIKey, in order.
var keyEnvVars = []string{"LUXSTUDIO_API_KEY", "GEMINI_API_KEY"}

// ErrNoKey is returned when no source holds a key.
var ErrNoKey = errors.New("API key not found: run 'luxstudio login' or set GEMINI_API_KEY")

// CheckFormat applies the local convention check: non-empty and starting
// with KeyPrefix. It does not contact the API.
func CheckFormat(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &ValidationError{Type: ErrTypeNoKey, Message: "API key is empty"}
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		return &ValidationError{Type: ErrTypeInvalidKey, Message: fmt.Sprintf("API key must start with %q", KeyPrefix)}
	}
	return nil
}

// SSMAPI is the subset of *ssm.Client used for key lookup.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Store locates and persists the API key.
type Store struct {
	dir      string
	ssm      SSMAPI
	ssmParam string
}

// NewStore keeps the saved key under dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dir: dataDir}
}

// WithSSM adds an SSM SecureString parameter as a key source.
func (s *Store) WithSSM(client SSMAPI, param string) *Store {
	s.ssm = client
	s.ssmParam = param
	return s
}

// GetAPIKey retrieves the Gemini API key from available sources.
// Priority order:
//  1. LUXSTUDIO_API_KEY or GEMINI_API_KEY environment variable
//  2. SSM parameter, when configured
//  3. the key saved by SaveAPIKey
func (s *Store) GetAPIKey(ctx context.Context) (string, error) {
	for _, name := range keyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			log.Debug().Str("var", name).Msg("Using API key from environment variable")
			return key, nil
		}
	}

	if s.ssm != nil && s.ssmParam != "" {
		key, err := s.fromSSM(ctx)
		if err == nil && key != "" {
			log.Debug().Str("param", s.ssmParam).Msg("Using API key from SSM")
			return key, nil
		}
		log.Warn().Err(err).Str("param", s.ssmParam).Msg("Failed to read API key from SSM")
	}

	key, err := s.fromFile()
	if err == nil && key != "" {
		log.Debug().Msg("Using saved API key")
		return key, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to read saved API key")
	}
	return "", ErrNoKey
}

func (s *Store) fromSSM(ctx context.Context) (string, error) {
	result, err := s.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.ssmParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", s.ssmParam)
	}
	return strings.TrimSpace(*result.Parameter.Value), nil
}

func (s *Store) fromFile() (string, error) {
	values, err := godotenv.Read(s.credentialPath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(values[credentialVar]), nil
}

// ExternalSource names the environment variable or SSM parameter that
// supplies a key ClearAPIKey cannot remove, or returns "" when there is none.
func (s *Store) ExternalSource() string {
	for _, name := range keyEnvVars {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			return name
		}
	}
	if s.ssm != nil && s.ssmParam != "" {
		return "SSM parameter " + s.ssmParam
	}
	return ""
}

// SaveAPIKey writes key to the owner-only credentials file after a format check.
func (s *Store) SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if err := CheckFormat(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	content, err := godotenv.Marshal(map[string]string{credentialVar: key})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	path := s.credentialPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}
	// A file left by an older version may be wider than 0600.
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return fmt.Errorf("restrict credential permissions: %w", err)
	}
	if _, err := f.WriteString(content + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	log.Info().Str("file", path).Msg("API key saved")
	return nil
}

// ClearAPIKey removes the saved key. Keys supplied through the environment
// or SSM are not affected.
func (s *Store) ClearAPIKey() error {
	err := os.Remove(s.credentialPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials: %w", err)
	}
	return nil
}

func (s *Store) credentialPath() string {
	return filepath.Join(s.dir, credentialFile)
}
