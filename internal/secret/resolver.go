// Package secret implements SecretResolver (spec §4.7): it produces the
// archive password for a job from one of several configured methods and
// hands the caller a String wrapper that must be zeroed on every exit
// path.
package secret

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
	"github.com/BootBlock/poshbackup/internal/errs"
)

// SecretsManagerClient is the subset of the AWS Secrets Manager client the
// resolver needs, so tests can substitute a fake.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver implements every ArchivePasswordMethod named in spec §4.7.
type Resolver struct {
	Log    logr.Logger
	Prompt io.Reader // defaults to os.Stdin when nil, overridable for tests

	// NewSecretsManagerClient lazily constructs the AWS client on first use
	// so simulate-mode and None/PlainText/SecureStringFile runs never touch
	// AWS credentials. Overridable for tests.
	NewSecretsManagerClient func(ctx context.Context) (SecretsManagerClient, error)
}

// New returns a Resolver with AWS Secrets Manager wired to the default
// credential chain, matching the teacher's config.loadSecretsManager
// fetch-on-demand style.
func New(log logr.Logger) *Resolver {
	return &Resolver{
		Log: log,
		NewSecretsManagerClient: func(ctx context.Context) (SecretsManagerClient, error) {
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, err
			}
			return secretsmanager.NewFromConfig(cfg), nil
		},
	}
}

// Resolve produces the plaintext password for eff, or nil if no password
// is configured (ArchivePasswordMethod=None). simulate short-circuits every
// method with a deterministic placeholder, touching no real secret store,
// per spec §4.7's Simulation rule.
func (r *Resolver) Resolve(ctx context.Context, eff *config.EffectiveJobConfig) (*String, error) {
	if eff.Simulate {
		if eff.ArchivePasswordMethod == config.PasswordMethodNone {
			return nil, nil
		}
		return NewString("SIMULATED-PASSWORD"), nil
	}

	switch eff.ArchivePasswordMethod {
	case config.PasswordMethodNone, "":
		return nil, nil

	case config.PasswordMethodInteractive:
		return r.resolveInteractive(eff)

	case config.PasswordMethodSecretManagement:
		return r.resolveSecretManagement(ctx, eff)

	case config.PasswordMethodSecureStringFile:
		return r.resolveSecureStringFile(eff)

	case config.PasswordMethodPlainText:
		return r.resolvePlainText(eff)

	default:
		return nil, &errs.SecretError{Kind: errs.SecretInvalidType, Message: fmt.Sprintf("unknown ArchivePasswordMethod %q", eff.ArchivePasswordMethod)}
	}
}

func (r *Resolver) resolveInteractive(eff *config.EffectiveJobConfig) (*String, error) {
	reader := r.Prompt
	if reader == nil {
		reader = os.Stdin
	}
	fmt.Fprintf(os.Stderr, "Enter archive password for job %q: ", eff.JobName)
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, &errs.SecretError{Kind: errs.SecretCancelled, Message: "reading password from prompt", Err: err}
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, &errs.SecretError{Kind: errs.SecretCancelled, Message: "empty password entered, treating as cancellation"}
	}
	return NewString(line), nil
}

func (r *Resolver) resolveSecretManagement(ctx context.Context, eff *config.EffectiveJobConfig) (*String, error) {
	if eff.ArchivePasswordSecretName == "" {
		return nil, &errs.SecretError{Kind: errs.SecretNotConfigured, Message: "ArchivePasswordSecretName is required for SecretManagement"}
	}
	client, err := r.NewSecretsManagerClient(ctx)
	if err != nil {
		return nil, &errs.SecretError{Kind: errs.SecretNotFound, Message: "constructing Secrets Manager client", Err: err}
	}
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(eff.ArchivePasswordSecretName)}
	out, err := client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, &errs.SecretError{Kind: errs.SecretNotFound, Message: fmt.Sprintf("fetching secret %q", eff.ArchivePasswordSecretName), Err: err}
	}
	if out.SecretString != nil {
		return NewString(*out.SecretString), nil
	}
	if out.SecretBinary != nil {
		return NewString(string(out.SecretBinary)), nil
	}
	return nil, &errs.SecretError{Kind: errs.SecretInvalidType, Message: fmt.Sprintf("secret %q has neither a secure-string nor plain-string value", eff.ArchivePasswordSecretName)}
}

func (r *Resolver) resolveSecureStringFile(eff *config.EffectiveJobConfig) (*String, error) {
	if eff.ArchivePasswordSecureStringPath == "" {
		return nil, &errs.SecretError{Kind: errs.SecretNotConfigured, Message: "ArchivePasswordSecureStringPath is required for SecureStringFile"}
	}
	plaintext, err := LoadSecureStringFile(r.Log, eff.ArchivePasswordSecureStringPath)
	if err != nil {
		return nil, &errs.SecretError{Kind: errs.SecretNotFound, Message: fmt.Sprintf("loading secure string file %q", eff.ArchivePasswordSecureStringPath), Err: err}
	}
	return NewString(plaintext), nil
}

func (r *Resolver) resolvePlainText(eff *config.EffectiveJobConfig) (*String, error) {
	if eff.ArchivePasswordPlainText == "" {
		return nil, &errs.SecretError{Kind: errs.SecretNotConfigured, Message: "ArchivePasswordPlainText is required for PlainText"}
	}
	r.Log.Info("using PlainText archive password method; password is stored unencrypted in configuration", "job", eff.JobName)
	return NewString(eff.ArchivePasswordPlainText), nil
}
