package secret

import (
	"context"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/BootBlock/poshbackup/internal/config"
)

func TestResolveNoneReturnsNil(t *testing.T) {
	r := &Resolver{Log: logr.Discard()}
	eff := &config.EffectiveJobConfig{ArchivePasswordMethod: config.PasswordMethodNone}
	s, err := r.Resolve(context.Background(), eff)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil password for method None, got %q", s.Expose())
	}
}

func TestResolveSimulateNeverTouchesRealStore(t *testing.T) {
	r := &Resolver{
		Log: logr.Discard(),
		NewSecretsManagerClient: func(ctx context.Context) (SecretsManagerClient, error) {
			t.Fatal("simulate mode must not construct a Secrets Manager client")
			return nil, nil
		},
	}
	eff := &config.EffectiveJobConfig{ArchivePasswordMethod: config.PasswordMethodSecretManagement, Simulate: true}
	s, err := r.Resolve(context.Background(), eff)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s == nil || s.Expose() == "" {
		t.Error("expected a deterministic placeholder password in simulate mode")
	}
}

func TestResolvePlainText(t *testing.T) {
	r := &Resolver{Log: logr.Discard()}
	eff := &config.EffectiveJobConfig{ArchivePasswordMethod: config.PasswordMethodPlainText, ArchivePasswordPlainText: "hunter2"}
	s, err := r.Resolve(context.Background(), eff)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s.Expose() != "hunter2" {
		t.Errorf("expected %q, got %q", "hunter2", s.Expose())
	}
}

func TestResolveInteractive(t *testing.T) {
	r := &Resolver{Log: logr.Discard(), Prompt: strings.NewReader("swordfish\n")}
	eff := &config.EffectiveJobConfig{JobName: "j", ArchivePasswordMethod: config.PasswordMethodInteractive}
	s, err := r.Resolve(context.Background(), eff)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s.Expose() != "swordfish" {
		t.Errorf("expected %q, got %q", "swordfish", s.Expose())
	}
}

func TestResolveInteractiveEmptyIsCancellation(t *testing.T) {
	r := &Resolver{Log: logr.Discard(), Prompt: strings.NewReader("\n")}
	eff := &config.EffectiveJobConfig{JobName: "j", ArchivePasswordMethod: config.PasswordMethodInteractive}
	if _, err := r.Resolve(context.Background(), eff); err == nil {
		t.Fatal("expected a cancellation error for an empty interactive password")
	}
}

func TestStringZeroClearsBackingArray(t *testing.T) {
	s := NewString("secret-value")
	s.Zero()
	if s.Expose() == "secret-value" {
		t.Error("expected Zero() to clear the backing array")
	}
}

func TestSealAndLoadSecureStringFileRoundTrip(t *testing.T) {
	t.Setenv("POSHBACKUP_SECURESTRING_KEY", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd")
	dir := t.TempDir()
	path := dir + "/secret.bin"
	if err := WriteSecureStringFile(logr.Discard(), path, "correct-horse-battery-staple"); err != nil {
		t.Fatalf("WriteSecureStringFile() error: %v", err)
	}
	got, err := LoadSecureStringFile(logr.Discard(), path)
	if err != nil {
		t.Fatalf("LoadSecureStringFile() error: %v", err)
	}
	if got != "correct-horse-battery-staple" {
		t.Errorf("expected round-tripped secret to match, got %q", got)
	}
}
