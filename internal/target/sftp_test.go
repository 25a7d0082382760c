package target

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var errDialFailed = errors.New("dial tcp: connection refused")

func TestSFTPUploadPropagatesDialFailure(t *testing.T) {
	sf := &SFTP{
		Log:  logr.Discard(),
		Name: "sftp1",
		dial: func() (*ssh.Client, *sftp.Client, error) { return nil, nil, errDialFailed },
	}

	result, err := sf.Upload(context.Background(), "/tmp/archive.7z")
	if err == nil {
		t.Fatal("expected Upload to propagate dial failure")
	}
	if result.Success {
		t.Error("expected Success=false on dial failure")
	}
	if result.TargetName != "sftp1" || result.TargetType != "SFTP" {
		t.Errorf("unexpected result identity: %+v", result)
	}
}

func TestSFTPListPropagatesDialFailure(t *testing.T) {
	sf := &SFTP{
		Log:  logr.Discard(),
		Name: "sftp1",
		dial: func() (*ssh.Client, *sftp.Client, error) { return nil, nil, errDialFailed },
	}

	if _, err := sf.List(context.Background()); err == nil {
		t.Fatal("expected List to propagate dial failure")
	}
}

func TestSFTPDeletePropagatesDialFailure(t *testing.T) {
	sf := &SFTP{
		Log:  logr.Discard(),
		Name: "sftp1",
		dial: func() (*ssh.Client, *sftp.Client, error) { return nil, nil, errDialFailed },
	}

	if err := sf.Delete(context.Background(), "/remote/archive.7z"); err == nil {
		t.Fatal("expected Delete to propagate dial failure")
	}
}

func TestNewSFTPWiresRealDial(t *testing.T) {
	sf := NewSFTP(logr.Discard(), "sftp1", SFTPConfig{Host: "example.invalid", Port: 22})
	if sf.dial == nil {
		t.Fatal("expected NewSFTP to wire the dial function")
	}
}
