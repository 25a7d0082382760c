package target

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig holds the settings decoded from a BackupTarget's
// TargetSpecificSettings when Type=SFTP.
type SFTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	PrivateKeyPath string
	RemoteDir      string
	HostKeyFile    string
}

// SFTP uploads archives over an SSH/SFTP session, grounded on the
// ecosystem-standard pkg/sftp + golang.org/x/crypto/ssh pairing.
type SFTP struct {
	Log    logr.Logger
	Name   string
	Config SFTPConfig

	// dial is overridable for tests so they never open a real TCP socket.
	dial func() (*ssh.Client, *sftp.Client, error)
}

// NewSFTP returns an SFTP target dialing Config.Host on first use.
func NewSFTP(log logr.Logger, name string, cfg SFTPConfig) *SFTP {
	t := &SFTP{Log: log, Name: name, Config: cfg}
	t.dial = t.realDial
	return t
}

func (t *SFTP) realDial() (*ssh.Client, *sftp.Client, error) {
	auth := []ssh.AuthMethod{}
	if t.Config.PrivateKeyPath != "" {
		keyBytes, err := os.ReadFile(t.Config.PrivateKeyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if t.Config.Password != "" {
		auth = append(auth, ssh.Password(t.Config.Password))
	}

	clientCfg := &ssh.ClientConfig{
		User:            t.Config.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", t.Config.Host, t.Config.Port)
	sshClient, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("opening sftp session: %w", err)
	}
	return sshClient, sftpClient, nil
}

func (t *SFTP) Upload(ctx context.Context, localArchivePath string) (TransferResult, error) {
	start := time.Now()
	sshClient, sftpClient, err := t.dial()
	if err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "SFTP", Success: false, Message: err.Error()}, err
	}
	defer sshClient.Close()
	defer sftpClient.Close()

	if err := sftpClient.MkdirAll(t.Config.RemoteDir); err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "SFTP", Success: false, Message: err.Error()}, err
	}

	src, err := os.Open(localArchivePath)
	if err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "SFTP", Success: false, Message: err.Error()}, err
	}
	defer src.Close()

	remotePath := path.Join(t.Config.RemoteDir, path.Base(localArchivePath))
	dst, err := sftpClient.Create(remotePath)
	if err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "SFTP", Success: false, Message: err.Error()}, err
	}
	defer dst.Close()

	if _, err := dst.ReadFrom(src); err != nil {
		return TransferResult{TargetName: t.Name, TargetType: "SFTP", Success: false, Message: err.Error()}, err
	}

	return TransferResult{
		TargetName: t.Name, TargetType: "SFTP", Success: true,
		RemotePath: remotePath, Duration: time.Since(start),
	}, nil
}

func (t *SFTP) List(ctx context.Context) ([]RemoteArchive, error) {
	sshClient, sftpClient, err := t.dial()
	if err != nil {
		return nil, err
	}
	defer sshClient.Close()
	defer sftpClient.Close()

	entries, err := sftpClient.ReadDir(t.Config.RemoteDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.Config.RemoteDir, err)
	}
	archives := make([]RemoteArchive, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		archives = append(archives, RemoteArchive{
			RemotePath: path.Join(t.Config.RemoteDir, e.Name()),
			ModTime:    e.ModTime(),
		})
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].ModTime.After(archives[j].ModTime) })
	return archives, nil
}

func (t *SFTP) Delete(ctx context.Context, remotePath string) error {
	sshClient, sftpClient, err := t.dial()
	if err != nil {
		return err
	}
	defer sshClient.Close()
	defer sftpClient.Close()
	return sftpClient.Remove(remotePath)
}
