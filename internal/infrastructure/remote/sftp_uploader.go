package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var (
	ErrSFTPConnection     = errors.New("sftp: connection failed")
	ErrSFTPAuthentication = errors.New("sftp: authentication failed")
	ErrSFTPUploadFailed   = errors.New("sftp: upload failed")
)

type SFTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	PrivateKey string
	Timeout    time.Duration
	MaxRetries int
}

// SFTPUploader ships backup archives to a remote host over SFTP.
type SFTPUploader struct {
	config SFTPConfig
}

func NewSFTPUploader(cfg SFTPConfig) *SFTPUploader {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &SFTPUploader{config: cfg}
}

func (u *SFTPUploader) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if u.config.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(u.config.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private key", ErrSFTPAuthentication)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if u.config.Password != "" {
		methods = append(methods, ssh.Password(u.config.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", ErrSFTPAuthentication)
	}

	return methods, nil
}

// connect dials the remote host with linear backoff between attempts.
func (u *SFTPUploader) connect() (*ssh.Client, error) {
	methods, err := u.authMethods()
	if err != nil {
		return nil, err
	}

	sshConfig := &ssh.ClientConfig{
		User:            u.config.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         u.config.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", u.config.Host, u.config.Port)
	var connectErr error

	for attempt := 1; attempt <= u.config.MaxRetries; attempt++ {
		dialer := net.Dialer{
			Timeout:   u.config.Timeout,
			KeepAlive: 60 * time.Second,
		}

		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			connectErr = err
		} else {
			conn.SetDeadline(time.Now().Add(u.config.Timeout))

			c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
			if err != nil {
				conn.Close()
				connectErr = err
			} else {
				conn.SetDeadline(time.Time{})
				return ssh.NewClient(c, chans, reqs), nil
			}
		}

		if attempt < u.config.MaxRetries {
			time.Sleep(time.Duration(attempt*3) * time.Second)
		}
	}

	return nil, fmt.Errorf("%w: %v (after %d attempts)", ErrSFTPConnection, connectErr, u.config.MaxRetries)
}

// Upload copies localPath to remoteDir on the configured host, creating the
// directory if needed. Returns the full remote path of the uploaded file.
func (u *SFTPUploader) Upload(ctx context.Context, localPath, remoteDir string) (string, error) {
	localFile, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: cannot open %s: %v", ErrSFTPUploadFailed, localPath, err)
	}
	defer localFile.Close()

	sshClient, err := u.connect()
	if err != nil {
		return "", err
	}
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return "", fmt.Errorf("%w: cannot create sftp session: %v", ErrSFTPConnection, err)
	}
	defer sftpClient.Close()

	if err := sftpClient.MkdirAll(remoteDir); err != nil {
		return "", fmt.Errorf("%w: cannot create remote dir %s: %v", ErrSFTPUploadFailed, remoteDir, err)
	}

	remotePath := path.Join(remoteDir, path.Base(localPath))
	remoteFile, err := sftpClient.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("%w: cannot create %s: %v", ErrSFTPUploadFailed, remotePath, err)
	}
	defer remoteFile.Close()

	done := make(chan error, 1)
	go func() {
		_, copyErr := remoteFile.ReadFrom(localFile)
		done <- copyErr
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", ErrSFTPUploadFailed, ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSFTPUploadFailed, err)
		}
	}

	return remotePath, nil
}
