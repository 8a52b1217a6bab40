package sftpsink

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/trivium-ecommerce/fulfillment/internal/config"
	"github.com/trivium-ecommerce/fulfillment/internal/domain"
)

const dialTimeout = 30 * time.Second

// Sink загружает batch-файлы и лейблы на SFTP-сервер склада. Соединение
// устанавливается на время одной загрузки и закрывается после неё.
type Sink struct {
	cfg config.SFTPConfig
	log *log.Entry
}

var _ domain.DeliverySink = (*Sink)(nil)

// NewSink создаёт SFTP-приёмник.
func NewSink(cfg config.SFTPConfig, logger *log.Entry) *Sink {
	if logger == nil {
		logger = log.WithField("component", "sftp_sink")
	}
	return &Sink{cfg: cfg, log: logger}
}

// UploadBatches загружает batch-файлы в каталог батчей, сохраняя имя
// каталога суток из локального пути.
func (s *Sink) UploadBatches(ctx context.Context, localPaths []string) error {
	return s.upload(ctx, localPaths, func(localPath string) string {
		dayDir := filepath.Base(filepath.Dir(localPath))
		return path.Join(s.cfg.RemoteBatchDir, dayDir)
	})
}

// UploadLabels загружает PDF-лейблы в плоский каталог лейблов.
func (s *Sink) UploadLabels(ctx context.Context, localPaths []string) error {
	return s.upload(ctx, localPaths, func(string) string {
		return s.cfg.RemoteLabelDir
	})
}

func (s *Sink) upload(ctx context.Context, localPaths []string, remoteDir func(string) string) error {
	if len(localPaths) == 0 {
		return nil
	}

	client, closer, err := s.connect()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	defer closer()

	uploaded := 0
	for _, localPath := range localPaths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: upload interrupted: %v", domain.ErrDeliveryFailed, err)
		}

		dir := remoteDir(localPath)
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("%w: create remote dir %s: %v", domain.ErrDeliveryFailed, dir, err)
		}

		remotePath := path.Join(dir, filepath.Base(localPath))
		if err := s.put(client, localPath, remotePath); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
		}
		uploaded++
	}

	s.log.WithFields(log.Fields{"files": uploaded, "host": s.cfg.Host}).Info("files uploaded")
	return nil
}

// put копирует один файл и сверяет размер на удалённой стороне.
func (s *Sink) put(client *sftp.Client, localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create remote %s: %w", remotePath, err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("copy to %s: %w", remotePath, err)
	}

	if stat, err := client.Stat(remotePath); err != nil {
		s.log.WithError(err).WithField("remote", remotePath).Warn("remote stat after upload failed")
	} else if stat.Size() != written {
		s.log.WithFields(log.Fields{
			"remote":      remotePath,
			"local_size":  written,
			"remote_size": stat.Size(),
		}).Warn("remote size differs from uploaded size")
	}

	s.log.WithFields(log.Fields{"local": localPath, "remote": remotePath, "bytes": written}).Debug("file uploaded")
	return nil
}

// connect устанавливает SSH-сессию и открывает SFTP-клиент поверх неё.
func (s *Sink) connect() (*sftp.Client, func(), error) {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	sshCfg := &ssh.ClientConfig{
		User: s.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.cfg.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("open sftp session: %w", err)
	}

	closer := func() {
		client.Close()
		sshClient.Close()
	}
	return client, closer, nil
}
