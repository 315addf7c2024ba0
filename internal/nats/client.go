// Package nats carries the change feed over NATS, with JetStream keeping a
// replayable history for stream reconnects.
package nats

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/pkg/logger"
)

// Config holds the connection settings. TLS is used only when all three
// file paths are set.
type Config struct {
	URL      string
	Name     string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Client is a NATS connection plus its JetStream handle.
type Client struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *logger.Logger
}

// Connect dials the server and reconnects forever in the background.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	log = log.Named("nats")

	opts, err := cfg.options(log)
	if err != nil {
		return nil, err
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("opening jetstream: %w", err)
	}

	log.Info("connected", zap.String("url", nc.ConnectedUrl()))
	return &Client{conn: nc, js: js, logger: log}, nil
}

func (cfg Config) options(log *logger.Logger) ([]nats.Option, error) {
	name := cfg.Name
	if name == "" {
		name = "heritage-admin-api"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			log.Error("async error", fields...)
		}),
	}

	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsCfg, err := loadTLS(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nats.Secure(tlsCfg))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts, nil
}

func (c *Client) JetStream() jetstream.JetStream { return c.js }

func (c *Client) Conn() *nats.Conn { return c.conn }

// Ping reports whether the connection is usable. It is the readiness check.
func (c *Client) Ping(ctx context.Context) error {
	if c.conn == nil || !c.conn.IsConnected() {
		return errors.New("nats not connected")
	}
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	return c.conn.FlushTimeout(timeout)
}

// Close drains subscriptions before closing, falling back to a hard close.
func (c *Client) Close() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("drain failed", zap.Error(err))
		c.conn.Close()
	}
}

func loadTLS(caFile, certFile, keyFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading nats CA: %w", err)
	}
	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, errors.New("nats CA file holds no certificates")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading nats client certificate: %w", err)
	}

	return &tls.Config{
		RootCAs:      roots,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
