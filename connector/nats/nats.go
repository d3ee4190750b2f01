// Package nats attaches NATS JetStream subjects as append-only external
// tables. Each inserted row is published as one msgpack encoded message,
// optionally zstd compressed.
package nats

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maxpert/airlock/cfg"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/encoding"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Kind is the connector kind tag
const Kind connector.Kind = "nats"

func init() {
	connector.Register(Kind, connector.NewCapabilities(connector.FamilyInsert), func(opts connector.Options) (connector.Connector, error) {
		return Open(opts)
	})
}

// Connector publishes rows to one subject. The server connection is made on
// the first insert.
type Connector struct {
	url     string
	subject string
	stream  string
	timeout time.Duration
	zstd    bool

	mu sync.Mutex
	nc *nats.Conn
	js jetstream.JetStream
}

// Ensure Connector supports inserts only
var _ connector.Inserter = (*Connector)(nil)

// Open validates the url, subject and compression options
func Open(opts connector.Options) (*Connector, error) {
	url := opts.Get("url", nats.DefaultURL)
	subject := opts.Get("subject", "")
	if subject == "" {
		return nil, fmt.Errorf("nats connector requires the subject option")
	}

	compression, err := encoding.ParseCompression(opts.Get("compression", encoding.CompressionNone))
	if err != nil {
		return nil, err
	}

	return &Connector{
		url:     url,
		subject: subject,
		stream:  opts.Get("stream", sanitizeStreamName(subject)),
		timeout: time.Duration(cfg.Config.Connectors.Nats.FlushTimeoutMS) * time.Millisecond,
		zstd:    compression == encoding.CompressionZstd,
	}, nil
}

func (c *Connector) Kind() connector.Kind {
	return Kind
}

// Subject returns the destination subject
func (c *Connector) Subject() string {
	return c.subject
}

// Stream returns the JetStream stream that captures the subject
func (c *Connector) Stream() string {
	return c.stream
}

// connect dials the server and ensures the stream exists
func (c *Connector) connect(ctx context.Context) (jetstream.JetStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.js != nil {
		return c.js, nil
	}

	nc, err := nats.Connect(c.url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.Timeout(c.timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.stream,
		Subjects:  []string{c.subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", c.stream, err)
	}

	c.nc, c.js = nc, js
	return js, nil
}

// Messages encodes rows as messages on the connector's subject
func (c *Connector) Messages(req *connector.InsertRequest) ([]*nats.Msg, error) {
	msgs := make([]*nats.Msg, 0, len(req.Rows))
	for _, row := range req.Rows {
		data, err := encoding.EncodeRow(req.Columns, row)
		if err != nil {
			return nil, err
		}
		msg := &nats.Msg{
			Subject: c.subject,
			Data:    data,
			Header:  nats.Header{"table": []string{req.Table}},
		}
		if c.zstd {
			msg.Data = encoding.Compress(data)
			msg.Header.Set("Content-Encoding", encoding.CompressionZstd)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (c *Connector) Insert(ctx context.Context, req *connector.InsertRequest) (int64, error) {
	msgs, err := c.Messages(req)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	js, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, msg := range msgs {
		if _, err := js.PublishMsg(ctx, msg); err != nil {
			return n, fmt.Errorf("failed to publish to %s: %w", c.subject, err)
		}
		n++
	}
	return n, nil
}

func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nc != nil {
		c.nc.Close()
		c.nc, c.js = nil, nil
	}
	return nil
}

// sanitizeStreamName converts a subject to a valid JetStream stream name
func sanitizeStreamName(subject string) string {
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_")
	return r.Replace(subject)
}
