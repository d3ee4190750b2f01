// Package kafka attaches Kafka topics as append-only external tables. Each
// inserted row is published as one msgpack encoded message.
package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxpert/airlock/cfg"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/encoding"
	"github.com/segmentio/kafka-go"
)

// Kind is the connector kind tag
const Kind connector.Kind = "kafka"

const DefaultKafkaBatchBytes = 1 << 20 // 1MB

func init() {
	connector.Register(Kind, connector.NewCapabilities(connector.FamilyInsert), func(opts connector.Options) (connector.Connector, error) {
		return Open(opts)
	})
}

// Connector publishes rows to a single topic
type Connector struct {
	writer *kafka.Writer
	topic  string
	key    string // column used as message key, optional
}

// Ensure Connector supports inserts only
var _ connector.Inserter = (*Connector)(nil)

// Open creates a writer for the brokers and topic options. The writer dials
// lazily on the first insert.
func Open(opts connector.Options) (*Connector, error) {
	brokers := splitList(opts.Get("brokers", ""))
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka connector requires the brokers option")
	}
	topic := opts.Get("topic", "")
	if topic == "" {
		return nil, fmt.Errorf("kafka connector requires the topic option")
	}

	compression, err := encoding.ParseCompression(opts.Get("compression", encoding.CompressionNone))
	if err != nil {
		return nil, err
	}

	kc := cfg.Config.Connectors.Kafka
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // Partition by key for consistent routing
		BatchSize:              kc.BatchSize,
		BatchBytes:             DefaultKafkaBatchBytes,
		WriteTimeout:           time.Duration(kc.WriteTimeoutMS) * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		Async:                  false, // Sync writes so rows affected is exact
		AllowAutoTopicCreation: true,
	}
	if compression == encoding.CompressionZstd {
		writer.Compression = kafka.Zstd
	}

	return &Connector{writer: writer, topic: topic, key: opts.Get("key_column", "")}, nil
}

func (c *Connector) Kind() connector.Kind {
	return Kind
}

// Topic returns the destination topic
func (c *Connector) Topic() string {
	return c.topic
}

// Messages encodes rows as kafka messages
func (c *Connector) Messages(req *connector.InsertRequest) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(req.Rows))
	for _, row := range req.Rows {
		value, err := encoding.EncodeRow(req.Columns, row)
		if err != nil {
			return nil, err
		}

		msg := kafka.Message{Value: value}
		if k := keyOf(c.key, req.Columns, row); k != "" {
			msg.Key = []byte(k)
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

	if err := c.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", c.topic, err)
	}
	return int64(len(msgs)), nil
}

func (c *Connector) Close() error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close()
}

func keyOf(column string, columns []string, row []interface{}) string {
	if column == "" {
		return ""
	}
	for i, col := range columns {
		if strings.EqualFold(col, column) && i < len(row) && row[i] != nil {
			return fmt.Sprint(row[i])
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
