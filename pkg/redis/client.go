package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

const recordKeyPrefix = "crm:whatsapp:record:"

// Client persists named records in Valkey/Redis. It satisfies the credential
// store's record backend.
type Client struct {
	client valkey.Client
}

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

func RecordKey(name string) string {
	return recordKeyPrefix + name
}

// GetRecord returns nil data and a nil error when the key does not exist.
func (c *Client) GetRecord(ctx context.Context, name string) ([]byte, error) {
	result := c.client.Do(ctx, c.client.B().Get().Key(RecordKey(name)).Build())
	if err := result.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record %q: %w", name, err)
	}

	data, err := result.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read record %q: %w", name, err)
	}

	return data, nil
}

// PutRecord replaces the whole record in a single SET.
func (c *Client) PutRecord(ctx context.Context, name string, data []byte) error {
	cmd := c.client.B().Set().Key(RecordKey(name)).Value(valkey.BinaryString(data)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to put record %q: %w", name, err)
	}

	logger.Debugf("Stored record %s in Redis", name)

	return nil
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}
