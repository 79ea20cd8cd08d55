package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

// DSN builds the go-sql-driver connection string. Times are read and written in UTC.
func DSN(cfg environments.DatabaseConfig) string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)
}

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS whatsapp_messages (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(128) NOT NULL,
		conversation_id VARCHAR(32) NOT NULL,
		content TEXT NOT NULL,
		message_timestamp DATETIME(3) NOT NULL,
		channel VARCHAR(20) NOT NULL DEFAULT 'whatsapp',
		direction VARCHAR(10) NOT NULL,
		delivery_status VARCHAR(20) NOT NULL DEFAULT 'sent',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_whatsapp_messages_id (id),
		INDEX idx_whatsapp_messages_conversation (conversation_id, seq)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
	`

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Database migrations completed")

	return nil
}

// SeedTestData inserts a short demo conversation when the feed is empty.
func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM whatsapp_messages")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d messages, skipping seed", count)
		return nil
	}

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	testMessages := []struct {
		phone     string
		content   string
		direction domain.Direction
		status    domain.DeliveryStatus
	}{
		{"+5511987650001", "Good morning, I would like to schedule a consultation about my lease dispute.", domain.DirectionInbound, domain.StatusSent},
		{"+5511987650001", "Good morning! We have availability on Thursday at 10 AM. Does that work for you?", domain.DirectionOutbound, domain.StatusRead},
		{"+5511987650001", "Thursday works. Should I bring the contract?", domain.DirectionInbound, domain.StatusSent},
		{"+5511987650001", "Yes, please bring the contract and any notices you received.", domain.DirectionOutbound, domain.StatusDelivered},
		{"+5521998760002", "Hello, is there any update on my labor claim?", domain.DirectionInbound, domain.StatusSent},
		{"+5521998760002", "The hearing was set for next month. We will send the details by email.", domain.DirectionOutbound, domain.StatusSent},
	}

	for i, msg := range testMessages {
		_, err := db.NamedExec(
			`INSERT INTO whatsapp_messages (id, conversation_id, content, message_timestamp, channel, direction, delivery_status)
			 VALUES (:id, :conversation_id, :content, :message_timestamp, :channel, :direction, :delivery_status)`,
			domain.NormalizedMessage{
				ID:             fmt.Sprintf("seed-%d", i+1),
				ConversationID: domain.ConversationIDFor(msg.phone),
				Content:        msg.content,
				Timestamp:      base.Add(time.Duration(i) * 5 * time.Minute),
				Channel:        domain.ChannelWhatsApp,
				Direction:      msg.direction,
				DeliveryStatus: msg.status,
			},
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	logger.Infof("Seeded %d test messages", len(testMessages))
	return nil
}
