package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/onurcolak/crm-whatsapp-service/environments"
	"github.com/onurcolak/crm-whatsapp-service/internal/domain"
	"github.com/onurcolak/crm-whatsapp-service/internal/middlewares"
	"github.com/onurcolak/crm-whatsapp-service/internal/stream"
	"github.com/onurcolak/crm-whatsapp-service/pkg/logger"
)

type options struct {
	url          string
	apiKey       string
	conversation string
	jsonOutput   bool
	maxBackoff   time.Duration
}

func newRootCmd(cfg *environments.Config) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "streamtail",
		Short: "Tail the live WhatsApp message stream",
		Long: `Connects to the service's message stream and prints every new or
updated message as it arrives. Reconnects with exponential backoff until
interrupted.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", cfg.Stream.URL, "stream endpoint URL")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", cfg.Auth.APIKey, "API key sent in the "+middlewares.APIKeyHeader+" header")
	cmd.Flags().StringVar(&opts.conversation, "conversation", "", "only print messages of this conversation (phone number)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print one JSON object per message")
	cmd.Flags().DurationVar(&opts.maxBackoff, "max-backoff", 30*time.Second, "upper bound of the reconnect delay")

	return cmd
}

func run(ctx context.Context, out io.Writer, opts *options) error {
	if opts.url == "" {
		return fmt.Errorf("--url must not be empty")
	}

	consumerOpts := []stream.Option{stream.WithBackoff(time.Second, opts.maxBackoff)}
	if opts.apiKey != "" {
		consumerOpts = append(consumerOpts, stream.WithHeader(middlewares.APIKeyHeader, opts.apiKey))
	}

	conversation := domain.ConversationIDFor(opts.conversation)
	enc := json.NewEncoder(out)

	sub := stream.NewConsumer(opts.url, consumerOpts...).Subscribe(ctx,
		func(msg domain.NormalizedMessage) {
			if conversation != "" && msg.ConversationID != conversation {
				return
			}
			if opts.jsonOutput {
				if err := enc.Encode(msg); err != nil {
					logger.Errorf("Failed to encode message %s: %v", msg.ID, err)
				}
				return
			}
			fmt.Fprintln(out, formatMessage(msg))
		},
		func(status stream.ConnectionStatus) {
			if status.Reason != "" {
				logger.Infof("Stream %s: %s", status.State, status.Reason)
				return
			}
			logger.Infof("Stream %s", status.State)
		},
	)

	<-sub.Done()

	return nil
}

func formatMessage(msg domain.NormalizedMessage) string {
	arrow := "<-"
	if msg.Direction == domain.DirectionOutbound {
		arrow = "->"
	}
	return fmt.Sprintf("%s %s %s [%s] %s",
		msg.Timestamp.Local().Format(time.DateTime),
		arrow,
		msg.ConversationID,
		msg.DeliveryStatus,
		msg.Content,
	)
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	cfg := environments.Load()
	logger.Init(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
