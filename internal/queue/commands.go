package queue

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/smukkama/openweather-panel/internal/protocol"
)

const fetchRetryDelay = time.Second

// CommandHandler executes a parsed feed command and returns an ack status
type CommandHandler interface {
	Handle(ctx context.Context, msg interface{}) (string, error)
}

// CommandConsumer applies commands read from a Kafka topic. Each message
// carries one client command line, such as {"type":"refresh"}.
type CommandConsumer struct {
	consumer *Consumer
	handler  CommandHandler
}

// NewCommandConsumer creates a command consumer
func NewCommandConsumer(consumer *Consumer, handler CommandHandler) *CommandConsumer {
	return &CommandConsumer{consumer: consumer, handler: handler}
}

// Run consumes commands until ctx is cancelled. Malformed commands are
// logged and committed so they are not redelivered.
func (cc *CommandConsumer) Run(ctx context.Context) error {
	for {
		msg, err := cc.consumer.Fetch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Printf("Command consumer error: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchRetryDelay):
			}
			continue
		}

		cc.apply(ctx, msg.Value)

		if err := cc.consumer.Commit(ctx, msg); err != nil {
			log.Printf("Failed to commit offset: %v", err)
		}
	}
}

func (cc *CommandConsumer) apply(ctx context.Context, value []byte) {
	cmd, err := protocol.ParseMessage(value)
	if err != nil {
		log.Printf("Ignoring malformed command: %v", err)
		return
	}

	switch cmd.(type) {
	case *protocol.SubscribeMessage, *protocol.KeepaliveMessage:
		return
	}

	status, err := cc.handler.Handle(ctx, cmd)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Command %T failed (%s): %v", cmd, status, err)
		return
	}
	log.Printf("Command %T: %s", cmd, status)
}
