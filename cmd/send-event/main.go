// send-event publishes a transaction lifecycle event to the exchange.
// It exists for local testing and operational backfills:
//
//	send-event -kind created -user user-1 -type INCOME -amount 3000 -date 2025-03-15
//	send-event -kind updated -user user-1 -type EXPENSE -amount 150 -date 2025-03-10 \
//	    -previous-amount 100 -previous-date 2025-02-28
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"reportsvc/internal/amqp"
	"reportsvc/internal/config"
	"reportsvc/internal/core"
	"reportsvc/internal/log"
)

func main() {
	_ = godotenv.Load()

	var (
		kindFlag      = flag.String("kind", "created", "event kind: created, updated or deleted")
		messageID     = flag.String("message-id", "", "message id (generated when empty)")
		transactionID = flag.Int64("transaction-id", 0, "transaction id")
		userID        = flag.String("user", "", "user id")
		txType        = flag.String("type", "", "transaction type: INCOME or EXPENSE")
		amount        = flag.String("amount", "", "transaction amount")
		date          = flag.String("date", "", "transaction date (yyyy-MM-dd)")
		category      = flag.String("category", "", "category")
		description   = flag.String("description", "", "description")
		prevAmount    = flag.String("previous-amount", "", "previous amount (updates only)")
		prevDate      = flag.String("previous-date", "", "previous date (updates only)")
	)
	flag.Parse()

	cfg := config.Load()
	logger := log.New(log.ParseLevel(cfg.LogLevel), "send-event")

	kind, err := eventKind(*kindFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	amt, err := decimal.NewFromString(*amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -amount %q: %v\n", *amount, err)
		os.Exit(2)
	}

	msg := &amqp.TransactionMessage{
		MessageID:     *messageID,
		TransactionID: *transactionID,
		UserID:        *userID,
		Type:          *txType,
		Amount:        amt,
		Date:          *date,
		Category:      *category,
		Description:   *description,
	}
	if *prevAmount != "" || *prevDate != "" {
		pa, err := decimal.NewFromString(*prevAmount)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -previous-amount %q: %v\n", *prevAmount, err)
			os.Exit(2)
		}
		pd := *prevDate
		msg.PreviousAmount = &pa
		msg.PreviousDate = &pd
	}

	// Fail fast on events the worker would reject anyway.
	if _, err := msg.ToEvent(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid event: %v\n", err)
		os.Exit(2)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, amqp.Queues{
		Created: cfg.QueueCreated,
		Updated: cfg.QueueUpdated,
		Deleted: cfg.QueueDeleted,
	})
	if err != nil {
		logger.Error("failed to connect to broker", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Publish(ctx, kind, msg); err != nil {
		logger.Error("publish failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("event published",
		log.FieldMessageID, msg.MessageID,
		log.FieldTransactionID, msg.TransactionID,
		"routing_key", string(kind),
	)
}

func eventKind(s string) (core.EventKind, error) {
	switch s {
	case "created":
		return core.EventCreated, nil
	case "updated":
		return core.EventUpdated, nil
	case "deleted":
		return core.EventDeleted, nil
	default:
		return "", fmt.Errorf("unknown -kind %q: want created, updated or deleted", s)
	}
}
