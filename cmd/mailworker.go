/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/heptatravel/apiserver/config"
	"github.com/heptatravel/apiserver/internal/mail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// mailworkerCmd represents the mailworker command
var mailworkerCmd = &cobra.Command{
	Use:   "mailworker",
	Short: "Consume and deliver queued emails",
	Long: `Consume and deliver queued emails. Usage:

	heptatravel mailworker

Blocks until interrupted. Requires MAIL_BACKEND to be set to
"rabbitmq" or "pubsub".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		log := logrus.New()
		log.SetFormatter(&logrus.JSONFormatter{})

		var (
			backend mail.Backend
			err     error
		)
		switch cfg.Mail.Backend {
		case "rabbitmq":
			backend, err = mail.NewRabbitMQBackend(cfg.Mail.RabbitMQ)
		case "pubsub":
			backend, err = mail.NewPubSubBackend(cmd.Context(), cfg.Mail.PubSub)
		default:
			return errors.New("MAIL_BACKEND must be rabbitmq or pubsub")
		}
		if err != nil {
			return fmt.Errorf("mail backend init failed: %w", err)
		}
		defer func() {
			_ = backend.Close()
		}()

		worker := mail.NewWorker(backend, cfg.Mail.Channel, mail.LogSender{Log: log}, log)
		if err := worker.Run(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "mail worker stopped: %v\n", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mailworkerCmd)
}
