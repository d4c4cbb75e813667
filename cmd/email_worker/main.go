package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-form-playground/config"
	"github.com/oksasatya/go-form-playground/pkg/helpers"
	"github.com/oksasatya/go-form-playground/pkg/mailer"
	mailtpl "github.com/oksasatya/go-form-playground/pkg/mailer/templates"
)

var errNoContent = errors.New("email job has neither template nor body")

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	if _, err := ch.QueueDeclare(cfg.RabbitMQEmailQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	ctx := context.Background()
	resolver := mailtpl.IPAPIResolver{}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			var job mailer.EmailJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				logger.WithError(err).Warn("bad message")
				_ = msg.Nack(false, false)
				continue
			}
			entry := logger.WithFields(logrus.Fields{
				"to":         job.To,
				"template":   job.Template,
				"message_id": msg.MessageId,
				"type":       msg.Type,
			})

			subject, text, html, err := renderJob(ctx, cfg, resolver, job)
			if err != nil {
				entry.WithError(err).Error("render failed")
				_ = msg.Nack(false, false)
				continue
			}

			var tags []string
			if job.Template != "" {
				tags = append(tags, job.Template)
			}
			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			mailgunID, err := mg.Send(c, job.To, subject, text, html, tags...)
			cancel()
			if err != nil {
				entry.WithError(err).Warn("send failed, requeueing")
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
			entry.WithField("mailgun_id", mailgunID).Info("email sent")
		}
	}()

	logger.Infof("email worker listening on queue=%s", cfg.RabbitMQEmailQueue)
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// renderJob turns a queued job into subject, text and html. Raw jobs are
// passed through.
func renderJob(ctx context.Context, cfg *config.Config, resolver mailtpl.GeoResolver, job mailer.EmailJob) (string, string, string, error) {
	if job.To == "" {
		return "", "", "", errors.New("email job has no recipient")
	}
	switch job.Template {
	case "":
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return "", "", "", errNoContent
		}
		return job.Subject, job.Text, job.HTML, nil
	case mailer.TemplateWelcome:
		opts := []mailtpl.Option{mailtpl.WithIP(job.String("IP"))}
		if at, err := time.Parse(time.RFC3339, job.String("TimeAt")); err == nil {
			opts = append(opts, mailtpl.WithTime(at))
		}
		opts = append(opts, mailtpl.WithGeoFromIP(ctx, resolver))
		data := mailtpl.NewWelcomeData(cfg, job.String("Name"), job.To, opts...)
		return mailtpl.Render(mailtpl.Welcome, data)
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", job.Template)
	}
}
