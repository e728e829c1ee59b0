package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"

	"github.com/usefence/licensed/internal/api"
	"github.com/usefence/licensed/internal/config"
	"github.com/usefence/licensed/internal/database"
	"github.com/usefence/licensed/internal/jobqueue"
	"github.com/usefence/licensed/internal/license"
	"github.com/usefence/licensed/internal/license/payment"
	"github.com/usefence/licensed/internal/logging"
	"github.com/usefence/licensed/internal/mailer"
)

// ServeCommand returns the CLI command for starting the license server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the license server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the HTTP server (overrides server.port)",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if port := c.Int("port"); port > 0 {
		cfg.Server.Port = port
	}

	ctx := c.Context
	db, err := openLedgerDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ledger := license.NewService(license.NewStorage(db), license.NewTrialClock(loc))

	codec, err := license.NewCodec(cfg.License.SecretKey)
	if err != nil {
		return fmt.Errorf("license codec: %w", err)
	}
	verifier, err := payment.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.Tolerance)
	if err != nil {
		return fmt.Errorf("payment verifier: %w", err)
	}

	mail := mailer.New(mailer.Config{
		APIBase: cfg.Mail.APIBase,
		APIKey:  cfg.Mail.APIKey,
		From:    cfg.Mail.From,
		Support: cfg.Mail.Support,
	})

	var notifier api.Notifier = mail
	if cfg.Database.Driver == database.DriverPostgres && cfg.Queue.Enabled {
		queueCfg := jobqueue.DefaultQueueConfig()
		queueCfg.MaxWorkers = cfg.Queue.MaxWorkers
		if err := jobqueue.Migrate(ctx, cfg.Database.URL); err != nil {
			return fmt.Errorf("job queue migration: %w", err)
		}
		queue, err := jobqueue.NewJobQueue(ctx, cfg.Database.URL, mail, queueCfg)
		if err != nil {
			return fmt.Errorf("job queue: %w", err)
		}
		if err := queue.Start(ctx); err != nil {
			return fmt.Errorf("start job queue: %w", err)
		}
		defer func() {
			if err := queue.Stop(context.Background()); err != nil {
				log.Error().Err(err).Msg("stop job queue")
			}
		}()
		notifier = queue
	} else {
		log.Info().Msg("job queue disabled, sending email inline")
	}

	server := api.NewServer(api.Options{
		Port:         cfg.Server.Port,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimit:    cfg.Server.RateLimit,
		Ledger:       ledger,
		Codec:        codec,
		Webhook:      payment.NewWebhookHandler(verifier, codec, ledger, notifier),
		Notifier:     notifier,
		IssuerSecret: cfg.License.WebhookSecret,
		StudentLink:  cfg.Student.PaymentLink,
	})
	return server.Start()
}

// loadConfig reads the global --config flag and installs the logger.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openLedgerDB(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := license.NewStorage(db).CreateSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}
