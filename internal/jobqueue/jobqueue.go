package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/zerolog/log"

	"github.com/usefence/licensed/internal/license"
)

// Sender performs the actual delivery. *mailer.Client implements it.
type Sender interface {
	SendLicenseEmail(ctx context.Context, email, code string, typ license.LicenseType) error
	SendStudentLink(ctx context.Context, email, link string) error
}

// LicenseEmailArgs mails an issued license code.
type LicenseEmailArgs struct {
	Email string              `json:"email"`
	Code  string              `json:"code"`
	Type  license.LicenseType `json:"type"`
}

// Kind returns the job kind for River
func (LicenseEmailArgs) Kind() string { return "license_email" }

// StudentLinkArgs mails the student payment link.
type StudentLinkArgs struct {
	Email string `json:"email"`
	Link  string `json:"link"`
}

// Kind returns the job kind for River
func (StudentLinkArgs) Kind() string { return "student_link_email" }

// LicenseEmailWorker handles license_email jobs
type LicenseEmailWorker struct {
	river.WorkerDefaults[LicenseEmailArgs]
	sender  Sender
	timeout time.Duration
}

func (w *LicenseEmailWorker) Timeout(*river.Job[LicenseEmailArgs]) time.Duration { return w.timeout }

// Work sends the email; an error makes River retry it later.
func (w *LicenseEmailWorker) Work(ctx context.Context, job *river.Job[LicenseEmailArgs]) error {
	args := job.Args
	if err := w.sender.SendLicenseEmail(ctx, args.Email, args.Code, args.Type); err != nil {
		log.Warn().Err(err).Str("kind", args.Kind()).Msg("email job failed")
		return fmt.Errorf("license email: %w", err)
	}
	return nil
}

// StudentLinkWorker handles student_link_email jobs
type StudentLinkWorker struct {
	river.WorkerDefaults[StudentLinkArgs]
	sender  Sender
	timeout time.Duration
}

func (w *StudentLinkWorker) Timeout(*river.Job[StudentLinkArgs]) time.Duration { return w.timeout }

func (w *StudentLinkWorker) Work(ctx context.Context, job *river.Job[StudentLinkArgs]) error {
	args := job.Args
	if err := w.sender.SendStudentLink(ctx, args.Email, args.Link); err != nil {
		log.Warn().Err(err).Str("kind", args.Kind()).Msg("email job failed")
		return fmt.Errorf("student link email: %w", err)
	}
	return nil
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	config *QueueConfig
}

// NewJobQueue connects to databaseURL and registers the email workers.
func NewJobQueue(ctx context.Context, databaseURL string, sender Sender, config *QueueConfig) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &LicenseEmailWorker{sender: sender, timeout: config.JobTimeout})
	river.AddWorker(workers, &StudentLinkWorker{sender: sender, timeout: config.JobTimeout})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, pool: pool, config: config}, nil
}

// Migrate brings River's own tables up to date.
func Migrate(ctx context.Context, databaseURL string) error {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("failed to migrate river schema: %w", err)
	}
	for _, v := range res.Versions {
		log.Info().Int("version", v.Version).Msg("applied river migration")
	}
	return nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop waits for running jobs and releases the pool.
func (jq *JobQueue) Stop(ctx context.Context) error {
	err := jq.client.Stop(ctx)
	jq.pool.Close()
	return err
}

// SendLicenseEmail queues a license email.
func (jq *JobQueue) SendLicenseEmail(ctx context.Context, email, code string, typ license.LicenseType) error {
	if _, err := jq.client.Insert(ctx, LicenseEmailArgs{Email: email, Code: code, Type: typ}, jq.config.insertOpts()); err != nil {
		return fmt.Errorf("failed to queue license email job: %w", err)
	}
	return nil
}

// SendStudentLink queues a student discount email.
func (jq *JobQueue) SendStudentLink(ctx context.Context, email, link string) error {
	if _, err := jq.client.Insert(ctx, StudentLinkArgs{Email: email, Link: link}, jq.config.insertOpts()); err != nil {
		return fmt.Errorf("failed to queue student link job: %w", err)
	}
	return nil
}
