package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usefence/licensed/internal/license"
)

type fakeSender struct {
	licenses []LicenseEmailArgs
	links    []StudentLinkArgs
	err      error
}

func (f *fakeSender) SendLicenseEmail(_ context.Context, email, code string, typ license.LicenseType) error {
	f.licenses = append(f.licenses, LicenseEmailArgs{Email: email, Code: code, Type: typ})
	return f.err
}

func (f *fakeSender) SendStudentLink(_ context.Context, email, link string) error {
	f.links = append(f.links, StudentLinkArgs{Email: email, Link: link})
	return f.err
}

func TestLicenseEmailWorker(t *testing.T) {
	sender := &fakeSender{}
	w := &LicenseEmailWorker{sender: sender}
	args := LicenseEmailArgs{Email: "a@example.com", Code: "FENCE-x", Type: license.TypeStandard}

	require.NoError(t, w.Work(context.Background(), &river.Job[LicenseEmailArgs]{Args: args}))
	assert.Equal(t, []LicenseEmailArgs{args}, sender.licenses)
}

func TestStudentLinkWorker_PropagatesFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("http 503")}
	w := &StudentLinkWorker{sender: sender}

	err := w.Work(context.Background(), &river.Job[StudentLinkArgs]{Args: StudentLinkArgs{Email: "s@uni.edu", Link: "https://pay"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 503")
	assert.Len(t, sender.links, 1)
}

func TestJobKinds(t *testing.T) {
	assert.Equal(t, "license_email", LicenseEmailArgs{}.Kind())
	assert.Equal(t, "student_link_email", StudentLinkArgs{}.Kind())
}

func TestQueueConfig(t *testing.T) {
	cfg := DefaultQueueConfig()
	queues := cfg.RiverQueueConfig()
	assert.Equal(t, 5, queues[river.QueueDefault].MaxWorkers)

	opts := cfg.insertOpts()
	assert.True(t, opts.UniqueOpts.ByArgs)
	assert.Equal(t, 10, opts.MaxAttempts)
}
