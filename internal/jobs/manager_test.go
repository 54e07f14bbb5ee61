package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wait(t *testing.T, m *Manager, job *Job) *Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done, err := m.Wait(ctx, job.ID)
	require.NoError(t, err)
	return done
}

func TestStartCompletes(t *testing.T) {
	m := NewManager()
	job := m.Start(context.Background(), "train", "tree on application_train.csv", func(ctx context.Context, job *Job) (any, error) {
		job.AddLog("fitting %d rows", 3)
		job.SetProgress(0.5)
		return 0.87, nil
	})

	_, err := uuid.Parse(job.ID)
	require.NoError(t, err)

	wait(t, m, job)
	assert.Equal(t, JobCompleted, job.GetStatus())
	assert.Equal(t, 0.87, job.GetResult())
	assert.Equal(t, 1.0, job.GetProgress())
	require.Len(t, job.GetLogs(), 1)
	assert.Contains(t, job.GetLogs()[0], "fitting 3 rows")
	assert.NotNil(t, job.EndTime)
}

func TestStartFails(t *testing.T) {
	m := NewManager()
	boom := errors.New("boom")
	job := m.Start(context.Background(), "cv", "", func(context.Context, *Job) (any, error) {
		return nil, boom
	})

	wait(t, m, job)
	assert.Equal(t, JobFailed, job.GetStatus())
	assert.ErrorIs(t, job.GetError(), boom)
}

func TestCancelJob(t *testing.T) {
	m := NewManager()
	started := make(chan struct{})
	job := m.Start(context.Background(), "experiment", "", func(ctx context.Context, _ *Job) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	<-started
	require.NoError(t, m.CancelJob(job.ID))
	wait(t, m, job)
	assert.Equal(t, JobCancelled, job.GetStatus())

	assert.Error(t, m.CancelJob(job.ID), "already finished")
	assert.ErrorIs(t, m.CancelJob("missing"), ErrJobNotFound)
}

func TestListJobsOldestFirst(t *testing.T) {
	m := NewManager()
	first := m.CreateJob("train", "first")
	time.Sleep(time.Millisecond)
	second := m.CreateJob("train", "second")

	jobs := m.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)
	assert.Equal(t, JobPending, jobs[0].GetStatus())
}
