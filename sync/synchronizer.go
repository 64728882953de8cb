package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jira-issue-sync/jira"
)

// IssueSource defines the Jira operations the synchronizer needs.
type IssueSource interface {
	SearchPage(ctx context.Context, encodedQuery string, startAt int) jira.PageResult
	GetIssue(ctx context.Context, key string) (*jira.IssueDetail, error)
}

// Store defines the persistence operations the synchronizer needs.
type Store interface {
	UpsertSummaries(ctx context.Context, issues []jira.IssueSummary) (int, error)
	GetCheckpoint(ctx context.Context, project string) (*Checkpoint, error)
	SetCheckpoint(ctx context.Context, project string, cp Checkpoint) error
}

// Run describes one sync pass.
type Run struct {
	ID      string
	Project string
	Since   time.Time
	Started time.Time
	Outcome
}

// Synchronizer pulls changed issues of one project into the store.
type Synchronizer struct {
	Source       IssueSource
	Store        Store
	Project      string
	InitialSince time.Time
	Now          func() time.Time

	log zerolog.Logger
}

// NewSynchronizer creates a new Synchronizer instance. initialSince is the
// lower bound used when the project has no checkpoint yet.
func NewSynchronizer(source IssueSource, store Store, project string, initialSince time.Time, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		Source:       source,
		Store:        store,
		Project:      project,
		InitialSince: initialSince,
		Now:          time.Now,
		log:          log.With().Str("project", project).Logger(),
	}
}

// Sync performs one pass. Unless full is set, only issues updated since the
// last complete pass are requested. The checkpoint advances only when every
// page was stored; the returned error is the run's terminal error.
func (s *Synchronizer) Sync(ctx context.Context, full bool) (Run, error) {
	run := Run{
		ID:      uuid.NewString(),
		Project: s.Project,
		Started: s.Now().UTC(),
		Since:   s.InitialSince,
	}
	log := s.log.With().Str("run_id", run.ID).Logger()

	cp, err := s.Store.GetCheckpoint(ctx, s.Project)
	if err != nil {
		run.Err = fmt.Errorf("failed to get checkpoint: %w", err)
		return run, run.Err
	}
	var lastSynced time.Time
	if cp != nil {
		lastSynced = cp.LastSyncedAt
		if cp.ResumeOffset > 0 {
			log.Info().Int("resume_offset", cp.ResumeOffset).Msg("previous run was interrupted, restarting from offset 0")
		}
	}
	if !full && !lastSynced.IsZero() {
		run.Since = lastSynced
	}

	query, err := jira.BuildChangedSinceQuery(s.Project, run.Since)
	if err != nil {
		run.Err = err
		return run, err
	}
	log.Info().Time("since", run.Since).Bool("full", full).Msg("starting synchronization")

	persist := func(ctx context.Context, page jira.PageResult) (int, error) {
		written, err := s.Store.UpsertSummaries(ctx, page.Records)
		if err != nil {
			return 0, err
		}
		progress := Checkpoint{Project: s.Project, LastSyncedAt: lastSynced, ResumeOffset: page.Offset + page.Len()}
		if err := s.Store.SetCheckpoint(ctx, s.Project, progress); err != nil {
			return written, fmt.Errorf("failed to record progress: %w", err)
		}
		return written, nil
	}
	run.Outcome = Paginate(ctx, query, s.Source.SearchPage, persist, log)
	if run.Err != nil {
		log.Error().Err(run.Err).Int("processed", run.TotalProcessed).Msg("synchronization failed")
		return run, run.Err
	}

	done := Checkpoint{Project: s.Project, LastSyncedAt: run.Started}
	if err := s.Store.SetCheckpoint(ctx, s.Project, done); err != nil {
		run.Err = fmt.Errorf("failed to set checkpoint: %w", err)
		return run, run.Err
	}

	log.Info().
		Int("fetches", run.Fetches).
		Int("processed", run.TotalProcessed).
		Int("written", run.Written).
		Int("rejected", len(run.Rejected)).
		Msg("synchronization finished")
	return run, nil
}

// Snapshot fetches the full record of each key. A key that fails is reported
// in the returned error and does not stop the others.
func (s *Synchronizer) Snapshot(ctx context.Context, keys []string) ([]*jira.IssueDetail, error) {
	var details []*jira.IssueDetail
	var errs []error
	for _, key := range keys {
		d, err := s.Source.GetIssue(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("snapshot failed")
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		details = append(details, d)
	}
	return details, errors.Join(errs...)
}

// Watch runs a pass immediately and then once per interval until ctx is
// cancelled. Passes never overlap; a failed pass is logged and the next one
// starts from the last checkpoint.
func (s *Synchronizer) Watch(ctx context.Context, interval time.Duration, full bool) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}
	if _, err := s.Sync(ctx, full); err != nil {
		s.log.Error().Err(err).Msg("initial synchronization failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("starting periodic synchronization")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("periodic synchronization stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Sync(ctx, full); err != nil {
				s.log.Error().Err(err).Msg("error during synchronization loop")
			}
		}
	}
}
