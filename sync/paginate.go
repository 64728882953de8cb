package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"jira-issue-sync/jira"
)

// FetchPageFunc returns the page of query starting at offset. Failures are
// reported in PageResult.Err.
type FetchPageFunc func(ctx context.Context, query string, offset int) jira.PageResult

// PersistPageFunc durably writes one page and returns how many records were
// newly stored. It must be idempotent.
type PersistPageFunc func(ctx context.Context, page jira.PageResult) (int, error)

// PersistError wraps a failure to store a page.
type PersistError struct {
	Offset int
	Err    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist page at offset %d: %v", e.Offset, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Outcome summarizes one pagination run. Err is nil only when every page
// reported by the server was fetched and persisted.
type Outcome struct {
	Fetches        int
	TotalProcessed int
	Written        int
	TotalAvailable int
	Rejected       []jira.RecordError
	Err            error
}

// Paginate fetches query page by page from offset 0 and persists each page
// before fetching the next. It stops when the offset reaches the total most
// recently reported by the server, when a page comes back empty, or at the
// first fetch or persist failure.
func Paginate(ctx context.Context, query string, fetch FetchPageFunc, persist PersistPageFunc, log zerolog.Logger) Outcome {
	var out Outcome
	offset := 0

	for {
		page := fetch(ctx, query, offset)
		out.Fetches++
		if page.Err != nil {
			out.Err = fmt.Errorf("fetch page at offset %d: %w", offset, page.Err)
			return out
		}
		out.TotalAvailable = page.Total

		n := page.Len()
		if n == 0 {
			if offset < page.Total {
				log.Warn().Int("offset", offset).Int("total", page.Total).Msg("empty page before reported total, stopping")
			}
			return out
		}

		written, err := persist(ctx, page)
		if err != nil {
			out.Err = &PersistError{Offset: offset, Err: err}
			return out
		}
		for _, rej := range page.Rejected {
			log.Warn().Err(rej.Err).Int("index", rej.Index).Msg("skipped record")
		}
		out.Rejected = append(out.Rejected, page.Rejected...)
		out.Written += written
		out.TotalProcessed += n
		offset += n

		log.Info().
			Int("offset", offset).
			Int("total", page.Total).
			Int("page_records", n).
			Int("written", written).
			Msg("page synced")

		if offset >= page.Total {
			return out
		}
	}
}
