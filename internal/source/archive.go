package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"time"

	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/storage"
)

const snapshotContentType = "text/markdown; charset=utf-8"

// ArchivingFetcher stores every successfully fetched document in object
// storage before handing it on. Archive failures never fail the fetch.
type ArchivingFetcher struct {
	next   Fetcher
	store  storage.ObjectStorage
	prefix string
	now    func() time.Time
}

// NewArchivingFetcher wraps next.
// Parameters:
//   - next: fetcher doing the actual download.
//   - store: snapshot destination.
//   - prefix: key prefix, e.g. "snapshots".
// Returns:
//   - *ArchivingFetcher: decorated fetcher.
func NewArchivingFetcher(next Fetcher, store storage.ObjectStorage, prefix string) *ArchivingFetcher {
	return &ArchivingFetcher{
		next:   next,
		store:  store,
		prefix: prefix,
		now:    time.Now,
	}
}

// Fetch implements Fetcher.
func (a *ArchivingFetcher) Fetch(ctx context.Context, source domain.SourceName, url string) ([]byte, error) {
	body, err := a.next.Fetch(ctx, source, url)
	if err != nil {
		return nil, err
	}
	a.archive(ctx, source, body)
	return body, nil
}

// SnapshotKey returns the object key a document is archived under:
// <prefix>/<source>/<yyyy-mm-dd>/<sha256>.md. Identical content on the same
// day maps to the same key.
func SnapshotKey(prefix string, source domain.SourceName, day time.Time, body []byte) string {
	sum := sha256.Sum256(body)
	return path.Join(prefix, string(source), day.UTC().Format("2006-01-02"), hex.EncodeToString(sum[:])+".md")
}

func (a *ArchivingFetcher) archive(ctx context.Context, source domain.SourceName, body []byte) {
	key := SnapshotKey(a.prefix, source, a.now(), body)
	log := logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldSource: string(source),
		"key":              key,
	})

	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Snapshot existence check failed")
		return
	}
	if exists {
		log.Debug("Snapshot already archived")
		return
	}

	if err := a.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), snapshotContentType); err != nil {
		log.WithError(err).Warn("Failed to archive snapshot")
		return
	}
	log.WithField(logger.FieldSize, len(body)).Info("Archived snapshot")
}
