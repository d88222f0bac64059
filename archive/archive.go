// Package archive persists successfully posted updates as an
// append-only dataset.
//
// Records are written through Lode with a Hive layout partitioned by
// runner, day, and run id, encoded as JSONL. The archive is optional:
// the orchestrator treats write failures as log-and-continue, and the
// Harvest runner reads recent entries back to report posting volume.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the Lode dataset ID for posted updates.
const DefaultDataset = "crier"

// RecordKindPosted discriminates posted-update records from anything
// else that may share the dataset.
const RecordKindPosted = "posted_update"

// Entry is one archived posted update.
type Entry struct {
	RunID    string
	Runner   string
	Day      string // YYYY-MM-DD, UTC
	Text     string
	Live     bool
	PostedAt string // RFC3339
}

// Sink accepts posted updates for archival.
type Sink interface {
	Record(ctx context.Context, e *Entry) error
	Close() error
}

// Reader returns archived entries on or after a given day.
// An empty sinceDay means no lower bound.
type Reader interface {
	RecentEntries(ctx context.Context, sinceDay string) ([]*Entry, error)
}

// DeriveDay computes the partition day from a timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config selects the archive storage backend.
type Config struct {
	// Dataset is the Lode dataset ID (default "crier").
	Dataset string
	// Backend selects the storage backend: "fs" (default) or "s3".
	Backend string
	// Path is the storage location (fs: directory, s3: bucket/prefix).
	Path string
	// Region is the AWS region for the s3 backend.
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Dataset is the Lode-backed archive.
type Dataset struct {
	name    string
	dataset lode.Dataset
}

// New creates an archive dataset from the given config.
func New(cfg Config) (*Dataset, error) {
	if cfg.Path == "" {
		return nil, errors.New("archive requires a storage path")
	}

	name := cfg.Dataset
	if name == "" {
		name = DefaultDataset
	}

	switch cfg.Backend {
	case "fs", "":
		return NewWithFactory(name, lode.NewFSFactory(cfg.Path))
	case "s3":
		bucket, prefix := ParseS3Path(cfg.Path)
		factory, err := s3Factory(S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return NewWithFactory(name, factory)
	default:
		return nil, fmt.Errorf("unknown archive backend: %s (must be fs or s3)", cfg.Backend)
	}
}

// NewWithFactory creates an archive dataset with a custom store
// factory. Use a memory store for testing.
func NewWithFactory(name string, factory lode.StoreFactory) (*Dataset, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(name),
		factory,
		lode.WithHiveLayout("runner", "day", "run_id"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, WrapInitError(err, name)
	}
	return &Dataset{name: name, dataset: ds}, nil
}

// Record writes one posted update to the dataset.
func (d *Dataset) Record(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.New("archive: nil entry")
	}
	_, err := d.dataset.Write(ctx, []any{toRecord(e)}, lode.Metadata{})
	return WrapWriteError(err, d.name+"/"+e.Runner+"/"+e.Day)
}

// RecentEntries reads posted updates with day >= sinceDay, newest
// snapshot first. An empty sinceDay returns everything.
func (d *Dataset) RecentEntries(ctx context.Context, sinceDay string) ([]*Entry, error) {
	snapshots, err := d.dataset.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, d.name+"/snapshots")
	}

	var entries []*Entry
	// Snapshots are ordered by creation time; walk latest first.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotSince(snap, sinceDay) {
			continue
		}

		data, err := d.dataset.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", d.name, snap.ID))
		}

		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if toString(record["record_kind"]) != RecordKindPosted {
				continue
			}
			// Manifest paths are a coarse pre-filter; record fields
			// are authoritative.
			if sinceDay != "" && toString(record["day"]) < sinceDay {
				continue
			}
			entries = append(entries, fromRecord(record))
		}
	}
	return entries, nil
}

// Close releases dataset resources.
func (d *Dataset) Close() error {
	// Lode datasets do not require explicit close.
	return nil
}

// toRecord converts an entry to the map form Lode's HiveLayout
// requires. Partition keys (runner, day, run_id) ride along in each
// record.
func toRecord(e *Entry) map[string]any {
	return map[string]any{
		"record_kind": RecordKindPosted,
		"run_id":      e.RunID,
		"runner":      e.Runner,
		"day":         e.Day,
		"text":        e.Text,
		"live":        e.Live,
		"posted_at":   e.PostedAt,
	}
}

func fromRecord(record map[string]any) *Entry {
	return &Entry{
		RunID:    toString(record["run_id"]),
		Runner:   toString(record["runner"]),
		Day:      toString(record["day"]),
		Text:     toString(record["text"]),
		Live:     toBool(record["live"]),
		PostedAt: toString(record["posted_at"]),
	}
}

// snapshotSince reports whether any day partition in the snapshot's
// manifest is on or after sinceDay. ISO dates compare lexically.
func snapshotSince(snap *lode.DatasetSnapshot, sinceDay string) bool {
	if sinceDay == "" {
		return true
	}
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if day, ok := strings.CutPrefix(part, "day="); ok && day >= sinceDay {
				return true
			}
		}
	}
	return false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// Verify Dataset implements both archive interfaces.
var (
	_ Sink   = (*Dataset)(nil)
	_ Reader = (*Dataset)(nil)
)
