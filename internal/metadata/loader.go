package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"flashbulb/internal/logging"
	"flashbulb/internal/services"
	"flashbulb/internal/textutil"
)

var recordFilePattern = regexp.MustCompile(`^photo_(\d+)\.json$`)

// Failure describes a record excluded during loading.
type Failure struct {
	File   string
	ItemID string
	Err    error
}

// Result is everything the loader read from a working directory.
type Result struct {
	// Records are sorted by identifier.
	Records  []Record
	Failures []Failure
	Albums   []Album
	Owner    Owner
	// MergedComments counts aggregate comments appended to records.
	MergedComments int
}

// Loader reads metadata files from an extracted export.
type Loader struct {
	logger *slog.Logger
}

// NewLoader constructs a Loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logging.NewComponentLogger(logger, "metadata")}
}

// Load decodes every photo_<id>.json file in dir plus the aggregate comment,
// album, and profile files. Only an unreadable directory is an error; bad
// records are returned as Failures.
func (l *Loader) Load(ctx context.Context, dir string) (*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrArchive, services.StageMetadata, "read working directory", dir, err)
	}

	result := &Result{}
	byID := make(map[string]int)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		match := recordFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		record, err := readRecord(filepath.Join(dir, entry.Name()), match[1])
		if err != nil {
			l.fail(result, entry.Name(), match[1], err)
			continue
		}
		if _, dup := byID[record.ID]; dup {
			l.fail(result, entry.Name(), record.ID, fmt.Errorf("duplicate record for id %s", record.ID))
			continue
		}
		byID[record.ID] = len(result.Records)
		result.Records = append(result.Records, record)
	}

	sort.Slice(result.Records, func(i, j int) bool {
		return textutil.LessID(result.Records[i].ID, result.Records[j].ID)
	})
	for i, record := range result.Records {
		byID[record.ID] = i
	}

	owner, err := readOwner(filepath.Join(dir, profileFile))
	if err != nil {
		logging.WarnWithContext(l.logger, "account profile unreadable", "profile_unreadable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "aggregate comments show no author"),
		)
	}
	result.Owner = owner

	merged, err := l.mergeAggregateComments(dir, result, byID)
	if err != nil {
		return nil, err
	}
	result.MergedComments = merged

	albums, err := readAlbums(dir)
	if err != nil {
		logging.WarnWithContext(l.logger, "album files unreadable", "albums_unreadable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "album pages are not generated"),
		)
	}
	result.Albums = albums

	l.logger.Info("metadata loaded",
		logging.Int("records", len(result.Records)),
		logging.Int("failures", len(result.Failures)),
		logging.Int("albums", len(result.Albums)),
		logging.Int("merged_comments", merged),
		logging.String(logging.FieldEventType, "metadata_loaded"),
	)
	return result, nil
}

func (l *Loader) fail(result *Result, file, itemID string, err error) {
	wrapped := services.Wrap(services.ErrMetadata, services.StageMetadata, "decode", file, err)
	result.Failures = append(result.Failures, Failure{File: file, ItemID: itemID, Err: wrapped})
	logging.WarnWithContext(l.logger, "metadata record skipped", "record_skipped",
		logging.ItemID(itemID),
		logging.String("file", file),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the JSON file in the working directory"),
		logging.String(logging.FieldImpact, "item is excluded from the site"),
	)
}

func readRecord(path, fileID string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, err
	}
	if record.ID == "" {
		record.ID = fileID
	} else if record.ID != fileID {
		return Record{}, fmt.Errorf("record id %s does not match file id %s", record.ID, fileID)
	}
	record.Source = filepath.Base(path)
	return record, nil
}
