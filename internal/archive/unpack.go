package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"flashbulb/internal/logging"
	"flashbulb/internal/services"
)

// Result describes the working directory after Unpack.
type Result struct {
	Dir    string
	Marker Marker
	// Skipped is true when a previous extraction was reused.
	Skipped bool
	// Files counts the entries written by this call.
	Files int
	// Rejected lists entry names refused for unsafe paths.
	Rejected []string
}

// Unpacker extracts archives into a working directory.
type Unpacker struct {
	workDir string
	logger  *slog.Logger
	now     func() time.Time
}

// NewUnpacker returns an Unpacker targeting workDir.
func NewUnpacker(workDir string, logger *slog.Logger) *Unpacker {
	return &Unpacker{
		workDir: filepath.Clean(workDir),
		logger:  logging.NewComponentLogger(logger, "archive"),
		now:     time.Now,
	}
}

// LockPath returns the lock file guarding the working directory.
func (u *Unpacker) LockPath() string {
	return u.workDir + ".lock"
}

func (u *Unpacker) stagingDir() string {
	return u.workDir + ".partial"
}

// Unpack makes the working directory hold the contents of archives. A
// directory carrying the completion marker is reused untouched. Any archive
// that cannot be read completely fails the whole call with ErrArchive and
// leaves the working directory absent.
func (u *Unpacker) Unpack(ctx context.Context, archives []string) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(u.workDir), 0o755); err != nil {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "prepare", "create parent directory", err)
	}
	lock := flock.New(u.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "lock", u.LockPath(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "lock",
			fmt.Sprintf("another build is using %s", u.workDir), nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			u.logger.Warn("failed to release work directory lock", logging.Error(err))
		}
	}()

	if marker, found, err := ReadMarker(u.workDir); err != nil {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "read marker", u.workDir, err)
	} else if found {
		u.logger.Info("reusing extracted archives",
			logging.String("dir", u.workDir),
			logging.Int("archive_count", len(marker.Archives)),
			logging.String(logging.FieldEventType, "archive_extraction_skipped"),
		)
		return &Result{Dir: u.workDir, Marker: marker, Skipped: true}, nil
	}

	if result, adopted, err := u.adoptLegacy(); err != nil {
		return nil, err
	} else if adopted {
		return result, nil
	}

	if len(archives) == 0 {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "resolve",
			"no archives found and no previous extraction", nil)
	}
	if err := u.ensureWorkDirAbsent(); err != nil {
		return nil, err
	}

	readers, err := openAll(archives)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	staging := u.stagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "prepare", "clear staging directory", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "prepare", "create staging directory", err)
	}

	result := &Result{Dir: u.workDir}
	marker := Marker{}
	written := make(map[string]string)
	for i, reader := range readers {
		src, err := u.extract(ctx, archives[i], reader, staging, written, result, &marker)
		if err != nil {
			os.RemoveAll(staging)
			return nil, err
		}
		marker.Archives = append(marker.Archives, src)
	}
	marker.CompletedAt = u.now().UTC()

	if err := writeMarker(staging, marker); err != nil {
		os.RemoveAll(staging)
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "commit", "write marker", err)
	}
	if err := os.Rename(staging, u.workDir); err != nil {
		os.RemoveAll(staging)
		return nil, services.Wrap(services.ErrArchive, services.StageArchive, "commit", "move staging directory into place", err)
	}
	result.Marker = marker

	u.logger.Info("archives extracted",
		logging.String("dir", u.workDir),
		logging.Int("archive_count", len(marker.Archives)),
		logging.Int("file_count", result.Files),
		logging.Int("rejected_count", len(result.Rejected)),
		logging.String(logging.FieldEventType, "archive_extracted"),
	)
	return result, nil
}

func openAll(archives []string) ([]*zip.ReadCloser, error) {
	readers := make([]*zip.ReadCloser, 0, len(archives))
	for _, name := range archives {
		reader, err := zip.OpenReader(name)
		if errors.Is(err, zip.ErrInsecurePath) && reader != nil {
			// Unsafe entries are rejected one by one during extraction.
			err = nil
		}
		if err != nil {
			for _, r := range readers {
				r.Close()
			}
			return nil, services.Wrap(services.ErrArchive, services.StageArchive, "open", filepath.Base(name), err)
		}
		readers = append(readers, reader)
	}
	return readers, nil
}

func (u *Unpacker) extract(ctx context.Context, archivePath string, reader *zip.ReadCloser, staging string, written map[string]string, result *Result, marker *Marker) (Source, error) {
	src := Source{Name: filepath.Base(archivePath)}
	if info, err := os.Stat(archivePath); err == nil {
		src.Size = info.Size()
	}
	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return src, err
		}
		if entry.FileInfo().IsDir() {
			continue
		}
		name, ok := flatName(entry.Name)
		if !ok {
			result.Rejected = append(result.Rejected, entry.Name)
			logging.WarnWithContext(u.logger, "unsafe archive entry rejected", "archive_entry_rejected",
				logging.String("archive", src.Name),
				logging.String("entry", entry.Name),
				logging.String(logging.FieldErrorHint, "the archive contains absolute or parent-relative paths"),
				logging.String(logging.FieldImpact, "entry not extracted"),
			)
			continue
		}
		if name == "" {
			continue
		}
		if prior, dup := written[name]; dup {
			u.logger.Debug("duplicate archive entry ignored",
				logging.String("entry", entry.Name),
				logging.String("first_archive", prior),
				logging.String("archive", src.Name),
			)
			continue
		}
		if err := u.writeEntry(entry, filepath.Join(staging, name)); err != nil {
			return src, services.Wrap(services.ErrArchive, services.StageArchive, "extract",
				fmt.Sprintf("%s: %s", src.Name, entry.Name), err)
		}
		written[name] = src.Name
		src.Entries++
		result.Files++
		if modified := entry.Modified; usableEntryTime(modified) && modified.After(marker.ExportDate) {
			marker.ExportDate = modified.UTC()
		}
	}
	u.logger.Debug("archive extracted",
		logging.String("archive", src.Name),
		logging.Int("entries", src.Entries),
	)
	return src, nil
}

// flatName returns the base name an entry is extracted under. It reports
// false for absolute or parent-relative entries; an empty name means the
// entry is metadata to skip (e.g. macOS resource forks).
func flatName(entryName string) (string, bool) {
	name := strings.ReplaceAll(entryName, `\`, "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(entryName) || (len(name) > 1 && name[1] == ':') {
		return "", false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	if strings.HasPrefix(name, "__MACOSX/") {
		return "", true
	}
	base := path.Base(name)
	if base == "." || base == "/" || strings.HasPrefix(base, ".") {
		return "", true
	}
	return base, true
}

// minEntryTime rejects the MS-DOS zero date (1979-11-30) that zip writers
// store for entries without a timestamp.
var minEntryTime = time.Date(1980, 1, 2, 0, 0, 0, 0, time.UTC)

// usableEntryTime reports whether an entry or file time can bound the export
// date.
func usableEntryTime(t time.Time) bool {
	return !t.IsZero() && !t.Before(minEntryTime)
}

func (u *Unpacker) writeEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	// The zip reader verifies the CRC when the entry is read to EOF.
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if usableEntryTime(entry.Modified) {
		if err := os.Chtimes(dest, entry.Modified, entry.Modified); err != nil {
			u.logger.Debug("entry time not preserved",
				logging.String("file", filepath.Base(dest)),
				logging.Error(err),
			)
		}
	}
	return nil
}

// adoptLegacy accepts a working directory that already holds metadata files
// from an earlier tool run but no marker.
func (u *Unpacker) adoptLegacy() (*Result, bool, error) {
	matches, err := filepath.Glob(filepath.Join(u.workDir, "photo_*.json"))
	if err != nil || len(matches) == 0 {
		return nil, false, nil
	}
	marker := Marker{CompletedAt: u.now().UTC(), Adopted: true}
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && usableEntryTime(info.ModTime()) && info.ModTime().After(marker.ExportDate) {
			marker.ExportDate = info.ModTime().UTC()
		}
	}
	if err := writeMarker(u.workDir, marker); err != nil {
		return nil, false, services.Wrap(services.ErrArchive, services.StageArchive, "adopt", u.workDir, err)
	}
	u.logger.Info("adopted existing working directory",
		logging.String("dir", u.workDir),
		logging.Int("metadata_files", len(matches)),
		logging.String(logging.FieldEventType, "archive_dir_adopted"),
	)
	return &Result{Dir: u.workDir, Marker: marker, Skipped: true}, true, nil
}

// ensureWorkDirAbsent removes an empty working directory and refuses to
// replace one with unrecognised contents.
func (u *Unpacker) ensureWorkDirAbsent() error {
	entries, err := os.ReadDir(u.workDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrArchive, services.StageArchive, "prepare", u.workDir, err)
	}
	if len(entries) > 0 {
		return services.Wrap(services.ErrArchive, services.StageArchive, "prepare",
			fmt.Sprintf("%s is not empty and has no extraction marker; remove it or change paths.work_dir", u.workDir), nil)
	}
	if err := os.Remove(u.workDir); err != nil {
		return services.Wrap(services.ErrArchive, services.StageArchive, "prepare", u.workDir, err)
	}
	return nil
}

// ResolveArchives returns the archive paths to extract. Explicit paths win
// over glob patterns; each must exist. The result is deduplicated and sorted.
func ResolveArchives(explicit, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	if len(explicit) > 0 {
		for _, p := range explicit {
			info, err := os.Stat(p)
			if err != nil {
				return nil, services.Wrap(services.ErrArchive, services.StageArchive, "resolve", p, err)
			}
			if info.IsDir() {
				return nil, services.Wrap(services.ErrArchive, services.StageArchive, "resolve",
					fmt.Sprintf("%s is a directory", p), nil)
			}
			add(p)
		}
	} else {
		for _, pattern := range patterns {
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, services.StageArchive, "resolve",
					fmt.Sprintf("bad archive pattern %q", pattern), err)
			}
			for _, m := range matches {
				if info, err := os.Stat(m); err == nil && !info.IsDir() {
					add(m)
				}
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
