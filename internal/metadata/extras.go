package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"flashbulb/internal/logging"
)

const (
	profileFile          = "account_profile.json"
	aggregateCommentGlob = "photos_comments_part*.json"
	albumsFile           = "albums.json"
	albumsPartGlob       = "albums_part*.json"
)

// Owner is the account that produced the export.
type Owner struct {
	NSID string
	Name string
}

// Album is an album as listed in the export.
type Album struct {
	ID          string
	Title       string
	Description string
	// Cover is the cover photo reference, usually a photo page URL.
	Cover    string
	Created  string
	URL      string
	PhotoIDs []string
}

type profileJSON struct {
	NSID       string `json:"nsid"`
	RealName   string `json:"real_name"`
	ScreenName string `json:"screen_name"`
	Username   string `json:"username"`
}

func readOwner(path string) (Owner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Owner{}, nil
		}
		return Owner{}, err
	}
	var raw profileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Owner{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return Owner{
		NSID: strings.TrimSpace(raw.NSID),
		Name: strings.TrimSpace(firstNonEmpty(raw.RealName, raw.ScreenName, raw.Username)),
	}, nil
}

type aggregateCommentJSON struct {
	PhotoID    FlexString `json:"photo_id"`
	Comment    string     `json:"comment"`
	CommentURL string     `json:"comment_url"`
	Created    string     `json:"created"`
}

// mergeAggregateComments appends comments from the aggregate files to their
// records, skipping any whose text already appears inline on that record. The
// account owner is the author of every aggregate comment.
func (l *Loader) mergeAggregateComments(dir string, result *Result, byID map[string]int) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, aggregateCommentGlob))
	if err != nil {
		return 0, err
	}
	sort.Strings(paths)

	merged := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return merged, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		var payload struct {
			Comments FlexList[aggregateCommentJSON] `json:"comments"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			logging.WarnWithContext(l.logger, "aggregate comment file skipped", "aggregate_comments_skipped",
				logging.String("file", filepath.Base(path)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "comments from this file are missing"),
			)
			continue
		}
		for _, ac := range payload.Comments {
			idx, ok := byID[ac.PhotoID.String()]
			if !ok || strings.TrimSpace(ac.Comment) == "" {
				continue
			}
			record := &result.Records[idx]
			if hasCommentText(record.Comments, ac.Comment) {
				continue
			}
			record.Comments = append(record.Comments, Comment{
				Date: ac.Created,
				User: result.Owner.NSID,
				Text: ac.Comment,
				URL:  ac.CommentURL,
			})
			merged++
		}
	}
	return merged, nil
}

func hasCommentText(comments []Comment, text string) bool {
	for _, c := range comments {
		if c.Text == text {
			return true
		}
	}
	return false
}

type albumJSON struct {
	ID          FlexString           `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	CoverPhoto  string               `json:"cover_photo"`
	Created     string               `json:"created"`
	URL         string               `json:"url"`
	Photos      FlexList[FlexString] `json:"photos"`
}

func readAlbums(dir string) ([]Album, error) {
	paths, err := filepath.Glob(filepath.Join(dir, albumsPartGlob))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if single := filepath.Join(dir, albumsFile); fileExists(single) {
		paths = append([]string{single}, paths...)
	}

	var albums []Album
	seen := make(map[string]struct{})
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return albums, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		var payload struct {
			Albums FlexList[albumJSON] `json:"albums"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return albums, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		for _, raw := range payload.Albums {
			id := raw.ID.String()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			album := Album{
				ID:          id,
				Title:       raw.Title,
				Description: raw.Description,
				Cover:       strings.TrimSpace(raw.CoverPhoto),
				Created:     strings.TrimSpace(raw.Created),
				URL:         strings.TrimSpace(raw.URL),
			}
			for _, photo := range raw.Photos {
				if pid := photo.String(); pid != "" && pid != "0" {
					album.PhotoIDs = append(album.PhotoIDs, pid)
				}
			}
			albums = append(albums, album)
		}
	}
	return albums, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
