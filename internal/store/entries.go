package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chroniclehq/chronicle/internal/classify"
	"github.com/chroniclehq/chronicle/internal/entity"
	"github.com/chroniclehq/chronicle/internal/phash"
)

// minTextLenForTags is the length below which an entry is forced to the
// Images tag regardless of what the classifier would otherwise say.
const minTextLenForTags = 10

// Entry is one indexed screenshot, keyed by its (post-rename) path.
type Entry struct {
	Path           string
	Text           string
	CreatedAt      int64 // milliseconds, captured before any rename
	ProcessedAt    int64 // seconds
	UpdatedAt      int64 // seconds
	Tags           []string
	URLs           []string
	Emails         []string
	PerceptualHash []byte // nullable
}

// Upsert derives tags, urls, and emails from text, computes the perceptual
// hash from the image at path (best-effort; a hashing failure leaves the
// column null rather than aborting the write), and writes the row with
// processed_at = updated_at = now. Re-indexing an existing path updates it
// in place rather than creating a duplicate.
func (s *Store) Upsert(path, text string, createdAt int64) (*Entry, error) {
	tags := deriveTags(text)
	urls := entity.ExtractURLs(text)
	emails := entity.ExtractEmails(text)

	hash, err := phash.Compute(path)
	if err != nil {
		hash = nil // non-fatal: the row is still written without a hash
	}

	now := time.Now().Unix()

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("store: marshal tags: %w", err)
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("store: marshal urls: %w", err)
	}
	emailsJSON, err := json.Marshal(emails)
	if err != nil {
		return nil, fmt.Errorf("store: marshal emails: %w", err)
	}

	_, err = s.writer.Exec(`
		INSERT INTO entries (path, text, created_at, processed_at, updated_at, tags, urls, emails, perceptual_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			text = excluded.text,
			created_at = excluded.created_at,
			processed_at = excluded.processed_at,
			updated_at = excluded.updated_at,
			tags = excluded.tags,
			urls = excluded.urls,
			emails = excluded.emails,
			perceptual_hash = excluded.perceptual_hash
	`, path, text, createdAt, now, now, string(tagsJSON), string(urlsJSON), string(emailsJSON), nullableBytes(hash))
	if err != nil {
		return nil, fmt.Errorf("store: upsert %s: %w", path, err)
	}

	return &Entry{
		Path: path, Text: text, CreatedAt: createdAt,
		ProcessedAt: now, UpdatedAt: now,
		Tags: tags, URLs: urls, Emails: emails, PerceptualHash: hash,
	}, nil
}

// deriveTags applies the classifier, but forces ["Images"] whenever text is
// empty or shorter than minTextLenForTags, per §4.9.
func deriveTags(text string) []string {
	if len(text) < minTextLenForTags {
		return []string{classify.Images}
	}
	return classify.Classify(text)
}

// DeleteByPath removes the row for path, if present. Idempotent.
func (s *Store) DeleteByPath(path string) error {
	if _, err := s.writer.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete %s: %w", path, err)
	}
	return nil
}

// ListAll returns every entry ordered by created_at descending.
func (s *Store) ListAll() ([]*Entry, error) {
	rows, err := s.reader.Query(`
		SELECT path, text, created_at, processed_at, updated_at, tags, urls, emails, perceptual_hash
		FROM entries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list all: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReprocessTags re-derives tags for every row from its stored text using
// the current classifier. Returns the count of rows updated.
func (s *Store) ReprocessTags() (int, error) {
	rows, err := s.reader.Query(`SELECT path, text FROM entries`)
	if err != nil {
		return 0, fmt.Errorf("store: reprocess tags: query: %w", err)
	}

	type pathText struct{ path, text string }
	var all []pathText
	for rows.Next() {
		var pt pathText
		if err := rows.Scan(&pt.path, &pt.text); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: reprocess tags: scan: %w", err)
		}
		all = append(all, pt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	updated := 0
	for _, pt := range all {
		tags := deriveTags(pt.text)
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return updated, fmt.Errorf("store: reprocess tags: marshal: %w", err)
		}
		if _, err := s.writer.Exec(`UPDATE entries SET tags = ? WHERE path = ?`, string(tagsJSON), pt.path); err != nil {
			return updated, fmt.Errorf("store: reprocess tags: update %s: %w", pt.path, err)
		}
		updated++
	}
	return updated, nil
}

// ComputeMissingHashes computes the perceptual hash for every row whose
// perceptual_hash column is null. A file that's gone missing is skipped
// with the error returned via the caller-supplied onSkip callback rather
// than aborting the whole pass.
func (s *Store) ComputeMissingHashes(onSkip func(path string, err error)) (int, error) {
	rows, err := s.reader.Query(`SELECT path FROM entries WHERE perceptual_hash IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("store: compute missing hashes: query: %w", err)
	}
	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store: compute missing hashes: scan: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	computed := 0
	for _, path := range paths {
		hash, err := phash.Compute(path)
		if err != nil {
			if onSkip != nil {
				onSkip(path, err)
			}
			continue
		}
		if _, err := s.writer.Exec(`UPDATE entries SET perceptual_hash = ? WHERE path = ?`, []byte(hash), path); err != nil {
			return computed, fmt.Errorf("store: compute missing hashes: update %s: %w", path, err)
		}
		computed++
	}
	return computed, nil
}

// defaultSimilarityThreshold is the default Hamming-distance cutoff for
// FindSimilar, per §4.8.
const defaultSimilarityThreshold = 10

// FindSimilar scans every row with a non-null hash and groups them by
// pairwise Hamming distance <= threshold (0 selects the spec default).
func (s *Store) FindSimilar(threshold int) ([][]string, error) {
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}

	rows, err := s.reader.Query(`SELECT path, perceptual_hash FROM entries WHERE perceptual_hash IS NOT NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: find similar: query: %w", err)
	}
	defer rows.Close()

	var entries []phash.Entry
	for rows.Next() {
		var path string
		var hash []byte
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("store: find similar: scan: %w", err)
		}
		entries = append(entries, phash.Entry{Key: path, Hash: hash})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return phash.GroupSimilar(entries, threshold), nil
}

// scanner is satisfied by both *sql.Rows and *sql.Row.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var tagsJSON, urlsJSON, emailsJSON string
	var hash []byte

	if err := row.Scan(&e.Path, &e.Text, &e.CreatedAt, &e.ProcessedAt, &e.UpdatedAt, &tagsJSON, &urlsJSON, &emailsJSON, &hash); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if err := json.Unmarshal([]byte(urlsJSON), &e.URLs); err != nil {
		return nil, fmt.Errorf("unmarshal urls: %w", err)
	}
	if err := json.Unmarshal([]byte(emailsJSON), &e.Emails); err != nil {
		return nil, fmt.Errorf("unmarshal emails: %w", err)
	}
	e.PerceptualHash = hash
	return &e, nil
}

func nullableBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return b
}

// ErrNotFound is returned by lookups for a path with no row.
var ErrNotFound = errors.New("store: not found")

// Get returns the entry for path, or ErrNotFound if no row exists.
func (s *Store) Get(path string) (*Entry, error) {
	row := s.reader.QueryRow(`
		SELECT path, text, created_at, processed_at, updated_at, tags, urls, emails, perceptual_hash
		FROM entries WHERE path = ?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", path, err)
	}
	return e, nil
}
