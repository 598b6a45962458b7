package cache

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/crypto/blake2b"
)

// BinaryInspection is the cached form of one executable's three
// inspection sets: the basenames are stored, not the full Master
// Structure catalogs, since those are reconstructed by the caller.
type BinaryInspection struct {
	Needed  []string `json:"needed"`
	Files   []string `json:"files"`
	Strings []string `json:"strings"`
}

// Cache provides cached access to binary-inspection results and whole
// snapshot payloads.
type Cache struct {
	db *DB
}

// New wraps an opened DB as a Cache.
func New(db *DB) *Cache {
	return &Cache{db: db}
}

// ContentHash fingerprints a file's contents with blake2b-256, used as
// the binary_cache row's staleness key: if the file on disk still
// hashes to the same value, the cached subprocess results are reused
// as-is.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// GetBinaryInspection looks up a cached inspection for path under
// altRoot, valid only if contentHash still matches what was stored.
func (c *Cache) GetBinaryInspection(path, altRoot, contentHash string) (*BinaryInspection, bool, error) {
	var storedHash, neededJSON, filesJSON, stringsJSON string
	err := c.db.QueryRow(`
		SELECT content_hash, needed_json, files_json, strings_json
		FROM binary_cache WHERE path = ? AND alt_root = ?
	`, path, altRoot).Scan(&storedHash, &neededJSON, &filesJSON, &stringsJSON)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("binary cache lookup: %w", err)
	}
	if storedHash != contentHash {
		return nil, false, nil
	}

	result := &BinaryInspection{}
	if err := json.Unmarshal([]byte(neededJSON), &result.Needed); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(filesJSON), &result.Files); err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal([]byte(stringsJSON), &result.Strings); err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// SetBinaryInspection stores (or replaces) the cached inspection for
// path under altRoot.
func (c *Cache) SetBinaryInspection(path, altRoot, contentHash string, result BinaryInspection) error {
	neededJSON, err := json.Marshal(result.Needed)
	if err != nil {
		return err
	}
	filesJSON, err := json.Marshal(result.Files)
	if err != nil {
		return err
	}
	stringsJSON, err := json.Marshal(result.Strings)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(`
		INSERT INTO binary_cache (path, alt_root, content_hash, needed_json, files_json, strings_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, alt_root) DO UPDATE SET
			content_hash=excluded.content_hash,
			needed_json=excluded.needed_json,
			files_json=excluded.files_json,
			strings_json=excluded.strings_json,
			updated_at=excluded.updated_at
	`, path, altRoot, contentHash, string(neededJSON), string(filesJSON), string(stringsJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing binary cache entry: %w", err)
	}
	return nil
}

// GetSnapshot returns the gzip-decompressed payload stored under
// fingerprint, if present.
func (c *Cache) GetSnapshot(fingerprint, altRoot string) ([]byte, bool, error) {
	var compressed []byte
	err := c.db.QueryRow(`
		SELECT payload FROM snapshot_cache WHERE fingerprint = ? AND alt_root = ?
	`, fingerprint, altRoot).Scan(&compressed)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("snapshot cache lookup: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, false, fmt.Errorf("decompressing snapshot: %w", err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, false, fmt.Errorf("reading decompressed snapshot: %w", err)
	}
	return payload, true, nil
}

// SetSnapshot gzip-compresses payload and stores it under fingerprint.
func (c *Cache) SetSnapshot(fingerprint, altRoot string, payload []byte) error {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return err
	}
	if _, err := gz.Write(payload); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	_, err = c.db.Exec(`
		INSERT INTO snapshot_cache (fingerprint, alt_root, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at
	`, fingerprint, altRoot, buf.Bytes(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing snapshot cache entry: %w", err)
	}
	return nil
}

// Purge removes all cached entries, used by `sysdsnap build --purge-cache`.
func (c *Cache) Purge() error {
	if _, err := c.db.Exec("DELETE FROM binary_cache"); err != nil {
		return err
	}
	if _, err := c.db.Exec("DELETE FROM snapshot_cache"); err != nil {
		return err
	}
	return nil
}
