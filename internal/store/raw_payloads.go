package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// PayloadKey derives a cache key from the parts that identify an upstream request.
func PayloadKey(parts ...string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(parts, "\x00")))
}

// StorePayload compresses and stores an upstream response under key. Storing
// an identical payload again only refreshes its fetch time.
func (s *Store) StorePayload(key, source, endpoint string, payload []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)
	_, err := s.db.Exec(`
		INSERT INTO raw_payloads (request_key, fetched_at, source, endpoint, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_key, payload_hash) DO UPDATE SET fetched_at = excluded.fetched_at
	`, key, s.now().Unix(), source, endpoint, buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return fmt.Errorf("insert raw payload: %w", err)
	}
	return nil
}

// CachedPayload returns the newest payload for key fetched within maxAge.
func (s *Store) CachedPayload(key string, maxAge time.Duration) ([]byte, error) {
	cutoff := s.now().Add(-maxAge).Unix()
	var compressed []byte
	err := s.db.QueryRow(`
		SELECT payload_compressed FROM raw_payloads
		WHERE request_key = ? AND fetched_at >= ?
		ORDER BY fetched_at DESC, id DESC LIMIT 1
	`, key, cutoff).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

type PayloadStats struct {
	TotalCount      int
	TotalSizeBytes  int64
	OldestFetchedAt time.Time
	NewestFetchedAt time.Time
	CountBySource   map[string]int
}

func (s *Store) PayloadStats() (*PayloadStats, error) {
	stats := &PayloadStats{CountBySource: make(map[string]int)}

	var oldest, newest sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0), MIN(fetched_at), MAX(fetched_at)
		FROM raw_payloads
	`).Scan(&stats.TotalCount, &stats.TotalSizeBytes, &oldest, &newest)
	if err != nil {
		return nil, err
	}
	if oldest.Valid {
		stats.OldestFetchedAt = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		stats.NewestFetchedAt = time.Unix(newest.Int64, 0).UTC()
	}

	rows, err := s.db.Query(`SELECT source, COUNT(*) FROM raw_payloads GROUP BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		stats.CountBySource[source] = count
	}
	return stats, rows.Err()
}

// CleanupPayloads deletes payloads fetched more than retention ago and
// returns how many were removed.
func (s *Store) CleanupPayloads(retention time.Duration) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, s.now().Add(-retention).Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
