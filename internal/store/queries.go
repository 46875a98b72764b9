package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/powerweather/internal/models"
)

// Query is one dashboard lookup, kept so the page can offer recent locations.
type Query struct {
	Location   models.Location
	Temporal   models.Temporal
	Start      string
	End        string
	Parameters []models.Parameter
	CreatedAt  time.Time
}

func (s *Store) RecordQuery(q Query) error {
	codes := make([]string, len(q.Parameters))
	for i, p := range q.Parameters {
		codes[i] = string(p)
	}
	_, err := s.db.Exec(`
		INSERT INTO queries (name, latitude, longitude, temporal, start_date, end_date, parameters, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, q.Location.Name, q.Location.Latitude, q.Location.Longitude, string(q.Temporal),
		q.Start, q.End, strings.Join(codes, ","), s.now().Unix())
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// RecentQueries returns the latest lookup per distinct location, newest first.
func (s *Store) RecentQueries(limit int) ([]Query, error) {
	rows, err := s.db.Query(`
		SELECT q.name, q.latitude, q.longitude, q.temporal, q.start_date, q.end_date, q.parameters, q.created_at
		FROM queries q
		JOIN (
			SELECT MAX(id) AS id FROM queries GROUP BY name, ROUND(latitude, 3), ROUND(longitude, 3)
		) latest ON latest.id = q.id
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Query
	for rows.Next() {
		var (
			q        Query
			temporal string
			params   string
			created  int64
		)
		if err := rows.Scan(&q.Location.Name, &q.Location.Latitude, &q.Location.Longitude,
			&temporal, &q.Start, &q.End, &params, &created); err != nil {
			return nil, err
		}
		q.Temporal = models.Temporal(temporal)
		if params != "" {
			q.Parameters = models.ParseParameters(strings.Split(params, ","))
		}
		q.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, q)
	}
	return out, rows.Err()
}

// PruneQueries keeps only the newest keep rows.
func (s *Store) PruneQueries(keep int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM queries WHERE id NOT IN (SELECT id FROM queries ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
