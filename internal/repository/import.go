package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MovieImport is one catalog ingestion entry. Reference entities are
// carried by name and resolved get-or-create; a nil rating tag maps to
// "Unrated".
type MovieImport struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Rating     *string  `json:"rating"`
	Runtime    *int     `json:"runtime"`
	Poster     *string  `json:"poster"`
	UserRating float64  `json:"userRating"`
	Votes      int64    `json:"votes"`
	Genres     []string `json:"genres"`
	Directors  []string `json:"directors"`
	Cast       []string `json:"cast"`
}

// Import ingests one entry, skipping identifiers already present so the
// loader stays idempotent. Returns whether the movie was created.
func (r *MoviesRepository) Import(ctx context.Context, entry MovieImport) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, entry.ID).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	ratingName := "Unrated"
	if entry.Rating != nil {
		ratingName = *entry.Rating
	}
	ratingID, err := ensureRatingTag(ctx, tx, ratingName)
	if err != nil {
		return false, err
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO movies (id, title, year, runtime, poster, rating_id, user_rating, votes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    `, entry.ID, entry.Title, entry.Year, entry.Runtime, entry.Poster, ratingID, entry.UserRating, entry.Votes); err != nil {
		return false, fmt.Errorf("insert movie %d: %w", entry.ID, err)
	}

	for _, name := range entry.Genres {
		genreID, err := ensureGenre(ctx, tx, name)
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			entry.ID, genreID); err != nil {
			return false, err
		}
	}
	for _, name := range entry.Directors {
		celebID, err := ensureCelebrity(ctx, tx, name)
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO movie_directors (movie_id, celebrity_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			entry.ID, celebID); err != nil {
			return false, err
		}
	}
	for _, name := range entry.Cast {
		celebID, err := ensureCelebrity(ctx, tx, name)
		if err != nil {
			return false, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO movie_cast (movie_id, celebrity_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			entry.ID, celebID); err != nil {
			return false, err
		}
	}

	// Explicit-id inserts leave the sequence behind; keep it ahead of
	// the highest id so catalog writes don't collide.
	if _, err := tx.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('movies','id'), (SELECT MAX(id) FROM movies))`); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func ensureRatingTag(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
        INSERT INTO ratings (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id
    `, name).Scan(&id)
	return id, err
}

func ensureGenre(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
        INSERT INTO genres (name) VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id
    `, name).Scan(&id)
	return id, err
}

// ensureCelebrity deduplicates by name even though the schema allows
// homonyms for admin-created entries.
func ensureCelebrity(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM celebrities WHERE name = $1 ORDER BY id LIMIT 1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, err
	}
	err = tx.QueryRow(ctx, `INSERT INTO celebrities (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	return id, err
}
