package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fresh-tomatoes/catalog-api/internal/domain"
)

// ReviewsRepository provides persistence helpers for reviews.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

const reviewColumns = `
    rv.id,
    rv.user_id,
    u.username,
    rv.movie_id,
    m.title,
    rv.user_rating,
    rv.comment,
    rv.created_at,
    rv.updated_at
`

const reviewFrom = ` FROM reviews rv
    JOIN users u ON u.id = rv.user_id
    JOIN movies m ON m.id = rv.movie_id`

// ReviewUpsertParams captures a validated review write request.
type ReviewUpsertParams struct {
	UserID     int64
	MovieID    int64
	UserRating float64
	Comment    string
	Overwrite  bool
}

// ReviewOrdering sorts a review listing by rating value.
type ReviewOrdering struct {
	Desc bool
}

// ReviewListFilters restricts a review listing. An exact identifier
// match takes precedence over the corresponding name filter.
type ReviewListFilters struct {
	MovieID    *int64
	MovieTitle *string
	UserID     *int64
	Username   *string
	OrderBy    *ReviewOrdering
	Page       int
	PageSize   int
}

// ReviewListResult returns one page of reviews plus the total count.
type ReviewListResult struct {
	Items []domain.Review
	Total int64
}

// ReviewUpdateParams carries optional in-place changes to a review.
type ReviewUpdateParams struct {
	UserRating *float64
	Comment    *string
}

// Upsert enforces at-most-one review per (user, movie). With Overwrite
// unset an existing review wins: it is returned unchanged alongside
// ErrConflict. With Overwrite set the existing row is updated in place.
// The uniqueness constraint on (user_id, movie_id) guards the
// check-then-act race: a concurrent duplicate insert lands on the
// conflict path instead of creating a second row.
func (r *ReviewsRepository) Upsert(ctx context.Context, params ReviewUpsertParams) (domain.Review, bool, error) {
	if !params.Overwrite {
		var id int64
		err := r.pool.QueryRow(ctx, `
            INSERT INTO reviews (user_id, movie_id, user_rating, comment)
            VALUES ($1,$2,$3,$4)
            ON CONFLICT (user_id, movie_id) DO NOTHING
            RETURNING id
        `, params.UserID, params.MovieID, params.UserRating, params.Comment).Scan(&id)
		if err != nil {
			if err == pgx.ErrNoRows {
				existing, gerr := r.GetByUserMovie(ctx, params.UserID, params.MovieID)
				if gerr != nil {
					return domain.Review{}, false, gerr
				}
				return existing, false, ErrConflict
			}
			if pgErrCode(err) == pgForeignKeyViolation {
				return domain.Review{}, false, ErrNotFound
			}
			return domain.Review{}, false, err
		}
		review, err := r.Get(ctx, id)
		return review, true, err
	}

	var id int64
	var inserted bool
	err := r.pool.QueryRow(ctx, `
        INSERT INTO reviews (user_id, movie_id, user_rating, comment)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id, movie_id)
        DO UPDATE SET user_rating = EXCLUDED.user_rating,
                      comment = EXCLUDED.comment,
                      updated_at = now()
        RETURNING id, (xmax = 0) AS inserted
    `, params.UserID, params.MovieID, params.UserRating, params.Comment).Scan(&id, &inserted)
	if err != nil {
		if pgErrCode(err) == pgForeignKeyViolation {
			return domain.Review{}, false, ErrNotFound
		}
		return domain.Review{}, false, err
	}
	review, err := r.Get(ctx, id)
	return review, inserted, err
}

// Get fetches a review with its owner and movie summaries.
func (r *ReviewsRepository) Get(ctx context.Context, id int64) (domain.Review, error) {
	query := "SELECT " + reviewColumns + reviewFrom + " WHERE rv.id = $1"
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// GetByUserMovie fetches the unique review for a (user, movie) pair.
func (r *ReviewsRepository) GetByUserMovie(ctx context.Context, userID, movieID int64) (domain.Review, error) {
	query := "SELECT " + reviewColumns + reviewFrom + " WHERE rv.user_id = $1 AND rv.movie_id = $2"
	review, err := scanReview(r.pool.QueryRow(ctx, query, userID, movieID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}
	return review, nil
}

// List returns reviews matching the filters, ordered by rating when
// requested and by ascending identity otherwise.
func (r *ReviewsRepository) List(ctx context.Context, filters ReviewListFilters) (ReviewListResult, error) {
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	size := filters.PageSize
	if size <= 0 {
		size = 20
	} else if size > 100 {
		size = 100
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case filters.MovieID != nil:
		where = append(where, fmt.Sprintf("rv.movie_id = %s", arg(*filters.MovieID)))
	case filters.MovieTitle != nil && strings.TrimSpace(*filters.MovieTitle) != "":
		where = append(where, fmt.Sprintf("m.title ILIKE %s", arg(containsPattern(*filters.MovieTitle))))
	}
	switch {
	case filters.UserID != nil:
		where = append(where, fmt.Sprintf("rv.user_id = %s", arg(*filters.UserID)))
	case filters.Username != nil && strings.TrimSpace(*filters.Username) != "":
		where = append(where, fmt.Sprintf("u.username ILIKE %s", arg(containsPattern(*filters.Username))))
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*)"+reviewFrom+whereSQL, args...).Scan(&total); err != nil {
		return ReviewListResult{}, fmt.Errorf("count reviews: %w", err)
	}

	order := " ORDER BY rv.id ASC"
	if filters.OrderBy != nil {
		if filters.OrderBy.Desc {
			order = " ORDER BY rv.user_rating DESC, rv.id ASC"
		} else {
			order = " ORDER BY rv.user_rating ASC, rv.id ASC"
		}
	}

	query := "SELECT " + reviewColumns + reviewFrom + whereSQL + order +
		fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return ReviewListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return ReviewListResult{}, err
		}
		items = append(items, review)
	}
	if err := rows.Err(); err != nil {
		return ReviewListResult{}, err
	}
	return ReviewListResult{Items: items, Total: total}, nil
}

// Update applies in-place changes to a review's rating and comment. The
// movie reference is immutable and has no update path here.
func (r *ReviewsRepository) Update(ctx context.Context, id int64, params ReviewUpdateParams) (domain.Review, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE reviews
        SET user_rating = COALESCE($2, user_rating),
            comment = COALESCE($3, comment),
            updated_at = now()
        WHERE id = $1
    `, id, params.UserRating, params.Comment)
	if err != nil {
		return domain.Review{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Review{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a review.
func (r *ReviewsRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUserMovie reports how many reviews exist for a pair; the
// uniqueness constraint keeps this at zero or one.
func (r *ReviewsRepository) CountByUserMovie(ctx context.Context, userID, movieID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1 AND movie_id = $2`,
		userID, movieID).Scan(&count)
	return count, err
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.Username,
		&review.MovieID,
		&review.MovieTitle,
		&review.UserRating,
		&review.Comment,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	return review, nil
}
