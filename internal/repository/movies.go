package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fresh-tomatoes/catalog-api/internal/domain"
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
    m.id,
    m.title,
    m.year,
    m.runtime,
    m.poster,
    m.user_rating,
    m.votes,
    m.created_at,
    m.updated_at,
    rt.id,
    rt.name
`

const movieFrom = ` FROM movies m LEFT JOIN ratings rt ON rt.id = m.rating_id`

// MovieOrderField is a sortable column from the ordering allow-list.
type MovieOrderField string

const (
	OrderYear       MovieOrderField = "year"
	OrderUserRating MovieOrderField = "user_rating"
	OrderRuntime    MovieOrderField = "runtime"
	OrderVotes      MovieOrderField = "votes"
)

// MovieOrdering is an explicit ordering decision threaded through the
// filter pipeline. A nil ordering means ascending identity.
type MovieOrdering struct {
	Field MovieOrderField
	Desc  bool
}

// MovieListFilters encapsulates catalog query parameters. All string
// filters are case-insensitive substring matches composed with AND.
// When Search is set it owns the result ordering and OrderBy is ignored.
type MovieListFilters struct {
	Title     *string
	Genre     *string
	Cast      *string
	Director  *string
	Rating    *string
	Year      *int
	YearStart *int
	YearEnd   *int
	Search    *string
	OrderBy   *MovieOrdering
	Page      int
	PageSize  int
}

// MovieListResult returns one page of the filtered catalog plus the
// total number of matches.
type MovieListResult struct {
	Items []domain.Movie
	Total int64
}

// MovieCreateParams bundles the fields required to create a movie.
// Reference sets are plain identifiers, already normalized from the
// wire form.
type MovieCreateParams struct {
	Title       string
	Year        int
	Runtime     *int
	Poster      *string
	RatingID    *int64
	GenreIDs    []int64
	DirectorIDs []int64
	CastIDs     []int64
	UserRating  float64
	Votes       int64
}

// MovieUpdateParams carries optional replacements for a movie. Nil
// fields are left untouched; non-nil reference sets replace the whole
// set.
type MovieUpdateParams struct {
	Title       *string
	Year        *int
	Runtime     *int
	Poster      *string
	RatingID    *int64
	GenreIDs    *[]int64
	DirectorIDs *[]int64
	CastIDs     *[]int64
	UserRating  *float64
	Votes       *int64
}

// List returns movies matching the provided filters in a deterministic
// order: search relevance when a search term is present, the requested
// ordering column otherwise, ascending identity by default.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
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

	if filters.Title != nil && strings.TrimSpace(*filters.Title) != "" {
		where = append(where, fmt.Sprintf("m.title ILIKE %s", arg(containsPattern(*filters.Title))))
	}
	if filters.Genre != nil && strings.TrimSpace(*filters.Genre) != "" {
		where = append(where, fmt.Sprintf(`EXISTS (
            SELECT 1 FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
            WHERE mg.movie_id = m.id AND g.name ILIKE %s)`, arg(containsPattern(*filters.Genre))))
	}
	if filters.Cast != nil && strings.TrimSpace(*filters.Cast) != "" {
		where = append(where, fmt.Sprintf(`EXISTS (
            SELECT 1 FROM movie_cast mc JOIN celebrities c ON c.id = mc.celebrity_id
            WHERE mc.movie_id = m.id AND c.name ILIKE %s)`, arg(containsPattern(*filters.Cast))))
	}
	if filters.Director != nil && strings.TrimSpace(*filters.Director) != "" {
		where = append(where, fmt.Sprintf(`EXISTS (
            SELECT 1 FROM movie_directors md JOIN celebrities c ON c.id = md.celebrity_id
            WHERE md.movie_id = m.id AND c.name ILIKE %s)`, arg(containsPattern(*filters.Director))))
	}
	if filters.Rating != nil && strings.TrimSpace(*filters.Rating) != "" {
		where = append(where, fmt.Sprintf("rt.name ILIKE %s", arg(containsPattern(*filters.Rating))))
	}
	if filters.Year != nil {
		where = append(where, fmt.Sprintf("m.year = %s", arg(*filters.Year)))
	} else {
		if filters.YearStart != nil {
			where = append(where, fmt.Sprintf("m.year >= %s", arg(*filters.YearStart)))
		}
		if filters.YearEnd != nil {
			where = append(where, fmt.Sprintf("m.year <= %s", arg(*filters.YearEnd)))
		}
	}

	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		ids, err := r.searchIDs(ctx, where, args, strings.TrimSpace(*filters.Search))
		if err != nil {
			return MovieListResult{}, err
		}
		total := int64(len(ids))
		ids = pageSlice(ids, page, size)
		items, err := r.listByIDs(ctx, ids)
		if err != nil {
			return MovieListResult{}, err
		}
		return MovieListResult{Items: items, Total: total}, nil
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*)" + movieFrom + whereSQL
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return MovieListResult{}, fmt.Errorf("count movies: %w", err)
	}

	query := "SELECT " + movieColumns + movieFrom + whereSQL +
		orderClause(filters.OrderBy) +
		fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return MovieListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return MovieListResult{}, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return MovieListResult{}, err
	}

	if err := r.loadAssociations(ctx, items); err != nil {
		return MovieListResult{}, err
	}
	return MovieListResult{Items: items, Total: total}, nil
}

// searchIDs implements relevance ordering: ids matching the term on the
// title come first, then cast-name matches not already collected, then
// director-name matches, each group in ascending identity order.
func (r *MoviesRepository) searchIDs(ctx context.Context, where []string, args []interface{}, term string) ([]int64, error) {
	baseWhere := strings.Join(where, " AND ")
	pattern := containsPattern(term)
	searchArg := fmt.Sprintf("$%d", len(args)+1)
	searchArgs := append(append([]interface{}{}, args...), pattern)

	matchConds := []string{
		fmt.Sprintf("m.title ILIKE %s", searchArg),
		fmt.Sprintf(`EXISTS (
            SELECT 1 FROM movie_cast mc JOIN celebrities c ON c.id = mc.celebrity_id
            WHERE mc.movie_id = m.id AND c.name ILIKE %s)`, searchArg),
		fmt.Sprintf(`EXISTS (
            SELECT 1 FROM movie_directors md JOIN celebrities c ON c.id = md.celebrity_id
            WHERE md.movie_id = m.id AND c.name ILIKE %s)`, searchArg),
	}

	seen := make(map[int64]struct{})
	merged := make([]int64, 0)
	for _, cond := range matchConds {
		conds := cond
		if baseWhere != "" {
			conds = baseWhere + " AND " + cond
		}
		query := "SELECT m.id" + movieFrom + " WHERE " + conds + " ORDER BY m.id ASC"
		rows, err := r.pool.Query(ctx, query, searchArgs...)
		if err != nil {
			return nil, fmt.Errorf("search movies: %w", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				merged = append(merged, id)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return merged, nil
}

// listByIDs fetches full movie entities preserving the order of ids.
func (r *MoviesRepository) listByIDs(ctx context.Context, ids []int64) ([]domain.Movie, error) {
	if len(ids) == 0 {
		return []domain.Movie{}, nil
	}
	query := "SELECT " + movieColumns + movieFrom + " WHERE m.id = ANY($1)"
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]domain.Movie, len(ids))
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		byID[movie.ID] = movie
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]domain.Movie, 0, len(ids))
	for _, id := range ids {
		if movie, ok := byID[id]; ok {
			items = append(items, movie)
		}
	}
	if err := r.loadAssociations(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	query := "SELECT " + movieColumns + movieFrom + " WHERE m.id = $1"
	row := r.pool.QueryRow(ctx, query, id)
	movie, err := scanMovie(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	items := []domain.Movie{movie}
	if err := r.loadAssociations(ctx, items); err != nil {
		return domain.Movie{}, err
	}
	return items[0], nil
}

// Create inserts a new movie with its reference sets and returns the
// stored entity.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (domain.Movie, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Movie{}, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
        INSERT INTO movies (title, year, runtime, poster, rating_id, user_rating, votes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id
    `, params.Title, params.Year, params.Runtime, params.Poster, params.RatingID, params.UserRating, params.Votes).Scan(&id)
	if err != nil {
		switch pgErrCode(err) {
		case pgForeignKeyViolation:
			return domain.Movie{}, ErrInvalidReference
		case pgCheckViolation:
			return domain.Movie{}, ErrInvalidValue
		}
		return domain.Movie{}, err
	}

	if err := replaceMovieSet(ctx, tx, "movie_genres", "genre_id", id, params.GenreIDs); err != nil {
		return domain.Movie{}, err
	}
	if err := replaceMovieSet(ctx, tx, "movie_directors", "celebrity_id", id, params.DirectorIDs); err != nil {
		return domain.Movie{}, err
	}
	if err := replaceMovieSet(ctx, tx, "movie_cast", "celebrity_id", id, params.CastIDs); err != nil {
		return domain.Movie{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Movie{}, err
	}
	return r.GetByID(ctx, id)
}

// Update applies the provided fields to an existing movie. Reference
// sets, when present, replace the stored set wholesale.
func (r *MoviesRepository) Update(ctx context.Context, id int64, params MovieUpdateParams) (domain.Movie, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Movie{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE movies
        SET title = COALESCE($2, title),
            year = COALESCE($3, year),
            runtime = COALESCE($4, runtime),
            poster = COALESCE($5, poster),
            rating_id = COALESCE($6, rating_id),
            user_rating = COALESCE($7, user_rating),
            votes = COALESCE($8, votes),
            updated_at = now()
        WHERE id = $1
    `, id, params.Title, params.Year, params.Runtime, params.Poster, params.RatingID, params.UserRating, params.Votes)
	if err != nil {
		switch pgErrCode(err) {
		case pgForeignKeyViolation:
			return domain.Movie{}, ErrInvalidReference
		case pgCheckViolation:
			return domain.Movie{}, ErrInvalidValue
		}
		return domain.Movie{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Movie{}, ErrNotFound
	}

	type setUpdate struct {
		table  string
		column string
		ids    *[]int64
	}
	for _, u := range []setUpdate{
		{"movie_genres", "genre_id", params.GenreIDs},
		{"movie_directors", "celebrity_id", params.DirectorIDs},
		{"movie_cast", "celebrity_id", params.CastIDs},
	} {
		if u.ids == nil {
			continue
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE movie_id = $1", u.table), id); err != nil {
			return domain.Movie{}, err
		}
		if err := replaceMovieSet(ctx, tx, u.table, u.column, id, *u.ids); err != nil {
			return domain.Movie{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Movie{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a movie; dependent reviews cascade at the store level.
func (r *MoviesRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyReviewRating folds a newly accepted review rating into the
// movie's running aggregate. The read-modify-write happens in a single
// statement so concurrent reviews of the same movie cannot drop an
// update.
func (r *MoviesRepository) ApplyReviewRating(ctx context.Context, movieID int64, rating float64) (float64, int64, error) {
	const query = `
        UPDATE movies
        SET user_rating = round(((user_rating * votes + $2) / (votes + 1))::numeric, 4),
            votes = votes + 1,
            updated_at = now()
        WHERE id = $1
        RETURNING user_rating, votes
    `
	var avg float64
	var votes int64
	err := r.pool.QueryRow(ctx, query, movieID, rating).Scan(&avg, &votes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, 0, ErrNotFound
		}
		return 0, 0, fmt.Errorf("apply review rating: %w", err)
	}
	return avg, votes, nil
}

func (r *MoviesRepository) loadAssociations(ctx context.Context, movies []domain.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(movies))
	index := make(map[int64]int, len(movies))
	for i, m := range movies {
		ids = append(ids, m.ID)
		index[m.ID] = i
		movies[i].Genres = []domain.NamedRef{}
		movies[i].Directors = []domain.NamedRef{}
		movies[i].Cast = []domain.NamedRef{}
	}

	type assoc struct {
		query  string
		append func(i int, ref domain.NamedRef)
	}
	assocs := []assoc{
		{
			query: `SELECT mg.movie_id, g.id, g.name
                    FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
                    WHERE mg.movie_id = ANY($1) ORDER BY g.id ASC`,
			append: func(i int, ref domain.NamedRef) { movies[i].Genres = append(movies[i].Genres, ref) },
		},
		{
			query: `SELECT md.movie_id, c.id, c.name
                    FROM movie_directors md JOIN celebrities c ON c.id = md.celebrity_id
                    WHERE md.movie_id = ANY($1) ORDER BY c.id ASC`,
			append: func(i int, ref domain.NamedRef) { movies[i].Directors = append(movies[i].Directors, ref) },
		},
		{
			query: `SELECT mc.movie_id, c.id, c.name
                    FROM movie_cast mc JOIN celebrities c ON c.id = mc.celebrity_id
                    WHERE mc.movie_id = ANY($1) ORDER BY c.id ASC`,
			append: func(i int, ref domain.NamedRef) { movies[i].Cast = append(movies[i].Cast, ref) },
		},
	}

	for _, a := range assocs {
		rows, err := r.pool.Query(ctx, a.query, ids)
		if err != nil {
			return fmt.Errorf("load movie associations: %w", err)
		}
		for rows.Next() {
			var movieID int64
			var ref domain.NamedRef
			if err := rows.Scan(&movieID, &ref.ID, &ref.Name); err != nil {
				rows.Close()
				return err
			}
			if i, ok := index[movieID]; ok {
				a.append(i, ref)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
	}
	return nil
}

func replaceMovieSet(ctx context.Context, tx pgx.Tx, table, column string, movieID int64, ids []int64) error {
	for _, refID := range ids {
		query := fmt.Sprintf(
			"INSERT INTO %s (movie_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING", table, column)
		if _, err := tx.Exec(ctx, query, movieID, refID); err != nil {
			if pgErrCode(err) == pgForeignKeyViolation {
				return ErrInvalidReference
			}
			return err
		}
	}
	return nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		movie      domain.Movie
		runtime    *int
		poster     *string
		createdAt  time.Time
		updatedAt  time.Time
		ratingID   *int64
		ratingName *string
	)

	err := row.Scan(
		&movie.ID,
		&movie.Title,
		&movie.Year,
		&runtime,
		&poster,
		&movie.UserRating,
		&movie.Votes,
		&createdAt,
		&updatedAt,
		&ratingID,
		&ratingName,
	)
	if err != nil {
		return domain.Movie{}, err
	}

	movie.Runtime = runtime
	movie.Poster = poster
	movie.CreatedAt = createdAt
	movie.UpdatedAt = updatedAt
	if ratingID != nil && ratingName != nil {
		movie.Rating = &domain.NamedRef{ID: *ratingID, Name: *ratingName}
	}
	return movie, nil
}

func orderClause(ordering *MovieOrdering) string {
	if ordering == nil {
		return " ORDER BY m.id ASC"
	}
	dir := "ASC"
	if ordering.Desc {
		dir = "DESC"
	}
	// Field comes from the allow-list, never from raw input.
	return fmt.Sprintf(" ORDER BY m.%s %s, m.id ASC", ordering.Field, dir)
}

func containsPattern(value string) string {
	return "%" + strings.TrimSpace(value) + "%"
}

func pageSlice(ids []int64, page, size int) []int64 {
	start := (page - 1) * size
	if start >= len(ids) {
		return nil
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end]
}
