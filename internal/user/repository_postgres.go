package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id, name, gender, email, password_hash, street, apartment, city, zip, country, phone, is_admin, liked_products, version, created_at, updated_at`

	listUsersQuery      = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	countUsersQuery     = `SELECT COUNT(*) FROM users`

	insertUserQuery = `
		INSERT INTO users (id, name, gender, email, password_hash, street, apartment, city, zip, country, phone, is_admin, liked_products, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::text[], $14, $15, $16)
	`
	updatePasswordQuery = `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2,
			version = version + 1
		WHERE id = $3
		RETURNING ` + userColumns
	setLikedProductsQuery = `
		UPDATE users
		SET liked_products = $1::text[],
			updated_at = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING ` + userColumns
	deleteUserQuery     = `DELETE FROM users WHERE id = $1`
	deleteAllUsersQuery = `DELETE FROM users`

	emailConstraint = "users_email_key"
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	return r.getOne(ctx, getUserByIDQuery, id.Hex())
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, countUsersQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Version == 0 {
		user.Version = 1
	}

	_, err := r.db.ExecContext(ctx, insertUserQuery,
		user.ID.Hex(),
		user.Name,
		string(user.Gender),
		user.Email,
		user.PasswordHash,
		user.Street,
		user.Apartment,
		user.City,
		user.Zip,
		user.Country,
		user.Phone,
		user.IsAdmin,
		pq.Array(hexIDs(user.LikedProducts)),
		user.Version,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return User{}, classifyInsertError(err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string, at time.Time) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, updatePasswordQuery, hash, at, id.Hex()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update password: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) SetLikedProducts(ctx context.Context, id primitive.ObjectID, liked []primitive.ObjectID, version int64, at time.Time) (User, error) {
	row := r.db.QueryRowContext(ctx, setLikedProductsQuery, pq.Array(hexIDs(liked)), at, id.Hex(), version)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrVersionConflict
		}
		return User{}, fmt.Errorf("set liked products: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.db.ExecContext(ctx, deleteUserQuery, id.Hex())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteAllUsersQuery); err != nil {
		return fmt.Errorf("delete all users: %w", err)
	}
	return nil
}

func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		if pgErr.ConstraintName == emailConstraint {
			return ErrEmailExists
		}
		return ErrUserExists
	}
	return fmt.Errorf("insert user: %w", err)
}

func scanUser(scanner rowScanner) (User, error) {
	var (
		u      User
		id     string
		gender string
		liked  pq.StringArray
	)
	if err := scanner.Scan(
		&id,
		&u.Name,
		&gender,
		&u.Email,
		&u.PasswordHash,
		&u.Street,
		&u.Apartment,
		&u.City,
		&u.Zip,
		&u.Country,
		&u.Phone,
		&u.IsAdmin,
		&liked,
		&u.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return User{}, fmt.Errorf("stored id %q: %w", id, err)
	}
	u.ID = oid
	u.Gender = Gender(gender)

	u.LikedProducts = make([]primitive.ObjectID, 0, len(liked))
	for _, raw := range liked {
		pid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return User{}, fmt.Errorf("stored liked product %q: %w", raw, err)
		}
		u.LikedProducts = append(u.LikedProducts, pid)
	}
	return u, nil
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
