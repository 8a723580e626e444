package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sevatrust/seva-donations/internal/models"
	"github.com/sevatrust/seva-donations/internal/repository"
)

type usersRepo struct{ pool *pgxpool.Pool }

func NewUsers(pool *pgxpool.Pool) repository.Users {
	return &usersRepo{pool: pool}
}

const userCols = `id, username, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *usersRepo) Create(ctx context.Context, u models.User) (models.User, error) {
	out, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users(username, email, password_hash, role, is_active) VALUES($1,$2,$3,$4,$5) RETURNING `+userCols,
		u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive,
	))
	return out, mapErr(err, "user")
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	return u, mapErr(err, "user")
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email)=lower($1)`, email))
	return u, mapErr(err, "user")
}

func (r *usersRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT 100`)
	if err != nil {
		return nil, mapErr(err, "user")
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr(err, "user")
		}
		out = append(out, u)
	}
	return out, mapErr(rows.Err(), "user")
}

func (r *usersRepo) Update(ctx context.Context, u models.User) (models.User, error) {
	out, err := scanUser(r.pool.QueryRow(ctx,
		`UPDATE users
		    SET username=$2, email=$3, role=$4, is_active=$5,
		        password_hash=COALESCE(NULLIF($6, ''), password_hash), updated_at=now()
		  WHERE id=$1 RETURNING `+userCols,
		u.ID, u.Username, u.Email, u.Role, u.IsActive, u.PasswordHash,
	))
	return out, mapErr(err, "user")
}

func (r *usersRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "user")
	}
	return notFoundIfNone(tag, "user")
}
