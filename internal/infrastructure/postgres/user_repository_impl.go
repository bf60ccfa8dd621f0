package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-private-messages/internal/domain/entity"
	"github.com/oksasatya/go-ddd-private-messages/internal/domain/repository"
	"github.com/oksasatya/go-ddd-private-messages/pkg/users"
)

// UserRepository reads users from the table of the active user model.
type UserRepository struct {
	db    DB
	model users.Model
}

func NewUserRepository(db DB, model users.Model) *UserRepository {
	return &UserRepository{db: db, model: model}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// userColumns selects a user row with alias prefix (e.g. "u.").
func userColumns(m users.Model, alias string) string {
	return fmt.Sprintf("%[1]sid, %[1]s%[2]s, %[1]s%[3]s, %[1]spassword_hash, %[1]sname, %[1]screated_at, %[1]supdated_at",
		alias, ident(m.UsernameField), ident(m.EmailField))
}

func (r *UserRepository) selectBy(column string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", userColumns(r.model, ""), ident(r.model.Table), column)
}

func (r *UserRepository) scan(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isNotFound(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.scan(r.db.QueryRow(ctx, r.selectBy("id"), id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.scan(r.db.QueryRow(ctx, r.selectBy(ident(r.model.EmailField)), email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.scan(r.db.QueryRow(ctx, r.selectBy(ident(r.model.UsernameField)), username))
}

// Create inserts a user into the legacy-shaped table; used by the seed command.
func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	q := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, password_hash, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at, updated_at`,
		ident(r.model.Table), ident(r.model.UsernameField), ident(r.model.EmailField), ident(r.model.EmailField))
	return r.db.QueryRow(ctx, q, u.Username, u.Email, u.Password, u.Name).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

var _ repository.UserRepository = (*UserRepository)(nil)
