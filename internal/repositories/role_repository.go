package repositories

import (
	"database/sql"
	"fmt"
)

// RoleRepository reads and writes role assignments. An account with a NULL
// role_id has no assignment at all, which is different from a lookup failure.
type RoleRepository interface {
	GetRoleByUserID(userID int) (roleID int, assigned bool, err error)
	AssignRole(userID, roleID int) error
	ClearRole(userID int) error
}

type roleRepository struct {
	DB *sql.DB
}

func NewRoleRepository(db *sql.DB) RoleRepository {
	return &roleRepository{DB: db}
}

func (r *roleRepository) GetRoleByUserID(userID int) (int, bool, error) {
	var roleID sql.NullInt64
	err := r.DB.QueryRow(`SELECT role_id FROM users WHERE id = $1`, userID).Scan(&roleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get role by user id: %w", err)
	}
	if !roleID.Valid {
		return 0, false, nil
	}
	return int(roleID.Int64), true, nil
}

func (r *roleRepository) AssignRole(userID, roleID int) error {
	if _, err := r.DB.Exec(`UPDATE users SET role_id=$1 WHERE id=$2`, roleID, userID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (r *roleRepository) ClearRole(userID int) error {
	if _, err := r.DB.Exec(`UPDATE users SET role_id=NULL WHERE id=$1`, userID); err != nil {
		return fmt.Errorf("clear role: %w", err)
	}
	return nil
}
