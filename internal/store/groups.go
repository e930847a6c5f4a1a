package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vpsdash/vpsdash/internal/core"
)

// Group validation error codes. The set is closed; callers switch on
// Code to map failures to user-facing responses.
const (
	CodeDuplicateName        = "DUPLICATE_NAME"
	CodeServerAlreadyGrouped = "SERVER_ALREADY_GROUPED"
	CodeInvalidGroup         = "INVALID_GROUP"
)

// GroupError is a validation failure for a group operation.
type GroupError struct {
	Code    string
	Message string
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsGroupError unwraps err into a *GroupError if it is one.
func AsGroupError(err error) (*GroupError, bool) {
	var ge *GroupError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// CreateGroup stores a new server group. Names are unique across groups.
func (s *Store) CreateGroup(ctx context.Context, name, description, color string) (*core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &GroupError{Code: CodeInvalidGroup, Message: "group name is required"}
	}

	now := time.Now().UTC()
	group := &core.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Color:       strings.TrimSpace(color),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO groups (id, name, description, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, group.ID, group.Name, group.Description, group.Color, now.Unix(), now.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, &GroupError{Code: CodeDuplicateName, Message: fmt.Sprintf("group %q already exists", name)}
		}
		return nil, fmt.Errorf("store group: %w", err)
	}

	return group, nil
}

// GetGroup returns the group matching the given id or name, or nil when
// no group matches.
func (s *Store) GetGroup(ctx context.Context, ref string) (*core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("group reference is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, description, color, created_at, updated_at
		FROM groups
		WHERE id = ? OR name = ?
	`, ref, ref)

	group, err := scanGroup(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch group: %w", err)
	}

	if err := s.loadGroupServers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroups returns all groups ordered by name, with member server IDs.
func (s *Store) ListGroups(ctx context.Context) ([]core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, description, color, created_at, updated_at
		FROM groups
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var groups []core.Group
	for rows.Next() {
		group, err := scanGroup(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		groups = append(groups, *group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	for i := range groups {
		if err := s.loadGroupServers(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

// UpdateGroup changes a group's name, description or color. Empty values
// leave the current field untouched.
func (s *Store) UpdateGroup(ctx context.Context, ref, name, description, color string) (*core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	group, err := s.GetGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, &GroupError{Code: CodeInvalidGroup, Message: fmt.Sprintf("group %q does not exist", ref)}
	}

	if name = strings.TrimSpace(name); name != "" {
		group.Name = name
	}
	if description = strings.TrimSpace(description); description != "" {
		group.Description = description
	}
	if color = strings.TrimSpace(color); color != "" {
		group.Color = color
	}
	group.UpdatedAt = time.Now().UTC()

	_, err = s.DB.ExecContext(ctx, `
		UPDATE groups SET name = ?, description = ?, color = ?, updated_at = ?
		WHERE id = ?
	`, group.Name, group.Description, group.Color, group.UpdatedAt.Unix(), group.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, &GroupError{Code: CodeDuplicateName, Message: fmt.Sprintf("group %q already exists", group.Name)}
		}
		return nil, fmt.Errorf("update group: %w", err)
	}

	return group, nil
}

// DeleteGroup removes a group and its memberships.
func (s *Store) DeleteGroup(ctx context.Context, ref string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	group, err := s.GetGroup(ctx, ref)
	if err != nil {
		return err
	}
	if group == nil {
		return &GroupError{Code: CodeInvalidGroup, Message: fmt.Sprintf("group %q does not exist", ref)}
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM group_servers WHERE group_id = ?`, group.ID); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, group.ID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// AddServersToGroup adds servers to a group. A server belongs to at most
// one group; attempting to add an already grouped server fails the whole
// call before anything is written.
func (s *Store) AddServersToGroup(ctx context.Context, ref string, serverIDs ...string) (*core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	group, err := s.GetGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, &GroupError{Code: CodeInvalidGroup, Message: fmt.Sprintf("group %q does not exist", ref)}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("group servers: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	for _, serverID := range serverIDs {
		serverID = strings.TrimSpace(serverID)
		if serverID == "" {
			continue
		}

		var owner string
		row := tx.QueryRowContext(ctx, `SELECT group_id FROM group_servers WHERE server_id = ?`, serverID)
		switch err := row.Scan(&owner); {
		case err == nil:
			if owner == group.ID {
				continue
			}
			return nil, &GroupError{
				Code:    CodeServerAlreadyGrouped,
				Message: fmt.Sprintf("server %s already belongs to another group", serverID),
			}
		case errors.Is(err, sql.ErrNoRows):
		default:
			return nil, fmt.Errorf("group servers: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO group_servers (server_id, group_id) VALUES (?, ?)
		`, serverID, group.ID); err != nil {
			return nil, fmt.Errorf("group servers: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE groups SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Unix(), group.ID); err != nil {
		return nil, fmt.Errorf("group servers: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("group servers: %w", err)
	}

	return s.GetGroup(ctx, group.ID)
}

// RemoveServersFromGroup removes servers from a group. Unknown members
// are ignored.
func (s *Store) RemoveServersFromGroup(ctx context.Context, ref string, serverIDs ...string) (*core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	group, err := s.GetGroup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, &GroupError{Code: CodeInvalidGroup, Message: fmt.Sprintf("group %q does not exist", ref)}
	}

	for _, serverID := range serverIDs {
		if _, err := s.DB.ExecContext(ctx, `
			DELETE FROM group_servers WHERE group_id = ? AND server_id = ?
		`, group.ID, strings.TrimSpace(serverID)); err != nil {
			return nil, fmt.Errorf("ungroup servers: %w", err)
		}
	}

	if _, err := s.DB.ExecContext(ctx, `UPDATE groups SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Unix(), group.ID); err != nil {
		return nil, fmt.Errorf("ungroup servers: %w", err)
	}

	return s.GetGroup(ctx, group.ID)
}

// GroupForServer returns the group a server belongs to, or nil.
func (s *Store) GroupForServer(ctx context.Context, serverID string) (*core.Group, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var groupID string
	row := s.DB.QueryRowContext(ctx, `SELECT group_id FROM group_servers WHERE server_id = ?`, strings.TrimSpace(serverID))
	if err := row.Scan(&groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup server group: %w", err)
	}

	return s.GetGroup(ctx, groupID)
}

func (s *Store) loadGroupServers(ctx context.Context, group *core.Group) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT server_id FROM group_servers WHERE group_id = ? ORDER BY server_id
	`, group.ID)
	if err != nil {
		return fmt.Errorf("load group members: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var serverIDs []string
	for rows.Next() {
		var serverID string
		if err := rows.Scan(&serverID); err != nil {
			return fmt.Errorf("load group members: %w", err)
		}
		serverIDs = append(serverIDs, serverID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load group members: %w", err)
	}

	group.ServerIDs = serverIDs
	return nil
}

func scanGroup(scan func(dest ...any) error) (*core.Group, error) {
	var (
		group       core.Group
		description sql.NullString
		color       sql.NullString
		createdAt   int64
		updatedAt   int64
	)

	if err := scan(&group.ID, &group.Name, &description, &color, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	group.Description = description.String
	group.Color = color.String
	group.CreatedAt = time.Unix(createdAt, 0).UTC()
	group.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &group, nil
}
