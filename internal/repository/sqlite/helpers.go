package sqlite

import (
	"database/sql"
	"fmt"

	"linkwatch/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Device Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between:
// - deviceColumns constant
// - scanArgs() return slice

const deviceColumns = `name, kind, address, username, password, transport, port`

// deviceRow holds all columns from a device query for scanning
type deviceRow struct {
	Name      string
	Kind      string
	Address   string
	Username  sql.NullString
	Password  sql.NullString
	Transport sql.NullString
	Port      int
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *deviceRow) scanArgs() []interface{} {
	return []interface{}{
		&r.Name,
		&r.Kind,
		&r.Address,
		&r.Username,
		&r.Password,
		&r.Transport,
		&r.Port,
	}
}

// toDomain converts the row to a domain.Device
func (r *deviceRow) toDomain() (domain.Device, error) {
	kind, err := domain.ParseDeviceKind(r.Kind)
	if err != nil {
		return domain.Device{}, fmt.Errorf("device %s: %w", r.Name, err)
	}

	d := domain.Device{
		Name:      r.Name,
		Kind:      kind,
		Address:   r.Address,
		Transport: domain.Transport(nullToString(r.Transport)),
		Port:      r.Port,
	}
	if r.Username.Valid {
		d.Credentials = &domain.Credentials{
			Username: r.Username.String,
			Password: nullToString(r.Password),
		}
	}
	return d, nil
}

// deviceInsertArgs returns the INSERT arguments for a device at position ord
func deviceInsertArgs(d domain.Device, ord int) []interface{} {
	var username, password sql.NullString
	if d.Credentials != nil {
		username = stringToNull(d.Credentials.Username)
		password = stringToNull(d.Credentials.Password)
	}
	return []interface{}{
		d.Name,
		string(d.Kind),
		d.Address,
		username,
		password,
		stringToNull(string(d.Transport)),
		d.Port,
		ord,
	}
}
