// Package repository implements the durable stores behind the reservation
// flow.  MySQL implementations are the production path; the Memory*
// implementations provide the same compare-and-swap semantics in-process
// for tests and single-node demo runs.
//
// Sentinel values let higher layers distinguish a missing row from a lost
// conditional update without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by key yields no rows.
var ErrNotFound = errors.New("not found")

// ErrStateConflict is returned when a conditional update matched the row
// key but not the expected current state, i.e. another writer won.
var ErrStateConflict = errors.New("state conflict")

// ErrConflict is returned when an insert collides with an existing key.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate entry error (1062).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// placeholders returns "?,?,?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// dedupe returns ids without duplicates or empty strings, keeping order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
