package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedConn answers every Exec through a test-supplied function.  It
// supports nothing else.
type scriptedConn struct {
	mu    sync.Mutex
	execs []string
	args  [][]driver.NamedValue
	exec  func(n int, query string) (driver.Result, error)
}

func (c *scriptedConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare unsupported") }
func (c *scriptedConn) Close() error                        { return nil }
func (c *scriptedConn) Begin() (driver.Tx, error)           { return nil, errors.New("tx unsupported") }

func (c *scriptedConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	n := len(c.execs)
	c.execs = append(c.execs, query)
	c.args = append(c.args, args)
	c.mu.Unlock()
	return c.exec(n, query)
}

type scriptedConnector struct{ conn *scriptedConn }

func (s scriptedConnector) Connect(context.Context) (driver.Conn, error) { return s.conn, nil }
func (s scriptedConnector) Driver() driver.Driver                       { return scriptedDriver{} }

type scriptedDriver struct{}

func (scriptedDriver) Open(string) (driver.Conn, error) { return nil, errors.New("open through the connector") }

var errRowsAffected = errors.New("rows affected unavailable")

type unreadableResult struct{}

func (unreadableResult) LastInsertId() (int64, error) { return 0, nil }
func (unreadableResult) RowsAffected() (int64, error) { return 0, errRowsAffected }

func isUnlock(query string) bool {
	return strings.Contains(query, "SET state = 'available'")
}

func TestSeatRepo_TryLockUnreadableResult(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, undoErr error) (*scriptedConn, error) {
		conn := &scriptedConn{exec: func(n int, query string) (driver.Result, error) {
			switch {
			case isUnlock(query):
				if undoErr != nil {
					return nil, undoErr
				}
				return driver.RowsAffected(2), nil
			case n == 0:
				return driver.RowsAffected(1), nil
			default:
				return unreadableResult{}, nil
			}
		}}
		db := sql.OpenDB(scriptedConnector{conn: conn})
		t.Cleanup(func() { _ = db.Close() })

		locked, failed, err := NewSeatRepo(db).TryLock(ctx, "ev1", []string{"A1", "A2"}, "hold-1")
		assert.Nil(t, locked)
		assert.Nil(t, failed)
		return conn, err
	}

	t.Run("compensation failure is reported", func(t *testing.T) {
		undo := errors.New("unlock failed")
		conn, err := run(t, undo)
		assert.ErrorIs(t, err, undo)
		require.Len(t, conn.execs, 3)
		assert.True(t, isUnlock(conn.execs[2]))
	})

	t.Run("seat with unknown outcome is released too", func(t *testing.T) {
		conn, err := run(t, nil)
		assert.ErrorIs(t, err, errRowsAffected)
		require.Len(t, conn.execs, 3)
		require.True(t, isUnlock(conn.execs[2]))

		var labels []any
		for _, a := range conn.args[2][3:] {
			labels = append(labels, a.Value)
		}
		assert.Equal(t, []any{"A1", "A2"}, labels)
	})
}
