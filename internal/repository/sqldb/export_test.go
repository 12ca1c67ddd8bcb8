package sqldb

// MaxOpenConns reports the pool limit applied by New.
func (db *DB) MaxOpenConns() int {
	return db.conn.Stats().MaxOpenConnections
}
