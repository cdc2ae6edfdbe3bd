// Package mysql persists proof artifacts and consent records in MySQL. It
// owns the embedded schema migrations and maps duplicate-key errors onto the
// conflict errors the proof registry and consent ledger retry on.
package mysql
