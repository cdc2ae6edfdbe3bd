// Package redis backs the authentication challenge store and the proof
// artifact store with Redis. Challenges rely on key TTLs for expiry and are
// redeemed atomically by a Lua script; proofs are written once with SETNX.
package redis
