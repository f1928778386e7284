//go:build sqlite_vec && cgo

package blackboard

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// Registers the sqlite-vec extension with the sqlite3 driver so vec0
// functions are available on every connection. The
// archived_memory.embedding column itself stays a plain BLOB, and no
// query in this package uses vec0. Gated behind the sqlite_vec build tag
// so a default build (no cgo) still compiles.
func init() {
	vec.Auto()
}
