package migrations

import "embed"

// Files 暴露证明凭证与同意书表的 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
