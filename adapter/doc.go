// Package adapter provides backing stores for resource.Store.
//
// Memory keeps everything in memory and is intended mainly for testing.
// FileSystem keeps one directory per resource. S3 keeps one object per
// resource in an S3 bucket. NewQL and NewMySQL keep resources in a SQL
// table. NewWithPrefix mounts another adapter's tree under a sub-path, which
// allows several trees to share one backing store.
//
// All the adapters are goroutine safe and share the same notion of a valid
// path (see ValidPath). Apart from the SQL adapters, which also understand
// the "sql" language, queries are answered by scanning every resource and
// filtering with the query package.
package adapter
