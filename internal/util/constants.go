package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// gin.Context 中的键
const (
	RequestIDKey = "request_id"
	UserKey      = "user"
)
