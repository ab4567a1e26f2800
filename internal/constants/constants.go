package constants

const (
	//分頁
	DefaultPagingLimit int = 20
	MaxPagingLimit     int = 100
)

// http header
const (
	HeaderUserID        = "X-User-ID"
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
)

// for api auth
type ContextKey string

const (
	CallerAuthKey ContextKey = "caller_auth"
	RequestIDKey  ContextKey = "request_id"
)

const (
	OrderCreatedTopic = "order.created"
	EventTypeHeader   = "event_type"
)
