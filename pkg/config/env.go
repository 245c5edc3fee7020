package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EventSinkLog   = "log"
	EventSinkRedis = "redis"
	EventSinkAMQP  = "amqp"

	EnvAppEnv       = "STAYREG_APP_ENV"
	EnvPort         = "STAYREG_APP_PORT"
	EnvDBDSN        = "STAYREG_DB_DSN"
	EnvDBDriver     = "STAYREG_DB_DRIVER"
	EnvDBHost       = "STAYREG_DB_HOST"
	EnvDBUser       = "STAYREG_DB_USER"
	EnvDBName       = "STAYREG_DB_NAME"
	EnvDBPassword   = "STAYREG_DB_PASSWORD"
	EnvRedisURL     = "STAYREG_REDIS_URL"
	EnvJWTSecret    = "STAYREG_JWT_SECRET"
	EnvJWTIssuer    = "STAYREG_JWT_ISSUER"
	EnvJWTExpMins   = "STAYREG_JWT_EXPIRATION_MINUTES"
	EnvBookingID    = "STAYREG_BOOKING_IDENTITY"
	EnvEventsSink   = "STAYREG_EVENTS_SINK"
	EnvOutboxPollMS = "STAYREG_OUTBOX_PUBLISH_POLL_MS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
