package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFile is the dotenv file loaded before environment lookups. A missing
// file is not an error.
var envFile = ".env"

// parseEnv loads envFile into the process environment (without overriding
// variables that are already set) and then copies every USERHUB_* variable
// that is present into config. Malformed numeric values panic, like the
// JSON and flag loaders do.
//
// Durations are read with time.ParseDuration ("24h", "90m").
func parseEnv(config *Config) {
	_ = godotenv.Load(envFile)

	lookupString("USERHUB_HTTP_ADDR", &config.EndpointAddrHTTP)
	lookupString("USERHUB_GRPC_ADDR", &config.EndpointAddrGRPC)
	lookupString("USERHUB_DATABASE_DSN", &config.DatabaseDSN)
	lookupString("USERHUB_DATABASE_NAME", &config.DatabaseName)
	lookupString("USERHUB_SECRET_KEY", &config.SecretKey)
	lookupString("USERHUB_API_KEY", &config.APIKey)
	lookupDuration("USERHUB_SESSION_TOKEN_TTL", &config.SessionTokenValidityDuration)
	lookupDuration("USERHUB_RESET_TOKEN_TTL", &config.ResetTokenValidityDuration)
	lookupInt("USERHUB_BCRYPT_COST", &config.BcryptCost)
	lookupString("USERHUB_FRONTEND_URL", &config.FrontendBaseURL)
	lookupString("USERHUB_SMTP_HOST", &config.SMTPHost)
	lookupString("USERHUB_SMTP_USER", &config.SMTPUser)
	lookupString("USERHUB_SMTP_PASSWORD", &config.SMTPPassword)
	lookupString("USERHUB_MAIL_FROM", &config.MailFromAddress)
	lookupBool("USERHUB_SMTP_SKIP_VERIFY", &config.SMTPSkipVerify)
	lookupInt("USERHUB_MAIL_RATE_LIMIT", &config.MailRateLimit)
	lookupDuration("USERHUB_MAIL_RATE_LIMIT_PERIOD", &config.MailRateLimitPeriod)
	lookupString("USERHUB_REDIS_URL", &config.RedisURL)
	lookupString("USERHUB_S3_ROOT_USER", &config.S3RootUser)
	lookupString("USERHUB_S3_ROOT_PASSWORD", &config.S3RootPassword)
	lookupString("USERHUB_S3_BUCKET", &config.S3Bucket)
	lookupString("USERHUB_S3_REGION", &config.S3Region)
	lookupString("USERHUB_S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}

func lookupString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func lookupInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func lookupBool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(err)
	}
	*dst = b
}

func lookupDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
