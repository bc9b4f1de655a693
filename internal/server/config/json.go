package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/userhub/internal/flagx"
	"github.com/dmitrijs2005/userhub/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// Interval fields use timex.Duration, which accepts both strings such as "24h"
// and integer nanoseconds.
//
// Pointer fields distinguish "absent" from "zero", so a partial file only
// overrides the keys it actually contains.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	DatabaseName                 *string         `json:"database_name"`
	SecretKey                    *string         `json:"secret_key"`
	APIKey                       *string         `json:"api_key"`
	SessionTokenValidityDuration *timex.Duration `json:"session_token_validity_duration"`
	ResetTokenValidityDuration   *timex.Duration `json:"reset_token_validity_duration"`
	BcryptCost                   *int            `json:"bcrypt_cost"`
	FrontendBaseURL              *string         `json:"frontend_base_url"`
	SMTPHost                     *string         `json:"smtp_host"`
	SMTPUser                     *string         `json:"smtp_user"`
	SMTPPassword                 *string         `json:"smtp_password"`
	MailFromAddress              *string         `json:"mail_from_address"`
	SMTPSkipVerify               *bool           `json:"smtp_skip_verify"`
	MailRateLimit                *int            `json:"mail_rate_limit"`
	MailRateLimitPeriod          *timex.Duration `json:"mail_rate_limit_period"`
	RedisURL                     *string         `json:"redis_url"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither is
// set, no JSON file is loaded. If the file cannot be read or contains invalid
// JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.DatabaseName, c.DatabaseName)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.APIKey, c.APIKey)
	setDuration(&config.SessionTokenValidityDuration, c.SessionTokenValidityDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	setString(&config.FrontendBaseURL, c.FrontendBaseURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFromAddress, c.MailFromAddress)
	if c.SMTPSkipVerify != nil {
		config.SMTPSkipVerify = *c.SMTPSkipVerify
	}
	if c.MailRateLimit != nil {
		config.MailRateLimit = *c.MailRateLimit
	}
	setDuration(&config.MailRateLimitPeriod, c.MailRateLimitPeriod)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
