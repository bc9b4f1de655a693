package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/userhub/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a  string   HTTP bind address (e.g., ":8080")
//	-r  string   gRPC health bind address (e.g., ":50051")
//	-d  string   database DSN (postgres:// or mongodb://)
//	-n  string   database name (MongoDB only)
//	-s  string   token HMAC secret key
//	-k  string   API key
//	-t  int      session token validity, minutes
//	-x  int      reset token validity, minutes
//	-f  string   frontend base URL for reset links
//	-mh string   SMTP host
//	-mu string   SMTP user
//	-mp string   SMTP password
//	-mf string   mail from address
//	-rd string   Redis URL for reset mail throttling
//	-u  string   S3 root user
//	-p  string   S3 root password
//	-b  string   S3 bucket name
//	-g  string   S3 region
//	-e  string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Only the flags above are kept from os.Args (via flagx.FilterArgs), so the
// -c/-config flag handled by parseJson does not collide with them.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-r", "-d", "-n", "-s", "-k", "-t", "-x", "-f",
		"-mh", "-mu", "-mp", "-mf", "-rd",
		"-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run HTTP server")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseName, "n", config.DatabaseName, "database name (MongoDB)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.APIKey, "k", config.APIKey, "API key")

	sessionTokenValidityDuration := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session_token_validity_duration (in minutes)")
	resetTokenValidityDuration := fs.Int("x", int(config.ResetTokenValidityDuration.Minutes()), "reset_token_validity_duration (in minutes)")

	fs.StringVar(&config.FrontendBaseURL, "f", config.FrontendBaseURL, "frontend base URL")
	fs.StringVar(&config.SMTPHost, "mh", config.SMTPHost, "SMTP host")
	fs.StringVar(&config.SMTPUser, "mu", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "mp", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.MailFromAddress, "mf", config.MailFromAddress, "mail from address")
	fs.StringVar(&config.RedisURL, "rd", config.RedisURL, "Redis URL")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Minute flags override earlier layers only when given, so finer env or
	// JSON durations survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTokenValidityDuration = time.Duration(*sessionTokenValidityDuration) * time.Minute
		case "x":
			config.ResetTokenValidityDuration = time.Duration(*resetTokenValidityDuration) * time.Minute
		}
	})
}
