// Package config provides configuration loading and validation for the media relay.
//
// The package handles YAML configuration files, a dotenv file, environment
// variables and CLI flags with automatic merging and validation using
// go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. .env in the working directory (never overrides the real environment)
//  4. Environment variables (MEDIARELAY_ prefix, plus legacy names)
//  5. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with the MEDIARELAY_ prefix:
//   - server.port → MEDIARELAY_SERVER_PORT
//   - api.url → MEDIARELAY_API_URL
//   - storage.s3.bucket → MEDIARELAY_STORAGE_S3_BUCKET
//
// The variable names of earlier deployments are also honoured:
//   - API_GATEWAY_URL → api.url
//   - S3_BUCKET_NAME → storage.s3.bucket
//   - AWS_REGION → storage.s3.region
//
// # Validation
//
//   - api.url is required and must be an http(s) URL
//   - storage.backend must be s3 or filesystem; the selected backend's
//     bucket or path is required
//   - s3 access_key and secret_key are set together or not at all
//   - log level must be debug, info, warn, or error
package config
