// Package config defines the operator's runtime configuration.
//
// Configuration is read from an optional YAML file and then overridden by
// NODE_REFRESH_* environment variables, so that a container image can ship
// a default file while deployments tune individual values. Secrets such as
// the Hetzner Cloud token and S3 credentials are only read from the
// environment.
package config
