package provider

import "time"

// AWSConfig configures the AWS Secrets Manager provider.
type AWSConfig struct {
	Region  string
	Prefix  string
	Timeout time.Duration
}
