package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
	"github.com/dmitrijs2005/gophguard/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
// Pointer and empty values leave the current setting untouched.
type JsonConfig struct {
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`
	MetricsAddr      string `json:"metrics_addr"`
	DatabaseDSN      string `json:"database_dsn"`
	SecretKey        string `json:"secret_key"`

	SessionTokenTTL      *timex.Duration `json:"session_token_ttl"`
	VerificationTokenTTL *timex.Duration `json:"verification_token_ttl"`
	ResetTokenTTL        *timex.Duration `json:"reset_token_ttl"`
	MFACodeTTL           *timex.Duration `json:"mfa_code_ttl"`
	MFATrustWindow       *timex.Duration `json:"mfa_trust_window"`

	LockoutThreshold      *int            `json:"lockout_threshold"`
	TemporaryLockDuration *timex.Duration `json:"temporary_lock_duration"`
	MaxUpdateRetries      *int            `json:"max_update_retries"`

	AdminEmails   []string `json:"admin_emails"`
	PublicBaseURL string   `json:"public_base_url"`

	Notifier string `json:"notifier"`
	SMTP     struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
		From     string `json:"from"`
	} `json:"smtp"`
	Kafka struct {
		Brokers []string `json:"brokers"`
		Topic   string   `json:"topic"`
	} `json:"kafka"`
	S3 struct {
		AccessKey    string `json:"access_key"`
		SecretKey    string `json:"secret_key"`
		Bucket       string `json:"bucket"`
		Region       string `json:"region"`
		BaseEndpoint string `json:"base_endpoint"`
		Prefix       string `json:"prefix"`
	} `json:"s3"`

	RedisAddr          string `json:"redis_addr"`
	RedisPassword      string `json:"redis_password"`
	RateLimitPerMinute *int   `json:"rate_limit_per_minute"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// parseJson overlays the config file named by -c/-config (or
// GOPHGUARD_CONFIG) onto config. No path means nothing to load.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)

	setDuration(&config.SessionTokenTTL, c.SessionTokenTTL)
	setDuration(&config.VerificationTokenTTL, c.VerificationTokenTTL)
	setDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	setDuration(&config.MFACodeTTL, c.MFACodeTTL)
	setDuration(&config.MFATrustWindow, c.MFATrustWindow)
	setDuration(&config.TemporaryLockDuration, c.TemporaryLockDuration)

	setInt(&config.LockoutThreshold, c.LockoutThreshold)
	setInt(&config.MaxUpdateRetries, c.MaxUpdateRetries)
	setInt(&config.RateLimitPerMinute, c.RateLimitPerMinute)

	if c.AdminEmails != nil {
		config.AdminEmails = c.AdminEmails
	}
	setString(&config.PublicBaseURL, c.PublicBaseURL)

	setString(&config.Notifier, c.Notifier)
	setString(&config.SMTPHost, c.SMTP.Host)
	if c.SMTP.Port != 0 {
		config.SMTPPort = c.SMTP.Port
	}
	setString(&config.SMTPUsername, c.SMTP.Username)
	setString(&config.SMTPPassword, c.SMTP.Password)
	setString(&config.SMTPFrom, c.SMTP.From)

	if c.Kafka.Brokers != nil {
		config.KafkaBrokers = c.Kafka.Brokers
	}
	setString(&config.KafkaTopic, c.Kafka.Topic)

	setString(&config.S3AccessKey, c.S3.AccessKey)
	setString(&config.S3SecretKey, c.S3.SecretKey)
	setString(&config.S3Bucket, c.S3.Bucket)
	setString(&config.S3Region, c.S3.Region)
	setString(&config.S3BaseEndpoint, c.S3.BaseEndpoint)
	setString(&config.S3Prefix, c.S3.Prefix)

	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)

	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
