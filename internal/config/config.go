package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	HoldHours           int    // RESERVATION_HOLD_HOURS: lifetime of an unpaid pending hold
	SweepIntervalSec    int    // HOLD_SWEEP_INTERVAL_SECONDS: reaper tick
	FleetServiceURL     string
	PromotionServiceURL string
	AuthServiceURL      string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for confirmation emails (Brevo)
	MailFrom            string // MAIL_FROM sender email
	ContractsDir        string // directory where rendered contract PDFs are written
	ContractsBaseURL    string // public URL prefix for rendered PDFs
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "3003"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	holdHours := viper.GetInt("RESERVATION_HOLD_HOURS")
	if holdHours <= 0 {
		holdHours = 24
	}
	sweep := viper.GetInt("HOLD_SWEEP_INTERVAL_SECONDS")
	if sweep <= 0 {
		sweep = 60
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		HoldHours:           holdHours,
		SweepIntervalSec:    sweep,
		FleetServiceURL:     withDefault(viper.GetString("FLEET_SERVICE_URL"), "http://fleet-service:3002"),
		PromotionServiceURL: withDefault(viper.GetString("PROMOTION_SERVICE_URL"), "http://promotion-coupon-service:3006"),
		AuthServiceURL:      withDefault(viper.GetString("AUTH_SERVICE_URL"), "http://auth-user-service:3001"),
		SendinblueAPIKey:    viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            viper.GetString("MAIL_FROM"),
		ContractsDir:        withDefault(viper.GetString("CONTRACTS_DIR"), "uploads/contracts"),
		ContractsBaseURL:    withDefault(viper.GetString("CONTRACTS_BASE_URL"), "/uploads/contracts"),
	}, nil
}

func withDefault(s, def string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}
