package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUrl     string
	Port      string
	JWTSecret string

	AdminEmail string

	// Earning program defaults. Admin-edited values live in the store and
	// override these at runtime.
	MinWithdrawal  string
	SupportedCoins string
	RevenueShare   string
	ReferralReward string
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using environment defaults")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		DBUrl:          os.Getenv("DB_URL"),
		Port:           port,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		MinWithdrawal:  getEnv("MIN_WITHDRAWAL", "1.00"),
		SupportedCoins: getEnv("SUPPORTED_COINS", "BTC,ETH,DOGE,LTC,USDT,TRX"),
		RevenueShare:   getEnv("REVENUE_SHARE", "0.50"),
		ReferralReward: getEnv("REFERRAL_REWARD", "0.10"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
