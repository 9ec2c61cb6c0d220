package config

import "github.com/joho/godotenv"

// LoadDotEnv loads a .env file into the environment.
// It does NOT override existing env vars (env takes precedence).
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}
