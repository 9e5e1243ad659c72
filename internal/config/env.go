package config

import (
	"os"

	"github.com/joho/godotenv"
)

const EnvFileName = ".env"

// LoadEnvFile sets variables from a dotenv file without overriding any
// already present in the environment. A missing file is not an error.
func LoadEnvFile(name string) error {
	if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
