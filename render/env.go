package render

import (
	"fmt"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/projecteru2/debridctl/config"
	"github.com/projecteru2/debridctl/types"
)

// Env renders the compose project's .env. godotenv sorts keys, so output is
// stable for identical input.
func Env(cfg *types.StackConfig, layout *config.Config) ([]byte, error) {
	out, err := godotenv.Marshal(map[string]string{
		"TZ":                   cfg.Timezone,
		"PUID":                 strconv.Itoa(cfg.PUID),
		"PGID":                 strconv.Itoa(cfg.PGID),
		"COMPOSE_PROJECT_NAME": layout.ProjectName,
	})
	if err != nil {
		return nil, fmt.Errorf("encode env file: %w", err)
	}
	return []byte(out + "\n"), nil
}
