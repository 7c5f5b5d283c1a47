package registry

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/lumehealth/carebot/internal/care"
)

// EnvSource reads a recipient override from an environment variable holding
// a numeric chat identifier. An empty or unset variable means no override.
type EnvSource struct {
	Var string
}

func (e EnvSource) Name() string { return "env:" + e.Var }

func (e EnvSource) Lookup(context.Context) (care.ChatID, bool, error) {
	raw := os.Getenv(e.Var)
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s is not a chat id: %w", e.Var, err)
	}
	return care.ChatID(id), true, nil
}
