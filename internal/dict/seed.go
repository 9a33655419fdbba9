package dict

import (
	"context"
	_ "embed"
	"strings"
)

//go:embed seed.txt
var seed string

// SeedSource names the built-in table in the imports log.
const SeedSource = "builtin:seed.txt"

// EnsureSeeded imports the built-in table into an empty store. It reports
// whether anything was imported.
func (s *Store) EnsureSeeded(ctx context.Context) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.Import(ctx, strings.NewReader(seed), SeedSource); err != nil {
		return false, err
	}
	return true, nil
}
