package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// QuickCheck runs PRAGMA quick_check. It returns nil for a healthy
// database and the diagnostic rows otherwise.
func QuickCheck(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return nil, fmt.Errorf("sqlite: quick_check: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("sqlite: quick_check row: %w", err)
		}
		out = append(out, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(out) == 1 && strings.EqualFold(out[0], "ok"):
		return nil, nil
	case len(out) == 0:
		return []string{"quick_check returned no rows"}, nil
	default:
		return out, nil
	}
}
