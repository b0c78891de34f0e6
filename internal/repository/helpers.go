package repository

import (
	"database/sql"
	"fmt"
	"strings"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input safe to embed in a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
