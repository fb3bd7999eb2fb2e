package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields not listed in `allowed`.
// Field names come from query strings and end up in ORDER BY clauses.
func FilterOrderings(orderings []DBOrdering, allowed ...string) []DBOrdering {
	out := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		field := strings.ToLower(strings.TrimSpace(ord.Field))
		for _, a := range allowed {
			if field == a {
				out = append(out, DBOrdering{Field: field, Ascending: ord.Ascending})
				break
			}
		}
	}
	return out
}

// Logger is the logging contract shared by services and transports.
// Expected args: error, map[string]interface{}, user.User (reported as the acting person).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
