package document

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names for the conventional and canonical primary keys.
const (
	IDField = "id"
	PKField = "_id"
)

var objectIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// IsObjectIDHex reports whether v is a string of exactly 24 hex characters.
func IsObjectIDHex(v any) bool {
	s, ok := v.(string)
	return ok && objectIDPattern.MatchString(s)
}

// ParseID converts an identifier-shaped string into a primitive.ObjectID and
// returns any other string unchanged.
func ParseID(s string) any {
	if !objectIDPattern.MatchString(s) {
		return s
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return s
	}
	return oid
}

// NormalizeID returns a copy of values with the conventional "id" field folded
// into "_id".
func NormalizeID(values map[string]any) map[string]any {
	out := cloneMap(values)
	normalizeID(out)
	return out
}

func normalizeID(values map[string]any) {
	id, ok := values[IDField]
	if !ok {
		return
	}
	delete(values, IDField)
	if id == nil {
		// a null id never replaces a primary key that is already set
		if _, hasPK := values[PKField]; !hasPK {
			values[PKField] = nil
		}
		return
	}
	if s, isString := id.(string); isString {
		id = ParseID(s)
	}
	values[PKField] = cloneValue(id)
}
