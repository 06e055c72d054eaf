package badger

// Database Key Namespace Design
// ==============================
//
// The index is stored in BadgerDB under prefixed keys. Reverse indexes make
// per-user listings a prefix scan instead of a full table walk.
//
// Data Type             Prefix   Key Format                       Value Type
// =========================================================================
// Ownership             "o:"     o:<dir>                          DirectoryOwnership (JSON)
// Owned by user         "ou:"    ou:<user>\x00<dir>               empty
// Attributes            "a:"     a:<dir>\x00<key>                 DirectoryAttribute (JSON)
// Grants by directory   "g:"     g:<dir>\x00<user>                AccessGrant (JSON)
// Grants by user        "gu:"    gu:<user>\x00<dir>               GrantState (bytes)
// Users                 "u:"     u:<identity>                     User (JSON)
//
// The \x00 separator cannot appear in UUIDs or identities, so a prefix scan of
// "g:<dir>\x00" never matches a different directory.

const (
	prefixOwnership   = "o:"
	prefixOwnedByUser = "ou:"
	prefixAttribute   = "a:"
	prefixGrant       = "g:"
	prefixGrantByUser = "gu:"
	prefixUser        = "u:"

	sep = "\x00"
)

func keyOwnership(dir string) []byte {
	return []byte(prefixOwnership + dir)
}

func keyOwnedByUser(user, dir string) []byte {
	return []byte(prefixOwnedByUser + user + sep + dir)
}

func prefixOwnedBy(user string) []byte {
	return []byte(prefixOwnedByUser + user + sep)
}

func keyAttribute(dir, key string) []byte {
	return []byte(prefixAttribute + dir + sep + key)
}

func prefixAttributesOf(dir string) []byte {
	return []byte(prefixAttribute + dir + sep)
}

func keyGrant(dir, user string) []byte {
	return []byte(prefixGrant + dir + sep + user)
}

func prefixGrantsOf(dir string) []byte {
	return []byte(prefixGrant + dir + sep)
}

func keyGrantByUser(user, dir string) []byte {
	return []byte(prefixGrantByUser + user + sep + dir)
}

func prefixGrantsFor(user string) []byte {
	return []byte(prefixGrantByUser + user + sep)
}

func keyUser(identity string) []byte {
	return []byte(prefixUser + identity)
}

// suffixAfter returns the part of key following prefix.
func suffixAfter(key, prefix []byte) string {
	return string(key[len(prefix):])
}
