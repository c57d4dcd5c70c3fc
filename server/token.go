package server

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ndlib/arbor/logging"
)

// A TokenDecoder validates and decodes user tokens passed into the web API. If
// the given token is not valid, for whatever reason, the user "" with a role of
// RoleUnknown is returned. An error is returned only if there is some kind of error doing
// the lookup and the ultimate status of the token is unknown.
type TokenDecoder interface {
	TokenDecode(token string) (user string, role Role, err error)
}

// Role is what a user may do. Each role includes the ones before it.
type Role int

const (
	RoleUnknown Role = iota
	RoleRead         // get resources, list children, run queries
	RoleWrite        // submit batches
	RoleAdmin        // toggle the server between writable and read only
)

func atoRole(s string) Role {
	switch strings.ToLower(s) {
	case "read":
		return RoleRead
	case "write":
		return RoleWrite
	case "admin":
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// NewNobodyDecoder creates a TokenDecoder that for every possible token
// returns a user named "nobody" with the Admin role.
func NewNobodyDecoder() TokenDecoder {
	return nobodyDecoder{}
}

type nobodyDecoder struct{}

func (nobodyDecoder) TokenDecode(token string) (string, Role, error) {
	return "nobody", RoleAdmin, nil
}

// NewListDecoder returns a TokenDecoder backed by a list of users read from r.
// Each line of r has the form
//
//	<user name>  <role>  <token>
//
// separated by whitespace. The role is one of "Read", "Write" or "Admin"
// (case insensitive). Empty lines and lines beginning with a hash '#' are
// skipped, and so are lines with the wrong number of fields.
func NewListDecoder(r io.Reader) (TokenDecoder, error) {
	log := logging.Get("token")
	users := make(listDecoder)
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		pieces := strings.Fields(scanner.Text())
		if len(pieces) == 0 || pieces[0][0] == '#' {
			continue
		}
		if len(pieces) != 3 {
			log.Warn().Int("line", lineno).Msg("wrong number of fields")
			continue
		}
		users[pieces[2]] = userEntry{user: pieces[0], role: atoRole(pieces[1])}
	}
	return users, scanner.Err()
}

// NewListDecoderFile reads the contents of the given file into a
// ListDecoder.
func NewListDecoderFile(fname string) (TokenDecoder, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewListDecoder(f)
}

type userEntry struct {
	user string
	role Role
}

// listDecoder maps tokens to users.
type listDecoder map[string]userEntry

func (ld listDecoder) TokenDecode(token string) (string, Role, error) {
	if u, ok := ld[token]; ok && token != "" {
		return u.user, u.role, nil
	}
	return "", RoleUnknown, nil
}
