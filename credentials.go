package docview

// CredentialStore supplies Basic auth material per server.
//
// An empty user name means the server is accessed anonymously.
type CredentialStore interface {
	Username(serverID string) (string, error)
	Password(serverID string) (string, error)
}

// Credentials is one user name and password pair.
type Credentials struct {
	Username string
	Password string
}

// StaticCredentials is a CredentialStore backed by a map.
type StaticCredentials map[string]Credentials

// Username returns the user name for serverID, or "" when none is set.
func (s StaticCredentials) Username(serverID string) (string, error) {
	return s[serverID].Username, nil
}

// Password returns the password for serverID, or "" when none is set.
func (s StaticCredentials) Password(serverID string) (string, error) {
	return s[serverID].Password, nil
}
