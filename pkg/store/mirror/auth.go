package mirror

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"mercator-hq/ganymede/pkg/config"
)

// AuthProvider supplies Git transport authentication.
type AuthProvider interface {
	// GetAuth returns the transport authentication method.
	GetAuth() (transport.AuthMethod, error)

	// Type returns the auth type for logging purposes.
	Type() string
}

// SSHAuth is key-pair authentication with a pinned known-hosts
// allowlist. Hosts absent from the allowlist are rejected.
type SSHAuth struct {
	keyPath        string
	passphrase     string
	knownHostsPath string
}

// NewSSHAuth creates an SSH authentication provider. knownHostsPath must
// point at the pinned host-key allowlist.
func NewSSHAuth(keyPath, passphrase, knownHostsPath string) *SSHAuth {
	return &SSHAuth{
		keyPath:        keyPath,
		passphrase:     passphrase,
		knownHostsPath: knownHostsPath,
	}
}

// GetAuth loads the private key and wires the known-hosts callback.
func (a *SSHAuth) GetAuth() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}

	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := gitssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}

	callback, err := gitssh.NewKnownHostsCallback(a.knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}
	auth.HostKeyCallback = callback

	return auth, nil
}

// Type returns the authentication type.
func (a *SSHAuth) Type() string { return "ssh" }

// TokenAuth is token-based HTTPS authentication.
type TokenAuth struct {
	token string
}

// NewTokenAuth creates a token authentication provider.
func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

// GetAuth returns HTTP basic auth with the token as password.
func (a *TokenAuth) GetAuth() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	return &githttp.BasicAuth{
		Username: "git", // Any username works for token auth.
		Password: a.token,
	}, nil
}

// Type returns the authentication type.
func (a *TokenAuth) Type() string { return "token" }

// NoAuth accesses repositories without credentials.
type NoAuth struct{}

// NewNoAuth creates a no-authentication provider.
func NewNoAuth() *NoAuth { return &NoAuth{} }

// GetAuth returns nil authentication.
func (a *NoAuth) GetAuth() (transport.AuthMethod, error) { return nil, nil }

// Type returns the authentication type.
func (a *NoAuth) Type() string { return "none" }

// NewAuthProvider creates an auth provider from configuration.
// Supported types: "ssh", "token", "none".
func NewAuthProvider(cfg *config.GitAuthConfig) (AuthProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("auth config cannot be nil")
	}

	switch cfg.Type {
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		if cfg.SSHKnownHostsPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_known_hosts_path")
		}
		return NewSSHAuth(cfg.SSHKeyPath, cfg.SSHKeyPassphrase, cfg.SSHKnownHostsPath), nil

	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return NewTokenAuth(cfg.Token), nil

	case "none", "":
		return NewNoAuth(), nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}
