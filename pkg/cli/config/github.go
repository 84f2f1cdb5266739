package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub App credential configuration. Either app credentials
// (app ID + private key) or the legacy static access token must be set.
type GitHub struct {
	AppID          int64
	PrivateKey     string
	PrivateKeyFile string
	AccessToken    string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("DROVER_GITHUB_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("DROVER_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-private-key-file",
			Usage:       "Path to GitHub App private key file",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("DROVER_GITHUB_PRIVATE_KEY_FILE"),
		},
		&cli.StringFlag{
			Name:        "github-access-token",
			Usage:       "Static access token (legacy fallback)",
			Destination: &c.AccessToken,
			Sources:     cli.EnvVars("DROVER_GITHUB_ACCESS_TOKEN"),
		},
	}
}

// HasAppCredentials reports whether app authentication is configured.
func (c *GitHub) HasAppCredentials() bool {
	return c.AppID != 0 && (c.PrivateKey != "" || c.PrivateKeyFile != "")
}

// PrivateKeyPEM returns the private key material, reading the key file when
// one is configured.
func (c *GitHub) PrivateKeyPEM() ([]byte, error) {
	if c.PrivateKeyFile != "" {
		data, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read private key file", goerr.V("path", c.PrivateKeyFile))
		}
		return data, nil
	}
	if c.PrivateKey != "" {
		return []byte(c.PrivateKey), nil
	}
	return nil, nil
}

// Validate checks that at least one authentication method is configured.
func (c *GitHub) Validate() error {
	if !c.HasAppCredentials() && c.AccessToken == "" {
		return goerr.New("either GitHub App credentials or a static access token is required")
	}
	return nil
}
