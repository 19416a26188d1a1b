package appid

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/appidentity"
)

// Default is the identity compiled into the binary.
func Default() *appidentity.Identity {
	return &appidentity.Identity{
		Vendor:      "cymbal-labs",
		BinaryName:  "searchdemo",
		EnvPrefix:   "SEARCHDEMO_",
		ConfigName:  "searchdemo",
		Description: "Demo client for a managed search backend",
	}
}

// Get returns the application identity. An identity file named by
// FULMEN_APP_IDENTITY_PATH stays authoritative; otherwise Default is used.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if os.Getenv(appidentity.EnvIdentityPath) != "" {
		return appidentity.Get(ctx)
	}
	return Default(), nil
}
