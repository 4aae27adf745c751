package github

import (
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

func init() {
	dest.Register(providerName, func(client *forgehttp.Client) (dest.Provider, error) {
		return New(client), nil
	})
}
