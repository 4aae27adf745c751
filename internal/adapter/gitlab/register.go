package gitlab

import (
	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/source"
)

func init() {
	source.Register(providerName, func(client *forgehttp.Client) (source.Provider, error) {
		return New(client), nil
	})
}
