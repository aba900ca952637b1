package provisioning

import (
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/noderefresh/node-refresh-operator/internal/config"
	"github.com/noderefresh/node-refresh-operator/internal/platform/hcloud"
)

// New builds the Hook selected by cfg.Provider.
func New(cfg config.ProvisioningConfig, c client.Reader) (Hook, error) {
	switch cfg.Provider {
	case "", config.ProviderNone:
		return NoneHook{}, nil
	case config.ProviderCapacity:
		return NewCapacityHook(c), nil
	case config.ProviderHCloud:
		if cfg.HCloud.Token == "" {
			return nil, fmt.Errorf("provider %s requires an API token", cfg.Provider)
		}
		return NewHCloudHook(hcloud.NewRealClient(cfg.HCloud.Token), c, cfg.HCloud), nil
	default:
		return nil, fmt.Errorf("unknown provisioning provider %q", cfg.Provider)
	}
}
