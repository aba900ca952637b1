package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/noderefresh/node-refresh-operator/internal/util/retry"
)

// CreateServer creates a new server with the given specifications and waits
// for the create action to finish.
func (c *RealClient) CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.ServerCreate)
	defer cancel()

	createOpts, err := c.buildServerCreateOpts(ctx, opts)
	if err != nil {
		return nil, err
	}

	var result hcloud.ServerCreateResult
	err = retry.Do(ctx, func(ctx context.Context) error {
		res, _, err := c.client.Server.Create(ctx, createOpts)
		if err != nil {
			if isInvalidParameter(err) || IsQuotaExceeded(err) {
				return retry.Permanent(err)
			}
			return err
		}
		result = res
		return nil
	},
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithRetryIf(isTransient))
	if err != nil {
		return nil, fmt.Errorf("failed to create server %s: %w", opts.Name, err)
	}

	actions := make([]*hcloud.Action, 0, 1+len(result.NextActions))
	if result.Action != nil {
		actions = append(actions, result.Action)
	}
	actions = append(actions, result.NextActions...)
	if len(actions) > 0 {
		if err := c.client.Action.WaitFor(ctx, actions...); err != nil {
			return nil, fmt.Errorf("failed to wait for server creation: %w", err)
		}
	}

	return result.Server, nil
}

// buildServerCreateOpts resolves names into API objects.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	serverType, _, err := c.client.ServerType.Get(ctx, opts.ServerType)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get server type: %w", err)
	}
	if serverType == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("server type not found: %s", opts.ServerType)
	}

	image, _, err := c.client.Image.GetForArchitecture(ctx, opts.Image, serverType.Architecture)
	if err != nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get image: %w", err)
	}
	if image == nil {
		return hcloud.ServerCreateOpts{}, fmt.Errorf("image not found: %s (%s)", opts.Image, serverType.Architecture)
	}

	var sshKeys []*hcloud.SSHKey
	for _, key := range opts.SSHKeys {
		k, _, err := c.client.SSHKey.Get(ctx, key)
		if err != nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get ssh key %s: %w", key, err)
		}
		if k == nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("ssh key not found: %s", key)
		}
		sshKeys = append(sshKeys, k)
	}

	var location *hcloud.Location
	if opts.Location != "" {
		location, _, err = c.client.Location.Get(ctx, opts.Location)
		if err != nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("failed to get location %s: %w", opts.Location, err)
		}
		if location == nil {
			return hcloud.ServerCreateOpts{}, fmt.Errorf("location not found: %s", opts.Location)
		}
	}

	var networks []*hcloud.Network
	if opts.NetworkID != 0 {
		networks = []*hcloud.Network{{ID: opts.NetworkID}}
	}

	return hcloud.ServerCreateOpts{
		Name:       opts.Name,
		ServerType: serverType,
		Image:      image,
		SSHKeys:    sshKeys,
		Location:   location,
		Labels:     opts.Labels,
		UserData:   opts.UserData,
		Networks:   networks,
	}, nil
}

// GetServerByName returns the server with the given name, or nil if not found.
func (c *RealClient) GetServerByName(ctx context.Context, name string) (*hcloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Lookup)
	defer cancel()

	server, _, err := c.client.Server.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get server %s: %w", name, err)
	}
	return server, nil
}

// GetServersByLabel returns all servers matching the label selector.
func (c *RealClient) GetServersByLabel(ctx context.Context, selector string) ([]*hcloud.Server, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Lookup)
	defer cancel()

	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	return servers, nil
}
