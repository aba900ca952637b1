package hcloud

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// ServerCreateOpts holds all parameters for creating a replacement server.
type ServerCreateOpts struct {
	Name       string
	ServerType string
	Image      string
	Location   string
	SSHKeys    []string
	Labels     map[string]string
	UserData   string
	// NetworkID attaches the server to a private network when non-zero.
	NetworkID int64
}

// ServerManager is the subset of the Hetzner Cloud API used for node refreshes.
type ServerManager interface {
	// CreateServer creates a server and waits for the create action to finish.
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*hcloud.Server, error)
	// GetServerByName returns the server, or nil if it does not exist.
	GetServerByName(ctx context.Context, name string) (*hcloud.Server, error)
	// GetServersByLabel lists servers matching a label selector such as "a=b,c=d".
	GetServersByLabel(ctx context.Context, selector string) ([]*hcloud.Server, error)
}
