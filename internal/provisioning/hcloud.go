package provisioning

import (
	"context"
	"fmt"
	"strings"

	hcloudapi "github.com/hetznercloud/hcloud-go/v2/hcloud"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
	"github.com/noderefresh/node-refresh-operator/internal/config"
	"github.com/noderefresh/node-refresh-operator/internal/nodes"
	"github.com/noderefresh/node-refresh-operator/internal/platform/hcloud"
	"github.com/noderefresh/node-refresh-operator/internal/util/labels"
)

// maxServerNameLength is the Hetzner Cloud limit for server names.
const maxServerNameLength = 63

// HCloudHook creates one Hetzner Cloud server per refreshed node. Capacity is
// ready once the server is running and has joined the cluster as a Ready node
// of the same name.
type HCloudHook struct {
	servers hcloud.ServerManager
	client  client.Reader
	cfg     config.HCloudConfig
}

// NewHCloudHook creates an HCloudHook.
func NewHCloudHook(servers hcloud.ServerManager, c client.Reader, cfg config.HCloudConfig) *HCloudHook {
	return &HCloudHook{servers: servers, client: c, cfg: cfg}
}

// Name implements Hook.
func (h *HCloudHook) Name() string { return "hcloud" }

// EnsureCapacity implements Hook.
func (h *HCloudHook) EnsureCapacity(ctx context.Context, target Target) (Status, error) {
	// Servers left by an earlier run for the same node are reused.
	servers, err := h.servers.GetServersByLabel(ctx, labels.SelectorForReplacement(target.Owner, target.Node))
	if err != nil {
		return StatusNotReady, Transient(err)
	}

	var server *hcloudapi.Server
	if len(servers) > 0 {
		server = servers[0]
	} else {
		server, err = h.create(ctx, target)
		if err != nil {
			return StatusNotReady, err
		}
	}

	if server.Status != hcloudapi.ServerStatusRunning {
		log.FromContext(ctx).V(1).Info("replacement server not running yet", "server", server.Name, "status", server.Status)
		return StatusNotReady, nil
	}

	node := &corev1.Node{}
	if err := h.client.Get(ctx, client.ObjectKey{Name: server.Name}, node); err != nil {
		if apierrors.IsNotFound(err) {
			return StatusNotReady, nil
		}
		return StatusNotReady, Transient(fmt.Errorf("failed to get node %s: %w", server.Name, err))
	}
	if !nodes.IsReady(node) || node.Spec.Unschedulable {
		return StatusNotReady, nil
	}
	return StatusReady, nil
}

func (h *HCloudHook) create(ctx context.Context, target Target) (*hcloudapi.Server, error) {
	name := ServerName(h.cfg.NamePrefix, target.Node)

	// A previous reconcile may have created the server before its status write was lost.
	existing, err := h.servers.GetServerByName(ctx, name)
	if err != nil {
		return nil, Transient(err)
	}
	if existing != nil {
		if existing.Labels[refreshv1.LabelOwner] != target.Owner {
			return nil, fmt.Errorf("server %s exists and is not owned by %s", name, target.Owner)
		}
		log.FromContext(ctx).Info("adopting existing replacement server", "server", name)
		return existing, nil
	}

	server, err := h.servers.CreateServer(ctx, hcloud.ServerCreateOpts{
		Name:       name,
		ServerType: h.cfg.ServerType,
		Image:      h.cfg.Image,
		Location:   h.cfg.Location,
		SSHKeys:    h.cfg.SSHKeys,
		UserData:   h.cfg.UserData,
		NetworkID:  h.cfg.NetworkID,
		Labels: labels.NewLabelBuilder(target.Owner).
			WithRun(target.RunID).
			WithReplaces(target.Node).
			Merge(h.cfg.Labels).
			Build(),
	})
	if err != nil {
		if hcloud.IsQuotaExceeded(err) {
			return nil, err
		}
		return nil, Transient(err)
	}
	log.FromContext(ctx).Info("created replacement server", "server", server.Name, "node", target.Node)
	return server, nil
}

// ServerName derives the replacement server name for node.
func ServerName(prefix, node string) string {
	name := node
	if prefix != "" {
		name = prefix + "-" + node
	}
	name = strings.ToLower(strings.ReplaceAll(name, ".", "-"))
	if len(name) > maxServerNameLength {
		name = strings.TrimRight(name[:maxServerNameLength], "-")
	}
	return name
}
