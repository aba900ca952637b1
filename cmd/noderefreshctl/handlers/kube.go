// Package handlers implements the business logic for noderefreshctl commands.
//
// Handlers receive parsed flags from the commands package and talk to the
// cluster, the report store and the terminal. Package-level function
// variables are replaced in tests.
package handlers

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// newKubeClient builds a client from an explicit kubeconfig path or the
// default loading rules ($KUBECONFIG, ~/.kube/config).
var newKubeClient = func(kubeconfig string) (client.Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	restCfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	k8sClient, err := client.New(restCfg, client.Options{Scheme: refreshv1.Scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return k8sClient, nil
}

// isInteractiveTTY is replaced in tests to force plain output.
var isInteractiveTTY = func() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
