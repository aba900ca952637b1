package handlers

import (
	"bytes"
	"io"
	"os"
	"testing"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// captureOutput returns what f writes to stdout.
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// useFakeCluster points the handlers at a fake client holding objs and
// forces plain output.
func useFakeCluster(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()

	c := fake.NewClientBuilder().WithScheme(refreshv1.Scheme).WithObjects(objs...).Build()

	origClient, origTTY := newKubeClient, isInteractiveTTY
	t.Cleanup(func() {
		newKubeClient, isInteractiveTTY = origClient, origTTY
	})
	newKubeClient = func(string) (client.Client, error) { return c, nil }
	isInteractiveTTY = func() bool { return false }
	return c
}
