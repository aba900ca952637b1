package handlers

import (
	"context"
	"fmt"
	"os"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/yaml"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard collects the answers.
	runWizard = RunWizard

	// writeFile writes the rendered manifest.
	writeFile = func(path string, data []byte) error {
		return os.WriteFile(path, data, 0o644)
	}
)

// Init runs the wizard and writes a NodeRefresh manifest to outputPath, or to
// stdout when outputPath is "-".
func Init(ctx context.Context, outputPath string) error {
	toStdout := outputPath == "-" || outputPath == ""
	if !toStdout && fileExists(outputPath) {
		fmt.Fprintf(os.Stderr, "Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	nr, err := result.ToNodeRefresh()
	if err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}

	data, err := MarshalManifest(nr)
	if err != nil {
		return err
	}

	if toStdout {
		fmt.Print(string(data))
		return nil
	}
	if err := writeFile(outputPath, data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	printInitSuccess(outputPath, nr)
	return nil
}

// MarshalManifest renders nr as YAML without status or server-populated metadata.
func MarshalManifest(nr *refreshv1.NodeRefresh) ([]byte, error) {
	obj, err := runtime.DefaultUnstructuredConverter.ToUnstructured(nr)
	if err != nil {
		return nil, fmt.Errorf("failed to convert manifest: %w", err)
	}
	delete(obj, "status")
	unstructured.RemoveNestedField(obj, "metadata", "creationTimestamp")

	data, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

// printInitSuccess prints a summary and next steps.
func printInitSuccess(outputPath string, nr *refreshv1.NodeRefresh) {
	fmt.Println()
	fmt.Println("Manifest saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Refresh Summary")
	fmt.Println("---------------")
	fmt.Printf("  Name:            %s\n", nr.Name)
	fmt.Printf("  Target labels:   %v\n", nr.Spec.TargetNodeLabels)
	fmt.Printf("  Pods at once:    %d\n", nr.Spec.MaxBatchSize())
	fmt.Printf("  Min health:      %d%%\n", nr.Spec.HealthThreshold())
	fmt.Printf("  Grace period:    %ds\n", nr.Spec.GracePeriod())
	fmt.Printf("  Provision limit: %s\n", nr.Spec.ProvisionTimeout())
	if nr.Spec.RefreshSchedule != "" {
		fmt.Printf("  Schedule:        %s (UTC)\n", nr.Spec.RefreshSchedule)
	}
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Printf("  1. Review %s if needed\n", outputPath)
	fmt.Println()
	fmt.Println("  2. Apply it:")
	fmt.Printf("     kubectl apply -f %s\n", outputPath)
	fmt.Println()
	fmt.Println("  3. Follow the run:")
	fmt.Printf("     noderefreshctl status %s --watch\n", nr.Name)
	fmt.Println()
}
