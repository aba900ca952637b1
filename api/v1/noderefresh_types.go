package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Defaults applied when a field is left at its zero value.
const (
	DefaultMaxPodsToMoveAtOnce  int32 = 5
	DefaultMinHealthThreshold   int32 = 80
	DefaultGracePeriodSeconds   int64 = 300
	DefaultNodeProvisionTimeout int32 = 600
)

// NodeRefreshSpec defines which nodes to refresh and how cautiously.
type NodeRefreshSpec struct {
	// TargetNodeLabels selects the nodes to refresh. Every pair must match.
	// +kubebuilder:validation:MinProperties=1
	TargetNodeLabels map[string]string `json:"targetNodeLabels"`

	// MaxPodsToMoveAtOnce bounds the number of concurrent evictions
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:default=5
	// +optional
	MaxPodsToMoveAtOnce int32 `json:"maxPodsToMoveAtOnce,omitempty"`

	// MinHealthThreshold is the minimum percentage of Ready workload pods
	// required before another eviction batch may start
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:validation:Maximum=100
	// +kubebuilder:default=80
	// +optional
	MinHealthThreshold *int32 `json:"minHealthThreshold,omitempty"`

	// RefreshSchedule is an optional 5-field cron expression (UTC) that
	// re-triggers the refresh after a run finishes
	// +optional
	RefreshSchedule string `json:"refreshSchedule,omitempty"`

	// GracePeriodSeconds is the termination grace period given to evicted pods
	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=300
	// +optional
	GracePeriodSeconds *int64 `json:"gracePeriodSeconds,omitempty"`

	// NodeProvisionTimeout is how long, in seconds, to wait for replacement
	// capacity before failing the run
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:default=600
	// +optional
	NodeProvisionTimeout int32 `json:"nodeProvisionTimeout,omitempty"`

	// HealthScope narrows the pods considered by the health gate
	// +optional
	HealthScope *HealthScope `json:"healthScope,omitempty"`

	// Paused stops the operator from reconciling this resource
	// +optional
	Paused bool `json:"paused,omitempty"`
}

// HealthScope restricts health evaluation to a set of namespaces.
type HealthScope struct {
	// Namespaces limits the health gate to pods in these namespaces.
	// Empty means every non-system namespace.
	// +optional
	Namespaces []string `json:"namespaces,omitempty"`
}

// NodeRefreshStatus defines the observed state of NodeRefresh.
type NodeRefreshStatus struct {
	// Phase is the current step of the refresh run
	// +kubebuilder:validation:Enum=Idle;Provisioning;Draining;Validating;Completed;Failed
	// +optional
	Phase RefreshPhase `json:"phase,omitempty"`

	// CurrentNode is the node being processed
	// +optional
	CurrentNode string `json:"currentNode,omitempty"`

	// NodesRefreshed lists the nodes completed in this run, in order
	// +optional
	NodesRefreshed []string `json:"nodesRefreshed,omitempty"`

	// PendingNodes are the target nodes snapshotted at run start that still
	// wait for their turn, in order
	// +optional
	PendingNodes []string `json:"pendingNodes,omitempty"`

	// TotalNodes is the number of target nodes when the run started
	// +optional
	TotalNodes int32 `json:"totalNodes,omitempty"`

	// PodsMovedSuccessfully counts pods evicted during this run
	// +optional
	PodsMovedSuccessfully int32 `json:"podsMovedSuccessfully,omitempty"`

	// PodsMovesFailed counts pods that could not be evicted after all retries
	// +optional
	PodsMovesFailed int32 `json:"podsMovesFailed,omitempty"`

	// LastRefreshTime is when the last run finished
	// +optional
	LastRefreshTime *metav1.Time `json:"lastRefreshTime,omitempty"`

	// NextRefreshTime is when the next scheduled run is due
	// +optional
	NextRefreshTime *metav1.Time `json:"nextRefreshTime,omitempty"`

	// Message is a human-readable description of the current state
	// +optional
	Message string `json:"message,omitempty"`

	// RunID identifies the current or last run
	// +optional
	RunID string `json:"runID,omitempty"`

	// StartTime is when the current or last run started
	// +optional
	StartTime *metav1.Time `json:"startTime,omitempty"`

	// ProvisioningStartTime is when capacity was first requested for CurrentNode
	// +optional
	ProvisioningStartTime *metav1.Time `json:"provisioningStartTime,omitempty"`

	// DrainStartTime is when draining of CurrentNode began
	// +optional
	DrainStartTime *metav1.Time `json:"drainStartTime,omitempty"`

	// ValidationAttempts counts failed validation checks for CurrentNode
	// +optional
	ValidationAttempts int32 `json:"validationAttempts,omitempty"`

	// LastValidationTime is when CurrentNode was last validated
	// +optional
	LastValidationTime *metav1.Time `json:"lastValidationTime,omitempty"`

	// EvictedWorkloads are the controllers owning pods evicted from CurrentNode
	// +optional
	EvictedWorkloads []WorkloadReference `json:"evictedWorkloads,omitempty"`

	// Conditions represent the latest available observations
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ObservedGeneration is the last observed generation
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// WorkloadReference identifies a pod controller.
type WorkloadReference struct {
	Kind      string `json:"kind"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// RefreshPhase is the lifecycle phase of a refresh run.
type RefreshPhase string

const (
	// PhaseIdle means no run is in progress
	PhaseIdle RefreshPhase = "Idle"
	// PhaseProvisioning means replacement capacity is being ensured for CurrentNode
	PhaseProvisioning RefreshPhase = "Provisioning"
	// PhaseDraining means pods are being evicted from CurrentNode
	PhaseDraining RefreshPhase = "Draining"
	// PhaseValidating means the cluster is checked after CurrentNode was drained
	PhaseValidating RefreshPhase = "Validating"
	// PhaseCompleted means every target node was refreshed
	PhaseCompleted RefreshPhase = "Completed"
	// PhaseFailed means the run stopped on an unrecoverable error
	PhaseFailed RefreshPhase = "Failed"
)

// IsTerminal reports whether the phase ends a run.
func (p RefreshPhase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// IsActive reports whether a node is being processed in this phase.
func (p RefreshPhase) IsActive() bool {
	return p == PhaseProvisioning || p == PhaseDraining || p == PhaseValidating
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Cluster,shortName=nr
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Current",type=string,JSONPath=`.status.currentNode`
// +kubebuilder:printcolumn:name="Total",type=integer,JSONPath=`.status.totalNodes`
// +kubebuilder:printcolumn:name="Moved",type=integer,JSONPath=`.status.podsMovedSuccessfully`
// +kubebuilder:printcolumn:name="Next",type=date,JSONPath=`.status.nextRefreshTime`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// NodeRefresh is the Schema for the noderefreshes API.
type NodeRefresh struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   NodeRefreshSpec   `json:"spec,omitempty"`
	Status NodeRefreshStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// NodeRefreshList contains a list of NodeRefresh.
type NodeRefreshList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []NodeRefresh `json:"items"`
}

// Condition types for NodeRefresh
const (
	// ConditionProgressing is True while a node is being processed
	ConditionProgressing = "Progressing"
	// ConditionHealthGate is False while eviction is paused on cluster health
	ConditionHealthGate = "HealthGate"
)

// Condition reasons
const (
	ReasonRunStarted          = "RunStarted"
	ReasonNodeProvisioning    = "NodeProvisioning"
	ReasonNodeDraining        = "NodeDraining"
	ReasonNodeValidating      = "NodeValidating"
	ReasonRunCompleted        = "RunCompleted"
	ReasonRunFailed           = "RunFailed"
	ReasonWaitingForSchedule  = "WaitingForSchedule"
	ReasonHealthy             = "Healthy"
	ReasonHealthBelowMinimum  = "HealthBelowThreshold"
	ReasonProvisioningTimeout = "ProvisioningTimeout"
	ReasonProvisioningFailed  = "ProvisioningFailed"
	ReasonValidationFailed    = "ValidationFailed"
	ReasonInvalidSpec         = "InvalidSpec"
)

// Labels written on cloud resources created for a refresh.
const (
	LabelReplaces = "noderefresh.io/replaces"
	LabelRunID    = "noderefresh.io/run"
	LabelOwner    = "noderefresh.io/owner"
)
