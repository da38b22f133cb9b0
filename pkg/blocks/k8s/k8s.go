// Package k8s provides the kubernetes block. It queries the K8s API via
// client-go for node readiness, pod phases and deployment availability in
// the current (or configured) kubeconfig context.
package k8s

import (
	"context"
	"fmt"
	"sync"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/format"
	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

const defaultInterval = 15 * time.Second

// Settings are the kubernetes block's keys.
type Settings struct {
	// Kubeconfig is the path to a kubeconfig file. If empty, the default
	// loading rules apply (KUBECONFIG env, ~/.kube/config, in-cluster).
	Kubeconfig string `toml:"kubeconfig"`

	// Contexts lists kubeconfig contexts to cycle through by clicking.
	// Empty means the current context only.
	Contexts []string `toml:"contexts"`

	// Namespace restricts pod and deployment counts. Empty means all.
	Namespace string `toml:"namespace"`
}

// Type returns the registrable kubernetes block type.
func Type() blocks.Type {
	return blocks.Type{
		Name:            "kubernetes",
		New:             New,
		DefaultFormat:   "{context} {running:1}/{pods:1}",
		DefaultInterval: defaultInterval,
	}
}

// K8sClient abstracts Kubernetes API calls for testability.
type K8sClient interface {
	ListNodes(ctx context.Context) ([]corev1.Node, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error)
}

// realClient wraps a kubernetes.Clientset to implement K8sClient.
type realClient struct {
	cs *kubernetes.Clientset
}

func (r *realClient) ListNodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := r.cs.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list, err := r.cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	list, err := r.cs.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// clientFactory creates a K8sClient for a kubeconfig context and reports
// the resolved context name. Tests inject their own.
type clientFactory func(kubeconfig, context string) (K8sClient, string, error)

// defaultClientFactory builds a real K8sClient from a kubeconfig path and context.
func defaultClientFactory(kubeconfig, ctxName string) (K8sClient, string, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if ctxName != "" {
		overrides.CurrentContext = ctxName
	}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)
	cfg, err := loader.ClientConfig()
	if err != nil {
		return nil, "", fmt.Errorf("build client config: %w", err)
	}
	if ctxName == "" {
		if raw, err := loader.RawConfig(); err == nil {
			ctxName = raw.CurrentContext
		}
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("create clientset: %w", err)
	}
	return &realClient{cs: cs}, ctxName, nil
}

// Block shows the health of one Kubernetes context.
type Block struct {
	cfg     Settings
	factory clientFactory

	mu      sync.Mutex
	current int
	client  K8sClient
	ctxName string
}

// New builds a kubernetes block from its settings.
func New(s blocks.Settings, env blocks.Env) (blocks.Block, error) {
	var cfg Settings
	if err := s.Decode(env.Name, &cfg); err != nil {
		return nil, err
	}
	return newWithFactory(cfg, defaultClientFactory)
}

func newWithFactory(cfg Settings, factory clientFactory) (*Block, error) {
	b := &Block{cfg: cfg, factory: factory}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

// connect builds the client for the selected context. Callers hold mu or
// own b exclusively.
func (b *Block) connect() error {
	name := ""
	if len(b.cfg.Contexts) > 0 {
		name = b.cfg.Contexts[b.current]
	}
	client, resolved, err := b.factory(b.cfg.Kubeconfig, name)
	if err != nil {
		return blocks.Fail("kubeconfig", err)
	}
	b.client, b.ctxName = client, resolved
	return nil
}

// Summary is the cluster state the block displays.
type Summary struct {
	Nodes       int
	NodesReady  int
	Pods        int
	Running     int
	Pending     int
	Failed      int
	Deployments int
	Unavailable int
}

// Severity grades a summary: failed pods or unready nodes are critical,
// pending pods or unavailable deployments a warning.
func (s Summary) Severity() widget.Severity {
	switch {
	case s.Failed > 0 || s.NodesReady < s.Nodes:
		return widget.Critical
	case s.Pending > 0 || s.Unavailable > 0:
		return widget.Warning
	}
	return widget.Idle
}

// Update implements blocks.Block. API errors are retryable: the cluster
// may be briefly unreachable (VPN reconnect, apiserver rollout).
func (b *Block) Update(ctx context.Context) (*blocks.Output, error) {
	b.mu.Lock()
	client, ctxName := b.client, b.ctxName
	b.mu.Unlock()

	nodes, err := client.ListNodes(ctx)
	if err != nil {
		return nil, blocks.Retry("k8s unreachable", fmt.Errorf("list nodes: %w", err))
	}
	pods, err := client.ListPods(ctx, b.cfg.Namespace)
	if err != nil {
		return nil, blocks.Retry("k8s unreachable", fmt.Errorf("list pods: %w", err))
	}
	// Deployments are best effort; RBAC often forbids listing them.
	deps, _ := client.ListDeployments(ctx, b.cfg.Namespace)

	sum := Summarize(nodes, pods, deps)
	return &blocks.Output{
		Icon:  "kubernetes",
		State: sum.Severity(),
		Values: format.Values{
			"context":     format.Text(ctxName),
			"namespace":   format.Text(b.cfg.Namespace),
			"nodes":       format.Integer(int64(sum.Nodes)),
			"nodes_ready": format.Integer(int64(sum.NodesReady)),
			"pods":        format.Integer(int64(sum.Pods)),
			"running":     format.Integer(int64(sum.Running)),
			"pending":     format.Integer(int64(sum.Pending)),
			"failed":      format.Integer(int64(sum.Failed)),
			"deployments": format.Integer(int64(sum.Deployments)),
			"unavailable": format.Integer(int64(sum.Unavailable)),
		},
	}, nil
}

// Click switches to the next (left, wheel up) or previous (right, wheel
// down) configured context.
func (b *Block) Click(_ context.Context, ev protocol.ClickEvent) (bool, error) {
	if len(b.cfg.Contexts) < 2 {
		return false, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.cfg.Contexts)
	switch ev.Button {
	case protocol.ButtonLeft, protocol.ButtonWheelUp:
		b.current = (b.current + 1) % n
	case protocol.ButtonRight, protocol.ButtonWheelDown:
		b.current = (b.current + n - 1) % n
	default:
		return false, nil
	}
	if err := b.connect(); err != nil {
		return false, err
	}
	return true, nil
}

// Summarize counts node readiness, pod phases and unavailable deployments.
func Summarize(nodes []corev1.Node, pods []corev1.Pod, deps []appsv1.Deployment) Summary {
	s := Summary{Nodes: len(nodes), Pods: len(pods), Deployments: len(deps)}
	for i := range nodes {
		if isNodeReady(&nodes[i]) {
			s.NodesReady++
		}
	}
	for i := range pods {
		switch pods[i].Status.Phase {
		case corev1.PodRunning:
			s.Running++
		case corev1.PodPending:
			s.Pending++
		case corev1.PodFailed:
			s.Failed++
		}
	}
	for i := range deps {
		want := int32(1)
		if deps[i].Spec.Replicas != nil {
			want = *deps[i].Spec.Replicas
		}
		if deps[i].Status.AvailableReplicas < want {
			s.Unavailable++
		}
	}
	return s
}

// isNodeReady checks whether a node has a Ready condition set to True.
func isNodeReady(node *corev1.Node) bool {
	if node == nil {
		return false
	}
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}
