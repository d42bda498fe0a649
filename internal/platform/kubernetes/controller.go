package kubernetes

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	k8sclient "k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"gauntlet/internal/driver"
	"gauntlet/internal/params"
	"gauntlet/internal/platform"
	"gauntlet/internal/results"
	"gauntlet/internal/run"
	"gauntlet/internal/testdef"
	"gauntlet/pkg/logging"
)

// Name is the identifier runs select this controller with.
const Name = "kubernetes"

// Parameter keys the controller understands beyond the shared selection
// criteria and the keys every controller shares.
const (
	KeyNamespace      = "namespace"
	KeyImage          = "image"
	KeyJobTimeout     = "job_timeout"
	KeyServiceAccount = "service_account"
)

// StoreKeyNamespace is the run-state name the target namespace is published
// under once the environment is prepared.
const StoreKeyNamespace = "KubernetesNamespace"

const (
	defaultNamespace  = "gauntlet"
	defaultJobTimeout = 15 * time.Minute
	defaultWorkers    = 4
	defaultPoll       = 3 * time.Second
)

// connectFunc builds the cluster clients from an optional kubeconfig path.
// It is a field so tests can substitute fakes.
type connectFunc func(kubeconfig string) (client.Client, k8sclient.Interface, error)

type controller struct {
	store *run.Store

	namespace      string
	image          string
	jobTimeout     time.Duration
	workers        int
	definitions    string
	cleanup        string
	serviceAccount string
	criteria       testdef.Criteria

	connect      connectFunc
	pollInterval time.Duration

	client    client.Client
	clientset k8sclient.Interface
	cases     []testdef.Case

	reportPath string
	tally      platform.Tally
}

// New builds a kubernetes controller bound to the given run state.
func New(store *run.Store) platform.Controller {
	return &controller{
		store:        store,
		connect:      defaultConnect,
		pollInterval: defaultPoll,
	}
}

func defaultConnect(kubeconfig string) (client.Client, k8sclient.Interface, error) {
	var config *rest.Config
	var err error
	if kubeconfig != "" {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		config, err = ctrl.GetConfig()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading cluster configuration: %w", err)
	}

	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	cl, err := client.New(config, client.Options{Scheme: scheme})
	if err != nil {
		return nil, nil, fmt.Errorf("creating cluster client: %w", err)
	}

	clientset, err := k8sclient.NewForConfig(config)
	if err != nil {
		return nil, nil, fmt.Errorf("creating clientset: %w", err)
	}

	return cl, clientset, nil
}

func (c *controller) ParseAndValidateParameters(set *params.Set) error {
	criteria, err := testdef.CriteriaFromParams(set)
	if err != nil {
		return err
	}
	c.criteria = criteria

	c.image = set.Get(KeyImage)
	if c.image == "" {
		return params.NewConfigurationError(KeyImage, "platform",
			"a container image for case execution is required")
	}

	c.namespace = set.Get(KeyNamespace)
	if c.namespace == "" {
		c.namespace = defaultNamespace
	}

	c.jobTimeout = defaultJobTimeout
	if raw, ok := set.Lookup(KeyJobTimeout); ok && raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return params.NewConfigurationError(KeyJobTimeout, "platform",
				fmt.Sprintf("expected a positive duration, got %q", raw))
		}
		c.jobTimeout = d
	}

	workers, err := set.GetInt(platform.KeyWorkers, defaultWorkers)
	if err != nil {
		return err
	}
	if workers < 1 {
		return params.NewConfigurationError(platform.KeyWorkers, "platform",
			fmt.Sprintf("expected at least 1 worker, got %d", workers))
	}
	c.workers = workers

	c.definitions = set.Get(platform.KeyDefinitions)
	c.serviceAccount = set.Get(KeyServiceAccount)

	cleanup, err := platform.ParseCleanup(set.Get(platform.KeyCleanup))
	if err != nil {
		return params.NewConfigurationError(platform.KeyCleanup, "platform", err.Error())
	}
	c.cleanup = cleanup

	return nil
}

func (c *controller) PrepareTestEnvironment(ctx context.Context, secretsRef string) error {
	cl, clientset, err := c.connect(secretsRef)
	if err != nil {
		return err
	}
	c.client = cl
	c.clientset = clientset

	if err := c.ensureNamespace(ctx); err != nil {
		return err
	}
	c.store.Set(StoreKeyNamespace, c.namespace)
	logging.Info("Platform", "Cluster ready, executing in namespace %s with image %s", c.namespace, c.image)
	return nil
}

func (c *controller) ensureNamespace(ctx context.Context) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: c.namespace}}
	if err := c.client.Create(ctx, ns); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("ensuring namespace %s: %w", c.namespace, err)
	}
	logging.Debug("Platform", "Created namespace %s", c.namespace)
	return nil
}

func (c *controller) LoadTestCases(ctx context.Context, workspaceRoot string, custom map[string]string) error {
	defsPath := testdef.DefinitionsPath(c.definitions, workspaceRoot)
	cases, err := testdef.LoadCases(defsPath)
	if err != nil {
		return err
	}

	selected := testdef.Filter(cases, c.criteria)
	logging.Info("Platform", "Selected %d of %d cases from %s", len(selected), len(cases), defsPath)

	facts := testdef.RunFacts{
		ID:           c.storeString(driver.StoreKeyRunID),
		WorkspaceDir: workspaceRoot,
		LogDir:       c.storeString(driver.StoreKeyRunLogDir),
	}
	expanded, err := testdef.ExpandCases(selected, facts, custom)
	if err != nil {
		return err
	}
	c.cases = expanded
	return nil
}

func (c *controller) RunLoadedTestCases(ctx context.Context, reportPath string, iterations int, parallel bool) error {
	items := platform.Plan(c.cases, iterations)
	if len(items) == 0 {
		logging.Warn("Platform", "No runnable cases, writing an empty report")
	}

	workers := 1
	if parallel {
		workers = c.workers
	}

	start := time.Now()
	caseResults := platform.ExecutePool(ctx, items, workers, c.executeOne)

	suite := results.Suite{Name: Name, Cases: caseResults, Duration: time.Since(start)}
	if err := results.WriteReport(reportPath, suite); err != nil {
		return err
	}
	c.reportPath = reportPath
	c.tally = platform.TallyOf(caseResults)
	c.tally.Duration = suite.Duration

	if err := c.cleanupJobs(ctx); err != nil {
		logging.Warn("Platform", "Job cleanup failed: %v", err)
	}
	return nil
}

func (c *controller) Summary(ctx context.Context) (string, error) {
	if c.reportPath == "" {
		return "", fmt.Errorf("no execution recorded")
	}
	return fmt.Sprintf("kubernetes (%s): %s in %s (report %s)",
		c.namespace, c.tally, c.tally.Duration.Round(time.Millisecond), c.reportPath), nil
}

func (c *controller) runID() string {
	if id := c.storeString(driver.StoreKeyRunID); id != "" {
		return id
	}
	return "adhoc"
}

func (c *controller) storeString(name string) string {
	if v, ok := c.store.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
