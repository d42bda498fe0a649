package kubernetes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	k8sclient "k8s.io/client-go/kubernetes"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	ctrlfake "sigs.k8s.io/controller-runtime/pkg/client/fake"

	"gauntlet/internal/driver"
	"gauntlet/internal/params"
	"gauntlet/internal/platform"
	"gauntlet/internal/results"
	"gauntlet/internal/run"
	"gauntlet/internal/testdef"
)

func testScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	return scheme
}

func fakeController(t *testing.T, extra map[string]string, objs ...runtime.Object) (*controller, ctrlclient.Client, *run.Store) {
	t.Helper()

	fakeClient := ctrlfake.NewClientBuilder().WithScheme(testScheme()).Build()
	fakeClientset := k8sfake.NewSimpleClientset(objs...)

	store := run.NewStore()
	c := New(store).(*controller)
	c.connect = func(string) (ctrlclient.Client, k8sclient.Interface, error) {
		return fakeClient, fakeClientset, nil
	}
	c.pollInterval = 5 * time.Millisecond

	set := params.NewSet()
	set.Put(params.KeyPlatform, Name)
	set.Put(KeyImage, "busybox:1.36")
	for key, value := range extra {
		set.Put(key, value)
	}
	require.NoError(t, c.ParseAndValidateParameters(set))
	return c, fakeClient, store
}

// completeJobs plays the cluster's job controller: any Job without a
// terminal condition gets one, failing the cases named in fail.
func completeJobs(ctx context.Context, cl ctrlclient.Client, namespace string, fail map[string]bool) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var jobs batchv1.JobList
			if err := cl.List(ctx, &jobs, ctrlclient.InNamespace(namespace)); err != nil {
				continue
			}
			for i := range jobs.Items {
				job := &jobs.Items[i]
				if len(job.Status.Conditions) > 0 {
					continue
				}
				condType := batchv1.JobComplete
				if fail[job.Labels[labelCase]] {
					condType = batchv1.JobFailed
				}
				job.Status.Conditions = append(job.Status.Conditions, batchv1.JobCondition{
					Type:   condType,
					Status: corev1.ConditionTrue,
					Reason: "TestCompleter",
				})
				_ = cl.Update(ctx, job)
			}
		}
	}
}

func writeDefinitions(t *testing.T, workspace, content string) {
	t.Helper()
	dir := filepath.Join(workspace, "testcases")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "suite.yaml"), []byte(content), 0o644))
}

func TestParseAndValidateParameters_RequiresImage(t *testing.T) {
	set := params.NewSet()
	set.Put(params.KeyPlatform, Name)

	c := New(run.NewStore()).(*controller)
	err := c.ParseAndValidateParameters(set)

	var confErr *params.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, KeyImage, confErr.Key)
}

func TestParseAndValidateParameters_Defaults(t *testing.T) {
	c, _, _ := fakeController(t, nil)

	assert.Equal(t, defaultNamespace, c.namespace)
	assert.Equal(t, defaultJobTimeout, c.jobTimeout)
	assert.Equal(t, defaultWorkers, c.workers)
	assert.Equal(t, platform.CleanupAlways, c.cleanup)
}

func TestParseAndValidateParameters_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "malformed job timeout", key: KeyJobTimeout, value: "soon"},
		{name: "zero workers", key: platform.KeyWorkers, value: "0"},
		{name: "unknown cleanup policy", key: platform.KeyCleanup, value: "sometimes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			set := params.NewSet()
			set.Put(params.KeyPlatform, Name)
			set.Put(KeyImage, "busybox:1.36")
			set.Put(tc.key, tc.value)

			c := New(run.NewStore()).(*controller)
			err := c.ParseAndValidateParameters(set)

			var confErr *params.ConfigurationError
			require.ErrorAs(t, err, &confErr)
			assert.Equal(t, tc.key, confErr.Key)
		})
	}
}

func TestPrepareTestEnvironment_EnsuresNamespace(t *testing.T) {
	c, fakeClient, store := fakeController(t, map[string]string{KeyNamespace: "burn-in"})
	ctx := context.Background()

	require.NoError(t, c.PrepareTestEnvironment(ctx, ""))

	var ns corev1.Namespace
	require.NoError(t, fakeClient.Get(ctx, ctrlclient.ObjectKey{Name: "burn-in"}, &ns))

	published, ok := store.Get(StoreKeyNamespace)
	require.True(t, ok)
	assert.Equal(t, "burn-in", published)

	// A namespace that already exists is not an error.
	require.NoError(t, c.ensureNamespace(ctx))
}

func TestBuildJob(t *testing.T) {
	c, _, store := fakeController(t, map[string]string{KeyServiceAccount: "runner"})
	store.Set(driver.StoreKeyRunID, "ab12cd34")

	item := platform.WorkItem{
		Index: 3,
		Name:  "disk-io",
		Def: testdef.Case{
			Name:    "disk-io",
			Area:    "storage",
			Command: "dd if=/dev/zero of=/tmp/x bs=1M count=1",
			Env:     map[string]string{"MODE": "quick", "AREA": "disk"},
		},
	}
	job := c.buildJob(item, 90*time.Second)

	assert.Equal(t, "gauntlet-ab12cd34-3", job.Name)
	assert.Equal(t, defaultNamespace, job.Namespace)
	assert.Equal(t, "ab12cd34", job.Labels[labelRun])
	assert.Equal(t, "disk-io", job.Labels[labelCase])

	require.NotNil(t, job.Spec.BackoffLimit)
	assert.Equal(t, int32(0), *job.Spec.BackoffLimit)
	require.NotNil(t, job.Spec.ActiveDeadlineSeconds)
	assert.Equal(t, int64(90), *job.Spec.ActiveDeadlineSeconds)

	pod := job.Spec.Template.Spec
	assert.Equal(t, corev1.RestartPolicyNever, pod.RestartPolicy)
	assert.Equal(t, "runner", pod.ServiceAccountName)
	require.Len(t, pod.Containers, 1)
	assert.Equal(t, "busybox:1.36", pod.Containers[0].Image)
	assert.Equal(t, []string{"/bin/sh", "-c", item.Def.Command}, pod.Containers[0].Command)
	assert.Equal(t, []corev1.EnvVar{{Name: "AREA", Value: "disk"}, {Name: "MODE", Value: "quick"}}, pod.Containers[0].Env)
}

func TestRunLoadedTestCases_WritesReport(t *testing.T) {
	workspace := t.TempDir()
	writeDefinitions(t, workspace, `
suite: smoke
cases:
  - name: passes
    category: functional
    area: net
    command: "true"
  - name: fails
    category: functional
    area: net
    command: "false"
`)

	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{
		Name:      "gauntlet-ab12cd34-0-x1",
		Namespace: defaultNamespace,
		Labels:    map[string]string{"job-name": "gauntlet-ab12cd34-0"},
	}}
	c, fakeClient, store := fakeController(t, nil, pod)
	store.Set(driver.StoreKeyRunID, "ab12cd34")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go completeJobs(ctx, fakeClient, defaultNamespace, map[string]bool{"fails": true})

	require.NoError(t, c.PrepareTestEnvironment(ctx, ""))
	require.NoError(t, c.LoadTestCases(ctx, workspace, nil))

	reportPath := filepath.Join(t.TempDir(), "junit-ab12cd34.xml")
	require.NoError(t, c.RunLoadedTestCases(ctx, reportPath, 1, false))

	record, err := results.ParseReport(reportPath)
	require.NoError(t, err)
	assert.Equal(t, 2, record.Tests)
	assert.Equal(t, 1, record.Failures)
	assert.Equal(t, 0, record.Errors)

	// The fake clientset serves canned logs for the pre-created pod.
	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "fake logs")

	summary, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "1 passed, 1 failed")
}

func TestRunLoadedTestCases_CleanupPolicies(t *testing.T) {
	defs := `
suite: smoke
cases:
  - name: passes
    category: functional
    area: net
    command: "true"
`

	listJobs := func(t *testing.T, cl ctrlclient.Client) []batchv1.Job {
		t.Helper()
		var jobs batchv1.JobList
		require.NoError(t, cl.List(context.Background(), &jobs, ctrlclient.InNamespace(defaultNamespace)))
		return jobs.Items
	}

	t.Run("always deletes jobs", func(t *testing.T) {
		workspace := t.TempDir()
		writeDefinitions(t, workspace, defs)
		c, fakeClient, _ := fakeController(t, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go completeJobs(ctx, fakeClient, defaultNamespace, nil)

		require.NoError(t, c.PrepareTestEnvironment(ctx, ""))
		require.NoError(t, c.LoadTestCases(ctx, workspace, nil))
		require.NoError(t, c.RunLoadedTestCases(ctx, filepath.Join(t.TempDir(), "junit-x.xml"), 1, false))

		assert.Empty(t, listJobs(t, fakeClient))
	})

	t.Run("never keeps jobs", func(t *testing.T) {
		workspace := t.TempDir()
		writeDefinitions(t, workspace, defs)
		c, fakeClient, _ := fakeController(t, map[string]string{platform.KeyCleanup: platform.CleanupNever})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go completeJobs(ctx, fakeClient, defaultNamespace, nil)

		require.NoError(t, c.PrepareTestEnvironment(ctx, ""))
		require.NoError(t, c.LoadTestCases(ctx, workspace, nil))
		require.NoError(t, c.RunLoadedTestCases(ctx, filepath.Join(t.TempDir(), "junit-x.xml"), 1, false))

		assert.Len(t, listJobs(t, fakeClient), 1)
	})
}

func TestWaitForJob_Timeout(t *testing.T) {
	c, fakeClient, _ := fakeController(t, nil)
	require.NoError(t, c.PrepareTestEnvironment(context.Background(), ""))

	job := c.buildJob(platform.WorkItem{Index: 0, Name: "stuck", Def: testdef.Case{Name: "stuck", Command: "sleep 600"}}, time.Hour)
	require.NoError(t, fakeClient.Create(context.Background(), job))

	outcome := c.waitForJob(context.Background(), job.Name, 30*time.Millisecond)
	assert.Equal(t, results.CaseFailed, outcome.status)
	assert.Contains(t, outcome.message, "timed out after")
}

func TestWaitForJob_RunCanceled(t *testing.T) {
	c, fakeClient, _ := fakeController(t, nil)
	require.NoError(t, c.PrepareTestEnvironment(context.Background(), ""))

	job := c.buildJob(platform.WorkItem{Index: 0, Name: "stuck", Def: testdef.Case{Name: "stuck", Command: "sleep 600"}}, time.Hour)
	require.NoError(t, fakeClient.Create(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := c.waitForJob(ctx, job.Name, time.Minute)
	assert.Equal(t, results.CaseError, outcome.status)
	assert.Contains(t, outcome.message, "canceled")
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "disk-io", sanitizeLabel("Disk IO"))
	assert.Equal(t, "a1-b2", sanitizeLabel("-a1_b2-"))
	longName := strings.Repeat("x", 80)
	assert.Len(t, sanitizeLabel(longName), 63)
}

func TestJobName_Truncated(t *testing.T) {
	store := run.NewStore()
	store.Set(driver.StoreKeyRunID, strings.Repeat("a", 80))
	c := New(store).(*controller)

	name := c.jobName(platform.WorkItem{Index: 12})
	assert.LessOrEqual(t, len(name), 63)
	assert.True(t, strings.HasPrefix(name, "gauntlet-"))
}
