package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"gauntlet/internal/platform"
	"gauntlet/internal/results"
	"gauntlet/pkg/logging"
)

// Labels stamped on every Job so cleanup and triage can find a run's Jobs.
const (
	labelApp  = "app.kubernetes.io/name"
	labelRun  = "gauntlet.dev/run"
	labelCase = "gauntlet.dev/case"
)

func (c *controller) executeOne(ctx context.Context, item platform.WorkItem) results.CaseResult {
	def := item.Def
	result := results.CaseResult{Name: item.Name, ClassName: def.Area}

	if def.Skip {
		result.Status = results.CaseSkipped
		result.Message = "marked skip in definition"
		return result
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = c.jobTimeout
	}

	job := c.buildJob(item, timeout)
	start := time.Now()
	if err := c.client.Create(ctx, job); err != nil {
		result.Status = results.CaseError
		result.Message = fmt.Sprintf("creating job %s: %v", job.Name, err)
		return result
	}

	outcome := c.waitForJob(ctx, job.Name, timeout)
	result.Duration = time.Since(start)
	result.Status = outcome.status
	result.Message = outcome.message
	result.Output = c.podLogs(ctx, job.Name)

	logging.Debug("Platform", "Job %s finished with %s in %s", job.Name, result.Status, result.Duration.Round(time.Millisecond))
	return result
}

func (c *controller) buildJob(item platform.WorkItem, timeout time.Duration) *batchv1.Job {
	def := item.Def
	backoff := int32(0)
	deadline := int64(timeout / time.Second)
	if deadline < 1 {
		deadline = 1
	}

	labels := map[string]string{
		labelApp:  "gauntlet",
		labelRun:  sanitizeLabel(c.runID()),
		labelCase: sanitizeLabel(def.Name),
	}

	env := make([]corev1.EnvVar, 0, len(def.Env))
	for _, key := range sortedKeys(def.Env) {
		env = append(env, corev1.EnvVar{Name: key, Value: def.Env[key]})
	}

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      c.jobName(item),
			Namespace: c.namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:          &backoff,
			ActiveDeadlineSeconds: &deadline,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyNever,
					ServiceAccountName: c.serviceAccount,
					Containers: []corev1.Container{{
						Name:    "case",
						Image:   c.image,
						Command: []string{"/bin/sh", "-c", def.Command},
						Env:     env,
					}},
				},
			},
		},
	}
}

type jobOutcome struct {
	status  results.CaseStatus
	message string
}

// waitForJob polls until the Job reaches a terminal condition. The Job's
// ActiveDeadlineSeconds bounds execution cluster-side; the poll deadline
// here only guards against Jobs the cluster never finishes.
func (c *controller) waitForJob(ctx context.Context, name string, timeout time.Duration) jobOutcome {
	var outcome jobOutcome
	err := wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout+2*c.pollInterval, true,
		func(ctx context.Context) (bool, error) {
			var job batchv1.Job
			if err := c.client.Get(ctx, client.ObjectKey{Name: name, Namespace: c.namespace}, &job); err != nil {
				if apierrors.IsNotFound(err) {
					return false, nil
				}
				return false, err
			}
			for _, cond := range job.Status.Conditions {
				if cond.Status != corev1.ConditionTrue {
					continue
				}
				switch cond.Type {
				case batchv1.JobComplete:
					outcome = jobOutcome{status: results.CasePassed}
					return true, nil
				case batchv1.JobFailed:
					message := cond.Message
					if message == "" {
						message = cond.Reason
					}
					outcome = jobOutcome{
						status:  results.CaseFailed,
						message: fmt.Sprintf("job failed: %s", message),
					}
					return true, nil
				}
			}
			return false, nil
		})
	if err == nil {
		return outcome
	}

	switch {
	case ctx.Err() != nil:
		return jobOutcome{status: results.CaseError, message: "run canceled before the job finished"}
	case wait.Interrupted(err):
		return jobOutcome{
			status:  results.CaseFailed,
			message: fmt.Sprintf("timed out after %s waiting for job %s", timeout, name),
		}
	default:
		return jobOutcome{status: results.CaseError, message: fmt.Sprintf("watching job %s: %v", name, err)}
	}
}

// podLogs gathers the logs of the Job's pods for the report artifact. Log
// retrieval is best effort and never fails a case.
func (c *controller) podLogs(ctx context.Context, jobName string) string {
	pods, err := c.clientset.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: "job-name=" + jobName,
	})
	if err != nil {
		logging.Warn("Platform", "Listing pods of job %s: %v", jobName, err)
		return ""
	}

	var out strings.Builder
	for _, pod := range pods.Items {
		raw, err := c.clientset.CoreV1().Pods(c.namespace).GetLogs(pod.Name, &corev1.PodLogOptions{}).Do(ctx).Raw()
		if err != nil {
			logging.Warn("Platform", "Reading logs of pod %s: %v", pod.Name, err)
			continue
		}
		out.Write(raw)
	}
	return out.String()
}

func (c *controller) cleanupJobs(ctx context.Context) error {
	keep := c.cleanup == platform.CleanupNever ||
		(c.cleanup == platform.CleanupOnSuccess && c.tally.Bad())
	if keep {
		logging.Info("Platform", "Keeping jobs of run %s in namespace %s (cleanup policy %s)",
			c.runID(), c.namespace, c.cleanup)
		return nil
	}
	return c.client.DeleteAllOf(ctx, &batchv1.Job{},
		client.InNamespace(c.namespace),
		client.MatchingLabels{labelRun: sanitizeLabel(c.runID())},
		client.PropagationPolicy(metav1.DeletePropagationBackground),
	)
}

func (c *controller) jobName(item platform.WorkItem) string {
	name := fmt.Sprintf("gauntlet-%s-%d", sanitizeLabel(c.runID()), item.Index)
	if len(name) > 63 {
		name = name[:63]
	}
	return strings.Trim(name, "-")
}

// sanitizeLabel lowers a value into the DNS-1123 subset Kubernetes accepts
// for names and label values.
func sanitizeLabel(value string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, value)
	mapped = strings.Trim(mapped, "-")
	if len(mapped) > 63 {
		mapped = strings.Trim(mapped[:63], "-")
	}
	return mapped
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
