package params

import (
	"os"

	"gauntlet/pkg/logging"
)

// SecretsFileEnv overrides the --secrets-file flag when set. CI systems use
// this to inject credentials without touching the stored invocation.
const SecretsFileEnv = "GAUNTLET_SECRETS_FILE"

// SecretsReference returns the secrets file path for the run. A path from
// the environment takes precedence over the flag value; the precedence event
// is logged so the effective source is visible in the run log.
func SecretsReference(flagValue string) string {
	env := os.Getenv(SecretsFileEnv)
	if env == "" {
		return flagValue
	}
	if flagValue != "" && flagValue != env {
		logging.Warn("Params", "%s overrides --secrets-file value %q", SecretsFileEnv, flagValue)
	} else {
		logging.Debug("Params", "Secrets file taken from %s", SecretsFileEnv)
	}
	return env
}
