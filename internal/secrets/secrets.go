package secrets

import (
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "leadgen"

const (
	proxyPasswordAccount = "leadgen:proxy"
	gradingKeysAccount   = "leadgen:grading"
)

// ProxyPassword resolves the proxy credential: environment first, then the
// OS keyring, then the config fallback.
func ProxyPassword(configValue string) string {
	if v := strings.TrimSpace(os.Getenv("PROXY_PASSWORD")); v != "" {
		return v
	}
	if pw, err := keyring.Get(KeyringService, proxyPasswordAccount); err == nil && strings.TrimSpace(pw) != "" {
		return pw
	}
	return configValue
}

// GradingAPIKeys resolves the ordered grading credential list. The env var
// GRADING_API_KEYS is comma-separated; the keyring entry uses the same
// format. Config is the last resort.
func GradingAPIKeys(configValue []string) []string {
	if v := strings.TrimSpace(os.Getenv("GRADING_API_KEYS")); v != "" {
		return splitKeys(v)
	}
	if v, err := keyring.Get(KeyringService, gradingKeysAccount); err == nil && strings.TrimSpace(v) != "" {
		return splitKeys(v)
	}
	return configValue
}

// SetProxyPassword stores the proxy credential in the OS keychain.
func SetProxyPassword(password string) error {
	return keyring.Set(KeyringService, proxyPasswordAccount, password)
}

// SetGradingAPIKeys stores the comma-joined grading keys in the OS keychain.
func SetGradingAPIKeys(keys []string) error {
	return keyring.Set(KeyringService, gradingKeysAccount, strings.Join(keys, ","))
}

func splitKeys(v string) []string {
	var out []string
	for _, k := range strings.Split(v, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
