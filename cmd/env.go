package cmd

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"

	"github.com/usefence/licensed/internal/config"
)

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing  []string          // Required keys that are missing
	Present  map[string]string // Keys that are set (secrets masked)
	Warnings []string          // Non-fatal warnings
}

// CheckRequiredConfig reports which required keys of the resolved config are set.
func CheckRequiredConfig(cfg *config.Config) *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	required := []struct {
		key, value string
		secret     bool
	}{
		{"database.url", cfg.Database.URL, true},
		{"license.secret_key", cfg.License.SecretKey, true},
		{"license.webhook_secret", cfg.License.WebhookSecret, true},
		{"stripe.webhook_secret", cfg.Stripe.WebhookSecret, true},
		{"database.driver", cfg.Database.Driver, false},
		{"trial.timezone", cfg.Trial.Timezone, false},
	}
	for _, r := range required {
		switch {
		case r.value == "":
			result.Missing = append(result.Missing, r.key)
		case r.secret:
			result.Present[r.key] = maskSecret(r.value)
		default:
			result.Present[r.key] = r.value
		}
	}

	// Optional but good to check
	if cfg.Mail.APIKey != "" {
		result.Present["mail.api_key"] = maskSecret(cfg.Mail.APIKey)
	} else {
		result.Warnings = append(result.Warnings, "mail.api_key is empty; license emails will only be logged")
	}
	if cfg.Student.PaymentLink == "" {
		result.Warnings = append(result.Warnings, "student.payment_link is empty; verified students receive no link")
	}
	if cfg.Queue.Enabled && cfg.Database.Driver != "postgres" {
		result.Warnings = append(result.Warnings, "queue.enabled needs postgres; email will be sent inline")
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(result *ConfigCheckResult) {
	fmt.Println("=== Configuration Check ===")
	fmt.Println("")

	if len(result.Missing) > 0 {
		fmt.Println("❌ Missing required settings:")
		for _, v := range result.Missing {
			fmt.Printf("   - %s\n", v)
		}
		fmt.Println("")
	}

	if len(result.Present) > 0 {
		fmt.Println("✓ Configured settings:")
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("   - %s = %s\n", k, result.Present[k])
		}
		fmt.Println("")
	}

	for _, w := range result.Warnings {
		fmt.Printf("⚠ Warning: %s\n", w)
	}

	if len(result.Missing) == 0 {
		fmt.Println("✓ All required configuration is present")
	}

	fmt.Println("============================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	if err := godotenv.Overload(filename); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", filename, err)
	}
	return nil
}
