package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Record string            `yaml:"record"`
			Alert  string            `yaml:"alert"`
			Expr   string            `yaml:"expr"`
			Labels map[string]string `yaml:"labels"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	content := readAsset(t, "observability", "grafana", "shopquery_dashboard.json")

	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}
	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
}

func TestRecordingRulesOnlyReferenceExportedMetrics(t *testing.T) {
	rules := readRules(t, "shopquery_recording_rules.yaml")

	exported := []string{
		"shopquery_http_requests_total",
		"shopquery_http_request_duration_seconds",
		"shopquery_translations_total",
		"shopquery_query_executions_total",
		"shopquery_query_duration_seconds",
		"shopquery_validations_total",
	}
	records := map[string]bool{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			if rule.Record == "" || strings.TrimSpace(rule.Expr) == "" {
				t.Fatalf("recording rule %#v needs record and expr", rule)
			}
			records[rule.Record] = true
			if !referencesAny(rule.Expr, exported) {
				t.Fatalf("record %q does not use an exported metric: %s", rule.Record, rule.Expr)
			}
		}
	}
	for _, name := range []string{
		"shopquery:slo_http_error_rate_5m",
		"shopquery:slo_query_engine_errors_15m",
		"shopquery:slo_translation_fallback_ratio_15m",
	} {
		if !records[name] {
			t.Fatalf("recording rules missing record %q", name)
		}
	}
}

func TestAlertRulesUseRecordedSeriesAndSeverity(t *testing.T) {
	recorded := map[string]bool{}
	for _, group := range readRules(t, "shopquery_recording_rules.yaml").Groups {
		for _, rule := range group.Rules {
			recorded[rule.Record] = true
		}
	}

	alerts := 0
	for _, group := range readRules(t, "shopquery_rules.yaml").Groups {
		for _, rule := range group.Rules {
			if rule.Alert == "" {
				continue
			}
			alerts++
			severity := rule.Labels["severity"]
			if severity != "critical" && severity != "warning" {
				t.Fatalf("alert %q severity = %q", rule.Alert, severity)
			}
			tokens := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(rule.Expr))
			found := false
			for _, token := range tokens {
				if recorded[token] {
					found = true
				}
			}
			if !found {
				t.Fatalf("alert %q does not use a recorded series: %s", rule.Alert, rule.Expr)
			}
		}
	}
	if alerts == 0 {
		t.Fatal("expected at least one alert")
	}
}

func TestPrometheusScrapeExampleTargetsMetricsPath(t *testing.T) {
	var scrape struct {
		RuleFiles     []string `yaml:"rule_files"`
		ScrapeConfigs []struct {
			JobName     string `yaml:"job_name"`
			MetricsPath string `yaml:"metrics_path"`
		} `yaml:"scrape_configs"`
	}
	if err := yaml.Unmarshal(readAsset(t, "observability", "prometheus", "prometheus-scrape.example.yaml"), &scrape); err != nil {
		t.Fatalf("scrape example parse error: %v", err)
	}
	if len(scrape.ScrapeConfigs) != 1 || scrape.ScrapeConfigs[0].JobName != "shopquery-api" || scrape.ScrapeConfigs[0].MetricsPath != "/v1/metrics" {
		t.Fatalf("scrape_configs = %#v", scrape.ScrapeConfigs)
	}
	for _, file := range scrape.RuleFiles {
		readAsset(t, "observability", "prometheus", file)
	}
	if len(scrape.RuleFiles) != 2 {
		t.Fatalf("rule_files = %#v", scrape.RuleFiles)
	}
}

func readRules(t *testing.T, name string) ruleFile {
	t.Helper()
	var rules ruleFile
	if err := yaml.Unmarshal(readAsset(t, "observability", "prometheus", name), &rules); err != nil {
		t.Fatalf("%s parse error: %v", name, err)
	}
	if len(rules.Groups) == 0 {
		t.Fatalf("%s has no groups", name)
	}
	return rules
}

func referencesAny(expr string, metrics []string) bool {
	for _, metric := range metrics {
		if strings.Contains(expr, metric) {
			return true
		}
	}
	return false
}

func readAsset(t *testing.T, parts ...string) []byte {
	t.Helper()
	path := filepath.Join(append([]string{repoRoot(t), "deployments"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
