package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run 以给定参数执行根命令并返回标准输出.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	purgeConfirm = ""

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return out.String(), err
}

// writeConfig 生成使用临时 SQLite 与本地目录的配置文件.
func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	yaml := fmt.Sprintf(`server:
  reload_config: false
db:
  type: sqlite
  database: %s
  log_level: silent
artifact:
  type: local
  local_dir: %s
`, filepath.Join(dir, "drop"), filepath.Join(dir, "uploads"))

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestListCommands(t *testing.T) {
	cfg := writeConfig(t)

	cases := []struct {
		args []string
		want string
	}{
		{[]string{"db", "ls"}, "sqlite"},
		{[]string{"kv", "ls"}, "memory"},
		{[]string{"mq", "ls"}, "memory"},
		{[]string{"mq", "ls"}, "fd.file.expired"},
		{[]string{"artifact", "ls"}, "local"},
	}

	for _, tc := range cases {
		out, err := run(t, append(tc.args, "--config", cfg)...)
		if err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}

		if !strings.Contains(out, tc.want) {
			t.Errorf("%v output %q missing %q", tc.args, out, tc.want)
		}
	}
}

func TestConfigPath(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "config", "path", "--config", cfg)
	if err != nil {
		t.Fatal(err)
	}

	if strings.TrimSpace(out) != cfg {
		t.Errorf("config path = %q, want %q", out, cfg)
	}
}

func TestConfigCheck(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "config", "check", "--config", cfg)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out, "database   : SQLite") || !strings.Contains(out, "config ok") {
		t.Errorf("config check output = %q", out)
	}
}

func TestMaintenanceCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "db", "migrate", "--config", cfg)
	if err != nil || !strings.Contains(out, "migrated") {
		t.Fatalf("migrate: %q %v", out, err)
	}

	out, err = run(t, "sweep", "--config", cfg)
	if err != nil || !strings.Contains(out, "0 removed") {
		t.Errorf("sweep: %q %v", out, err)
	}

	out, err = run(t, "quota", "--config", cfg)
	if err != nil || !strings.HasPrefix(out, "used 0 /") {
		t.Errorf("quota: %q %v", out, err)
	}

	if _, err := run(t, "purge", "--config", cfg); err == nil {
		t.Error("purge without --confirm succeeded")
	}

	if _, err := run(t, "purge", "--config", cfg, "--confirm", "nope"); err == nil {
		t.Error("purge with wrong code succeeded")
	}

	out, err = run(t, "purge", "--config", cfg, "--confirm", "SUPPRIMER-TOUT")
	if err != nil || !strings.Contains(out, "0 deleted") {
		t.Errorf("purge: %q %v", out, err)
	}
}
