package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("reminder:\n  timezone: UTC\nagenda:\n  enabled: true\n  schedule: \"0 8 * * *\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("agenda:\n  enabled: true\n  schedule: \"not cron\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		args    []string
		wantErr string
		wantOut string
	}{
		{"valid", []string{"check", "--config", good}, "", "configured sections: agenda, reminder"},
		{"bad cron", []string{"check", "--config", bad}, "agenda.schedule", ""},
		{"telegram needs token", []string{"check", "--config", good, "--ui", "telegram"}, "telegram.token", ""},
		{"missing file", []string{"check", "--config", filepath.Join(dir, "nope.yaml")}, "no such file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkUI = ""
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tc.args)

			err := rootCmd.Execute()
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("check: %v", err)
			}
			if !strings.Contains(out.String(), tc.wantOut) {
				t.Fatalf("output = %q, want %q", out.String(), tc.wantOut)
			}
		})
	}
}
