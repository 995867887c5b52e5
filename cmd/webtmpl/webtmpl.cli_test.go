package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/itsatony/go-webtmpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test data constants
const (
	testTemplateContent = "Hello {{$username}}{{#FOR orders}} #{{.$id}}:{{.$total}}{{#ENDFOR}} ({{%ROWS}})"
	testDataJSON        = `{"values": {"username": "alice"}, "loops": {"orders": {"fields": ["id", "total"], "rows": [["1", "20"], ["2", "30"]]}}}`
	testDataYAML        = "values:\n  username: bob\nloops:\n  orders:\n    fields: [id, total]\n    rows:\n      - [7, 70]\n"
	testExpectedOutput  = "Hello alice #1:20 #2:30 (2)"
	testBrokenContent   = "{{#IF $x}}open\n{{%NOPE}}"
	testFileMode        = 0o644
)

// setupTestData creates test files in a temp directory
func setupTestData(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "page.tmpl"), []byte(testTemplateContent), testFileMode))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data.json"), []byte(testDataJSON), testFileMode))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data.yaml"), []byte(testDataYAML), testFileMode))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "broken.tmpl"), []byte(testBrokenContent), testFileMode))

	return tmpDir
}

// ==================== run() dispatch tests ====================

func TestRun_NoArgs_ShowsHelp(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run(nil, strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode)
	assert.Contains(t, stdout.String(), CLIName)
	assert.Contains(t, stdout.String(), CmdNameRender)
}

func TestRun_UnknownCommand(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{"unknown"}, strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeUsageError, exitCode)
	assert.Contains(t, stdout.String(), ErrMsgUnknownCommand)
}

// ==================== Help command tests ====================

func TestHelp_Commands(t *testing.T) {
	tests := map[string]string{
		CmdNameRender:  HelpRenderUsage,
		CmdNameCheck:   HelpCheckUsage,
		CmdNameWatch:   HelpWatchUsage,
		CmdNameVersion: HelpVersionUsage,
		CmdNameHelp:    HelpHelpUsage,
	}
	for cmd, usage := range tests {
		t.Run(cmd, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			assert.Equal(t, ExitCodeSuccess, runHelp([]string{cmd}, stdout))
			assert.Contains(t, stdout.String(), usage)
		})
	}
}

// ==================== Render command tests ====================

func TestRender_WithDataJSON(t *testing.T) {
	tmpDir := setupTestData(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{CmdNameRender,
		"-t", filepath.Join(tmpDir, "page.tmpl"),
		"-d", testDataJSON,
	}, strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode, stderr.String())
	assert.Equal(t, testExpectedOutput, stdout.String())
}

func TestRender_WithDataFileYAML(t *testing.T) {
	tmpDir := setupTestData(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{CmdNameRender,
		"--template", filepath.Join(tmpDir, "page.tmpl"),
		"--data-file", filepath.Join(tmpDir, "data.yaml"),
	}, strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode, stderr.String())
	assert.Equal(t, "Hello bob #7:70 (1)", stdout.String())
}

func TestRender_FromStdin(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{CmdNameRender, "-t", InputSourceStdin, "-d", testDataJSON},
		strings.NewReader(testTemplateContent), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode, stderr.String())
	assert.Equal(t, testExpectedOutput, stdout.String())
}

func TestRender_ToOutputFile(t *testing.T) {
	tmpDir := setupTestData(t)
	outPath := filepath.Join(tmpDir, "out.html")
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{CmdNameRender,
		"-t", filepath.Join(tmpDir, "page.tmpl"),
		"-f", filepath.Join(tmpDir, "data.json"),
		"-o", outPath,
	}, strings.NewReader(""), stdout, stderr)

	require.Equal(t, ExitCodeSuccess, exitCode, stderr.String())
	assert.Empty(t, stdout.String())
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, testExpectedOutput, string(got))
}

func TestRender_Debug_AppendsTrailer(t *testing.T) {
	tmpDir := setupTestData(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{CmdNameRender, "-t", filepath.Join(tmpDir, "broken.tmpl"), "--debug"},
		strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode, stderr.String())
	assert.Contains(t, stdout.String(), "<!--")
	assert.Contains(t, stdout.String(), "%NOPE")
}

func TestRender_Verbose_LogsToStderr(t *testing.T) {
	tmpDir := setupTestData(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	exitCode := run([]string{CmdNameRender, "-t", filepath.Join(tmpDir, "broken.tmpl"), "-v"},
		strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode)
	assert.Contains(t, stderr.String(), webtmpl.LogMsgTemplateLoaded)
}

func TestRender_FromStore(t *testing.T) {
	storeDir := t.TempDir()
	storage, err := webtmpl.NewFilesystemStorage(storeDir)
	require.NoError(t, err)
	require.NoError(t, storage.Save(context.Background(), &webtmpl.StoredTemplate{Name: "page", Source: testTemplateContent}))

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	exitCode := run([]string{CmdNameRender, "-s", storeDir, "-n", "page", "-d", testDataJSON},
		strings.NewReader(""), stdout, stderr)

	assert.Equal(t, ExitCodeSuccess, exitCode, stderr.String())
	assert.Equal(t, testExpectedOutput, stdout.String())
}

func TestRender_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing template", []string{}, ErrMsgMissingTemplate},
		{"template and store", []string{"-t", "a", "-s", "dir", "-n", "x"}, ErrMsgTemplateAndStore},
		{"store without name", []string{"-s", "dir"}, ErrMsgStoreNeedsName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := &bytes.Buffer{}
			exitCode := runRender(tt.args, strings.NewReader(""), &bytes.Buffer{}, stderr)
			assert.Equal(t, ExitCodeUsageError, exitCode)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestRender_InputErrors(t *testing.T) {
	tmpDir := setupTestData(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing template file", []string{"-t", filepath.Join(tmpDir, "nope.tmpl")}, ErrMsgReadFileFailed},
		{"invalid inline data", []string{"-t", filepath.Join(tmpDir, "page.tmpl"), "-d", "{not json"}, ErrMsgInvalidData},
		{"missing data file", []string{"-t", filepath.Join(tmpDir, "page.tmpl"), "-f", filepath.Join(tmpDir, "nope.json")}, ErrMsgInvalidData},
		{"missing stored template", []string{"-s", tmpDir, "-n", "ghost"}, ErrMsgReadStoreFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stderr := &bytes.Buffer{}
			exitCode := runRender(tt.args, strings.NewReader(""), &bytes.Buffer{}, stderr)
			assert.Equal(t, ExitCodeInputError, exitCode)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

// ==================== Version command tests ====================

func TestVersion_Text(t *testing.T) {
	stdout := &bytes.Buffer{}

	exitCode := runVersion(nil, stdout, &bytes.Buffer{})

	assert.Equal(t, ExitCodeSuccess, exitCode)
	assert.Contains(t, stdout.String(), CLIName+" version")
}

func TestVersion_JSON(t *testing.T) {
	stdout := &bytes.Buffer{}

	exitCode := runVersion([]string{"-F", OutputFormatJSON}, stdout, &bytes.Buffer{})

	require.Equal(t, ExitCodeSuccess, exitCode)
	var info versionInfo
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.NotEmpty(t, info.GoVersion)
}

func TestVersion_InvalidFormat(t *testing.T) {
	stderr := &bytes.Buffer{}

	exitCode := runVersion([]string{"--format", "xml"}, &bytes.Buffer{}, stderr)

	assert.Equal(t, ExitCodeUsageError, exitCode)
	assert.Contains(t, stderr.String(), ErrMsgInvalidFormat)
}

func TestReadVersionInfo(t *testing.T) {
	dir := t.TempDir()
	content := "project:\n  name: webtmpl\n  version: 1.2.3\ngit:\n  commit: abc123\n  branch: main\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionsFileName), []byte(content), testFileMode))

	info := readVersionInfo([]string{t.TempDir(), dir})

	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "main", info.Branch)
	assert.Equal(t, VersionUnknown, info.BuildTime)
}

func TestReadVersionInfo_NoFile(t *testing.T) {
	info := readVersionInfo([]string{t.TempDir()})

	assert.Equal(t, VersionUnknown, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
