package commands_test

import (
	"encoding/csv"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "sui-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "sui")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/sui")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// runSui runs the binary in dir with a clean SUI_* environment.
func runSui(t *testing.T, dir string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "SUI_") {
			cmd.Env = append(cmd.Env, kv)
		}
	}
	var out, errOut strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err = cmd.Run()
	return out.String(), errOut.String(), err
}

func testdata(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	return path
}

// importDir copies the sample export into a fresh import directory.
func importDir(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(testdata(t, "sui_export.csv"))
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "import")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023-01.csv"), data, 0o644))
	return dir
}

func parseCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestVersion(t *testing.T) {
	out, _, err := runSui(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit: none")
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, _, err := runSui(t, dir, "init", dir, "--encoding", "gbk")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized sui importer")

	for _, d := range []string{"import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sui.yaml"))
	require.NoError(t, err)
	contents := string(data)
	assert.Contains(t, contents, "encoding: gbk")
	assert.Contains(t, contents, "asset: Equity:Adjustments:Assets")
	assert.Contains(t, contents, "type: 交易类型")
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runSui(t, dir, "init", dir)
	require.NoError(t, err)

	_, stderr, err := runSui(t, dir, "init", dir)
	require.Error(t, err)
	assert.Contains(t, stderr, "already exists")
}

func TestExtract_Testdata(t *testing.T) {
	export := testdata(t, "sui_export.csv")
	out, _, err := runSui(t, t.TempDir(), "extract", "--config", testdata(t, "sui.yaml"), export)
	require.NoError(t, err)

	rows := parseCSV(t, out)
	require.Len(t, rows, 1+7*2)
	assert.Equal(t, "date,flag,payee,narration,account,amount,currency,posting_flag,source,line", strings.Join(rows[0], ","))
	assert.Equal(t, []string{"2023-01-01", "*", "", "还款", "Assets:Bank:Savings", "-1000.00", "CNY", "", export, "9"}, rows[1])
	assert.Equal(t, []string{"2023-01-01", "*", "", "还款", "Liabilities:CreditCard", "1000.00", "CNY", "", export, "9"}, rows[2])

	last := rows[len(rows)-1]
	assert.Equal(t, "2023-01-07", last[0])
	assert.Equal(t, "Expenses:Food", last[4])
	assert.Equal(t, "35.50", last[5])
}

func TestExtract_CrossCurrencyWarning(t *testing.T) {
	out, stderr, err := runSui(t, t.TempDir(), "extract", "--config", testdata(t, "sui.yaml"), testdata(t, "sui_export.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stderr, "needs a manual amount"), stderr)

	var flagged []string
	for _, row := range parseCSV(t, out)[1:] {
		if row[7] == "!" {
			flagged = append(flagged, row[4]+" "+row[5]+" "+row[6])
		}
	}
	assert.Equal(t, []string{"Assets:Bank:Savings 0.00 CNY"}, flagged)
}

func TestExtract_OutputFile(t *testing.T) {
	dir := t.TempDir()
	out, _, err := runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "-o", "postings.csv", testdata(t, "sui_export.csv"))
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(filepath.Join(dir, "postings.csv"))
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, string(data)), 15)
}

func TestExtract_FailureKeepsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "postings.csv")
	require.NoError(t, os.WriteFile(output, []byte("PREVIOUS GOOD OUTPUT\n"), 0o644))

	bad := filepath.Join(dir, "bad.csv")
	export := "交易类型,日期,子分类,账户1,账户2,金额,商家,备注\n未知,2023-01-01,饮食,储蓄卡,,1.00,,\n"
	require.NoError(t, os.WriteFile(bad, []byte(export), 0o644))

	_, stderr, err := runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "-o", output, bad)
	require.Error(t, err)
	assert.Contains(t, stderr, `unsupported transaction type "未知"`)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "PREVIOUS GOOD OUTPUT\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestExtract_OutputReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "postings.csv")
	require.NoError(t, os.WriteFile(output, []byte("stale\n"), 0o644))

	_, _, err := runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "-o", output, testdata(t, "sui_export.csv"))
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, string(data)), 15)
}

func TestExtract_UnknownAccountFails(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "sui.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("accounts: {}\ncurrencies: {}\ncategories: {}\n"), 0o644))

	out, stderr, err := runSui(t, dir, "extract", "--config", cfg, testdata(t, "sui_export.csv"))
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "row 1")
	assert.Contains(t, stderr, "储蓄卡")
}

func TestExtract_RequiresInput(t *testing.T) {
	_, stderr, err := runSui(t, t.TempDir(), "extract", "--config", testdata(t, "sui.yaml"))
	require.Error(t, err)
	assert.Contains(t, stderr, "no input")
}

func TestExtract_ConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := "SUI_CONFIG=" + testdata(t, "sui.yaml") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))

	out, _, err := runSui(t, dir, "extract", testdata(t, "sui_export.csv"))
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, out), 15)
}

func TestExtract_DebugLogsRows(t *testing.T) {
	_, stderr, err := runSui(t, t.TempDir(), "extract", "--debug", "--log-format", "json",
		"--config", testdata(t, "sui.yaml"), testdata(t, "sui_export.csv"))
	require.NoError(t, err)
	assert.Contains(t, stderr, `"message":"row"`)
	assert.Contains(t, stderr, `"row":4`)
}

func TestExtract_HistorySkipsRepeats(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	args := []string{"extract", "--config", testdata(t, "sui.yaml"), "--history", db, testdata(t, "sui_export.csv")}

	out, _, err := runSui(t, dir, args...)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, out), 15)

	out, stderr, err := runSui(t, dir, args...)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, out), 1, "only the header")
	assert.Contains(t, stderr, "already imported")

	out, _, err = runSui(t, dir, append(args, "--force")...)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, out), 15)

	out, _, err = runSui(t, dir, "history", "--history", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "header and two runs")
	assert.Contains(t, lines[1], "sui_export.csv")
	assert.Contains(t, lines[1], "sui")
}

func TestExtract_DirMarkProcessed(t *testing.T) {
	dir := importDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("a,b\n1,2\n"), 0o644))

	out, stderr, err := runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "--dir", dir, "--mark-processed")
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, out), 15)
	assert.Contains(t, stderr, "no importer recognizes")

	_, err = os.Stat(filepath.Join(dir, "processed", "2023-01.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "notes.csv"))
	require.NoError(t, err, "unrecognized files stay put")
}

func TestExtract_MarkProcessedRequiresDir(t *testing.T) {
	_, stderr, err := runSui(t, t.TempDir(), "extract", "--config", testdata(t, "sui.yaml"), "--mark-processed", testdata(t, "sui_export.csv"))
	require.Error(t, err)
	assert.Contains(t, stderr, "requires --dir")
}

func TestExtract_ImporterOverride(t *testing.T) {
	dir := t.TempDir()
	export, err := os.ReadFile(testdata(t, "sui_export.csv"))
	require.NoError(t, err)
	renamed := filepath.Join(dir, "export.txt")
	require.NoError(t, os.WriteFile(renamed, export, 0o644))

	_, stderr, err := runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), renamed)
	require.Error(t, err, "a .txt file is not identified")
	assert.Contains(t, stderr, "no importer recognizes")

	out, _, err := runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "--importer", "SUI", renamed)
	require.NoError(t, err)
	assert.Len(t, parseCSV(t, out), 15)

	_, stderr, err = runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "--importer", "alipay", renamed)
	require.Error(t, err)
	assert.Contains(t, stderr, `unknown importer "alipay"`)
}

func TestIdentify(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "other.csv")
	require.NoError(t, os.WriteFile(other, []byte("Date,Amount\n2023-01-01,1\n"), 0o644))

	out, _, err := runSui(t, dir, "identify", "--config", testdata(t, "sui.yaml"), testdata(t, "sui_export.csv"), other)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "sui"))
	assert.True(t, strings.HasSuffix(lines[1], "-"))
}

func TestScan(t *testing.T) {
	dir := importDir(t)
	db := filepath.Join(t.TempDir(), "history.db")

	out, _, err := runSui(t, dir, "scan", "--config", testdata(t, "sui.yaml"), "--history", db, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "FILE")
	assert.Regexp(t, `2023-01\.csv\s+\d+\s+sui\s+new`, out)

	_, _, err = runSui(t, dir, "extract", "--config", testdata(t, "sui.yaml"), "--history", db, "--dir", dir)
	require.NoError(t, err)

	out, _, err = runSui(t, dir, "scan", "--config", testdata(t, "sui.yaml"), "--history", db, dir)
	require.NoError(t, err)
	assert.Regexp(t, `2023-01\.csv\s+\d+\s+sui\s+imported`, out)
}

func TestHistory_RequiresDatabase(t *testing.T) {
	_, stderr, err := runSui(t, t.TempDir(), "history")
	require.Error(t, err)
	assert.Contains(t, stderr, "no history database")
}

func TestUnknownLogFormat(t *testing.T) {
	_, stderr, err := runSui(t, t.TempDir(), "history", "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, stderr, "unknown log format")
}
