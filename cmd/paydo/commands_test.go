package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run parses args against a fresh command tree and runs the selection on
// a file backend rooted at dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	grammar := commands
	parser, err := kong.New(&grammar, kong.Name("paydo"))
	require.NoError(t, err)

	base := []string{
		"--env-file=" + filepath.Join(dir, "missing.env"),
		"--backend=file",
		"--data-dir=" + dir,
		"--log-level=error",
	}
	ctx, err := parser.Parse(append(base, args...))
	require.NoError(t, err)

	var out bytes.Buffer
	rc := newRunContext(&grammar.Globals, &out)
	rc.logOut = io.Discard
	err = ctx.Run(rc)
	return out.String(), err
}

func TestAddAndBudget(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "add", "expense", "۱۲,۵۰۰", "نان", "--tags=food")
	require.NoError(t, err)
	assert.Contains(t, out, "۱۲,۵۰۰")

	_, err = run(t, dir, "add", "income", "1000", "حقوق")
	require.NoError(t, err)

	out, err = run(t, dir, "budget")
	require.NoError(t, err)
	assert.Contains(t, out, "جمع: ۱۲,۵۰۰")
	assert.Contains(t, out, "#food")
	assert.Contains(t, out, "۱۰۰٪")

	out, err = run(t, dir, "budget", "--kind=income")
	require.NoError(t, err)
	assert.Contains(t, out, "جمع: ۱,۰۰۰")
	assert.Contains(t, out, "#سایر")

	out, err = run(t, dir, "budget", "--offset=-1")
	require.NoError(t, err)
	assert.Contains(t, out, "موردی ثبت نشده")

	_, err = run(t, dir, "budget", "--kind=transfer")
	assert.Error(t, err)

	_, err = run(t, dir, "budget", "--year=1403", "--month=13")
	assert.Error(t, err)
}

func TestAddValidation(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "add", "expense", "0", "نان")
	require.Error(t, err)
	assert.Equal(t, "مبلغ و عنوان الزامی است", err.Error())

	_, err = run(t, dir, "add", "transfer", "10", "x")
	require.Error(t, err)
	assert.Equal(t, "حساب مقصد را انتخاب کنید", err.Error())
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "add", "expense", "1500", "تاکسی", "--tags=travel")
	require.NoError(t, err)
	_, err = run(t, dir, "add", "expense", "200", "نان")
	require.NoError(t, err)

	out, err := run(t, dir, "history", "تاکسی")
	require.NoError(t, err)
	assert.Contains(t, out, "#travel")
	assert.NotContains(t, out, "نان")

	out, err = run(t, dir, "history", "--limit=1")
	require.NoError(t, err)
	assert.Contains(t, out, "نان")
	assert.NotContains(t, out, "تاکسی")

	out, err = run(t, dir, "history", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "تراکنشی یافت نشد")
}

func TestAccounts(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "account", "add", "ملت", "--balance=۵۰۰")
	require.NoError(t, err)
	assert.Contains(t, out, "ملت")

	out, err = run(t, dir, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "موجودی کل: ۵۰۰")

	_, err = run(t, dir, "account", "delete", "1")
	require.NoError(t, err)

	out, err = run(t, dir, "account", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "کیف پول نقدی")

	_, err = run(t, dir, "account", "add", "x", "--type=gold")
	require.Error(t, err)
	assert.Equal(t, "نوع حساب نامعتبر است", err.Error())
}

func TestDeleteLastAccount(t *testing.T) {
	_, err := run(t, t.TempDir(), "account", "delete", "1")
	require.Error(t, err)
	assert.Equal(t, "حداقل یک حساب لازم است", err.Error())
}

func TestTags(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "add", "expense", "10", "x", "--tags=a b")
	require.NoError(t, err)

	out, err := run(t, dir, "tags", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "#a\t۱")
	assert.Contains(t, out, "#b\t۱")

	out, err = run(t, dir, "tags", "delete", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "۱ تراکنش")

	out, err = run(t, dir, "tags", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "#a")
}

func TestBackupRestoreReset(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "backup.json")

	_, err := run(t, dir, "add", "expense", "10", "x")
	require.NoError(t, err)
	_, err = run(t, dir, "backup", "--output="+file, "--passphrase=secret")
	require.NoError(t, err)

	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, dir, "reset")
	require.Error(t, err)

	_, err = run(t, dir, "reset", "--yes")
	require.NoError(t, err)
	out, err := run(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "تراکنشی یافت نشد")

	_, err = run(t, dir, "restore", file, "--passphrase=secret")
	require.NoError(t, err)
	out, err = run(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "x")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"foo":1}`), 0o600))
	_, err = run(t, dir, "restore", bad)
	require.Error(t, err)
	assert.Equal(t, "فایل نامعتبر", err.Error())
}

func TestUsage(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "add", "expense", "10", "x")
	require.NoError(t, err)

	out, err := run(t, dir, "usage")
	require.NoError(t, err)
	assert.Contains(t, out, "کیلوبایت")
}

func TestBar(t *testing.T) {
	assert.Equal(t, "█", bar(0))
	assert.Equal(t, 10, len([]rune(bar(50))))
	assert.Equal(t, barCells, len([]rune(bar(100))))
	assert.Equal(t, barCells, len([]rune(bar(250))))
}
