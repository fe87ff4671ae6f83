package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jrsteele09/pool-admin/devbackend"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_FOLDER", t.TempDir())
	t.Setenv("DEV_JWT_SECRET", "cli-test-secret")
	t.Setenv("USE_REAL_API", "false")
	t.Setenv("CREDENTIAL_STORE", "file")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("ENABLE_BULK", "false")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionSurvivesBetweenInvocations(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)

	_, err = execute(t, "", "login", "--email", devbackend.SeedUserEmail, "--password", "wrong-password")
	require.EqualError(t, err, "Invalid email or password")

	out, err := execute(t, devbackend.SeedUserPassword+"\n", "login", "-e", devbackend.SeedUserEmail)
	require.NoError(t, err)
	require.Equal(t, "Logged in as Sarah CSM (CSM)\n", out)

	out, err = execute(t, "", "whoami", "-q", "email")
	require.NoError(t, err)
	require.Equal(t, `"`+devbackend.SeedUserEmail+`"`+"\n", out)

	out, err = execute(t, "", "customers", "--search", "garcia", "-q", "customers[0].lastName")
	require.NoError(t, err)
	require.Equal(t, "\"Garcia\"\n", out)

	out, err = execute(t, "", "get", "/api/bookings", "--param", "hasDogsOnly=true", "-q", "length(bookings)")
	require.NoError(t, err)
	require.Equal(t, "1\n", out)

	_, err = execute(t, "", "reports", "send", "--customer", "1")
	require.ErrorContains(t, err, "ENABLE_BULK")

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	require.Equal(t, "Logged out\n", out)

	_, err = execute(t, "", "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "", "version", "--short")
	require.NoError(t, err)
	require.Equal(t, "dev\n", out)
}

func TestPrintResultQuery(t *testing.T) {
	value := map[string]any{"items": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, value, "items[].name"))
	require.JSONEq(t, `["a","b"]`, buf.String())

	buf.Reset()
	require.NoError(t, printResult(&buf, value, ""))
	require.JSONEq(t, `{"items":[{"name":"a"},{"name":"b"}]}`, buf.String())

	require.Error(t, printResult(&buf, value, "items[?"))
}

func TestPrintRoutesColoursKnownMethods(t *testing.T) {
	var buf bytes.Buffer
	printRoutes(&buf, []string{"GET /session", "TRACE /x", "/bare"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], green+" GET")
	require.Contains(t, lines[1], gray+" TRACE")
	require.True(t, strings.HasSuffix(lines[2], "] /bare"))
}

func TestReportsSetNeedsAFlag(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "", "reports", "set")
	require.ErrorContains(t, err, "nothing to change")
}
