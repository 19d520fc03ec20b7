package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"fingerprint": "abc"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"fingerprint": "abc"}, resp.Data)
	assert.Empty(t, resp.RunID)
	assert.NotContains(t, buf.String(), "run_id")
}

func TestOutputFormatter_SuccessWithRun(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.SuccessWithRun("run-1", "done"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "done", resp.Data)

	buf.Reset()
	formatter.Format = "text"
	require.NoError(t, formatter.SuccessWithRun("run-1", "done"))
	assert.Equal(t, "done\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeLoadFailed, "invalid plan document", "plan.yaml:1:5: op: unknown operator")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E003", resp.Error.Code)
	assert.Equal(t, "invalid plan document", resp.Error.Message)
	assert.Equal(t, "plan.yaml:1:5: op: unknown operator", resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Error(ErrCodeNotFound, "cannot read plan file", "no such file"))
	assert.Equal(t, "Error [E002]: cannot read plan file\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeNotFound, "cannot read plan file", "no such file"))
	assert.Equal(t, "Error [E002]: cannot read plan file\nDetails: no such file\n", buf.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	cause := errors.New("boom")

	err := formatter.Fail(ExitFailure, ErrCodeRewrite, "rewrite failed", cause)

	assert.Equal(t, "Error [E020]: rewrite failed\n", buf.String())
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "rewrite failed: boom")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("loaded %d node(s)", 3)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("loaded %d node(s)", 3)
	assert.Equal(t, "loaded 3 node(s)\n", errOut.String())
	assert.Empty(t, out.String(), "verbose output stays off stdout")
}

func TestOutputFormatter_GetErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: out}
	assert.Same(t, out, formatter.GetErrWriter())

	errOut := &bytes.Buffer{}
	formatter.ErrWriter = errOut
	assert.Same(t, errOut, formatter.GetErrWriter())
}

func TestOutputFormatter_Logger(t *testing.T) {
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Writer: &bytes.Buffer{}, ErrWriter: errOut}

	formatter.Logger().Debug("hidden")
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.Logger().Debug("pass applied", "pass", "merge_limits")
	assert.Contains(t, errOut.String(), "level=DEBUG")
	assert.Contains(t, errOut.String(), `msg="pass applied" pass=merge_limits`)
}

func TestExitError(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad flag")
	assert.Equal(t, "bad flag", err.Error())
	assert.Nil(t, err.Unwrap())

	cause := errors.New("io")
	wrapped := WrapExitError(ExitFailure, "read", cause)
	assert.Equal(t, "read: io", wrapped.Error())
	assert.Same(t, cause, wrapped.Unwrap())
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("x"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
