/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		"":        logrus.InfoLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), "level %q", in)
	}
}

func TestLog4jColorFormatter_PlainLine(t *testing.T) {
	f := &Log4jColorFormatter{LoggerName: "DATABASE", NameWidth: 10}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"type": "sqlite", "host": "local"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.True(t, strings.HasPrefix(line, "2024-03-01 10:00:00.000    INFO"))
	assert.Contains(t, line, "[  DATABASE]")
	assert.True(t, strings.HasSuffix(line, ": connected host=local type=sqlite\n"))
	assert.NotContains(t, line, ansiReset)
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "GENERATOR"}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Level:   logrus.ErrorLevel,
		Message: "insert failed",
		Data:    logrus.Fields{"error": errors.New("boom"), "rows": 3},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "GENERATOR", rec["logger"])
	assert.Equal(t, "insert failed", rec["message"])
	fields := rec["fields"].(map[string]interface{})
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, float64(3), fields["rows"])
}

func TestNewLogger_ReusesRegisteredInstance(t *testing.T) {
	a := NewLogger("REUSE_TEST")
	b := NewLogger("REUSE_TEST")
	assert.Same(t, a, b)
	assert.Contains(t, RegisteredLoggers(), "REUSE_TEST")

	assert.True(t, SetLoggerLevel("REUSE_TEST", "debug"))
	assert.Equal(t, logrus.DebugLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("MISSING_LOGGER", "debug"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("RENTKIT_TEST_STR", "value")
	t.Setenv("RENTKIT_TEST_BOOL", "true")
	t.Setenv("RENTKIT_TEST_BAD_BOOL", "nope")
	t.Setenv("RENTKIT_TEST_DUR", "3s")

	assert.Equal(t, "value", EnvDefaultString("RENTKIT_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefaultString("RENTKIT_TEST_UNSET", "def"))
	assert.True(t, EnvDefaultBool("RENTKIT_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("RENTKIT_TEST_BAD_BOOL", true))
	assert.Equal(t, 3*time.Second, EnvDefaultDuration("RENTKIT_TEST_DUR", time.Second))
	assert.Equal(t, time.Second, EnvDefaultDuration("RENTKIT_TEST_UNSET", time.Second))
}

func TestConfigureFileOutput(t *testing.T) {
	var console bytes.Buffer
	ConfigureConsoleOutput(&console)
	t.Cleanup(func() { ConfigureConsoleOutput(os.Stdout) })

	path := filepath.Join(t.TempDir(), "logs", "rentkit.log")
	file := ConfigureFileOutput(FileOutputConfig{Filename: path})

	lg := NewLogger("FILE_OUTPUT_TEST")
	lg.SetLevel(logrus.InfoLevel)
	lg.Info("written twice")
	require.NoError(t, file.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written twice")
	assert.Contains(t, console.String(), "written twice")
}

func TestConfigureFileOutputDetachesOnClose(t *testing.T) {
	var console bytes.Buffer
	ConfigureConsoleOutput(&console)
	t.Cleanup(func() { ConfigureConsoleOutput(os.Stdout) })

	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	size := func(path string) int64 {
		info, err := os.Stat(path)
		require.NoError(t, err)
		return info.Size()
	}

	lg := NewLogger("FILE_DETACH_TEST")
	lg.SetLevel(logrus.InfoLevel)

	closer := ConfigureFileOutput(FileOutputConfig{Filename: first})
	lg.Info("to first")
	require.NoError(t, closer.Close())
	written := size(first)
	assert.NotZero(t, written)

	lg.Info("after close")
	assert.Equal(t, written, size(first))
	assert.Contains(t, console.String(), "after close")

	ConfigureFileOutput(FileOutputConfig{Filename: first})
	lg.Info("to first again")
	written = size(first)
	replacement := ConfigureFileOutput(FileOutputConfig{Filename: second})
	t.Cleanup(func() { _ = replacement.Close() })
	lg.Info("to second")

	assert.Equal(t, written, size(first))
	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to second")
	assert.NotContains(t, string(data), "to first")
}
