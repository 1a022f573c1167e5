package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thera/internal/upscale"
)

func TestInitLoggerDebugMode(t *testing.T) {
	logger, closer := initLogger(true, logrus.WarnLevel, "")
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestInitLoggerUsesConfiguredLevel(t *testing.T) {
	logger, closer := initLogger(false, logrus.WarnLevel, "")
	defer closer.Close()

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thera.log")
	logger, closer := initLogger(false, logrus.InfoLevel, path)

	logger.Info("written to file")
	require.NoError(t, closer.Close())

	assert.FileExists(t, path)
}

func TestVersionOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	versionCmd.SetOut(buf)
	defer versionCmd.SetOut(nil)

	require.NoError(t, runVersion(versionCmd, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, AppName+" "+AppVersion, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "OpenCV: "))
	assert.True(t, strings.HasPrefix(lines[2], "GoCV: "))
}

func TestEnlargeRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name   string
		method string
		scale  string
	}{
		{name: "scale", method: "Lanczos", scale: "X3"},
		{name: "method", method: "Nearest", scale: "X2"},
		{name: "super resolution scale", method: "Super Resolution", scale: "16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enlargeMethod, enlargeScale = tt.method, tt.scale
			t.Cleanup(func() { enlargeMethod, enlargeScale = "Lanczos", "X2" })

			err := runEnlarge(enlargeCmd, []string{"in.png", "out.png"})
			require.Error(t, err)
		})
	}
}

func TestEnlargeRequiresTwoArguments(t *testing.T) {
	assert.Error(t, enlargeCmd.Args(enlargeCmd, []string{"only.png"}))
	assert.NoError(t, enlargeCmd.Args(enlargeCmd, []string{"in.png", "out.png"}))
}

func TestFormatReportSortsMetrics(t *testing.T) {
	report := upscale.Report{
		Method:      "Lanczos",
		Source:      upscale.Size{Width: 10, Height: 5},
		Output:      upscale.Size{Width: 20, Height: 10},
		Destination: "/tmp/out.png",
		Elapsed:     1500 * time.Millisecond,
		Metrics:     map[string]float64{"sharpness": 2, "consistency_psnr": 31.25},
	}

	out := formatReport(report)

	assert.Contains(t, out, "Method:       Lanczos")
	assert.Contains(t, out, "Elapsed:      1.5s")
	assert.Less(t, strings.Index(out, "consistency_psnr"), strings.Index(out, "sharpness"))
	assert.Contains(t, out, "consistency_psnr: 31.250")
}
