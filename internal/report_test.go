package internal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func analyzeFixture(t *testing.T, cfg Config) *Report {
	t.Helper()
	report, doc, err := Analyze("test.z64", buildROM(fixtureWords), testTable(), cfg, logrus.NewEntry(testLogger()))
	require.NoError(t, err)
	require.NotNil(t, doc)
	return report
}

func TestNewReport(t *testing.T) {
	r := analyzeFixture(t, testConfig())

	assert.Equal(t, "test.z64", r.File)
	assert.Equal(t, 0x2000, r.Size)
	assert.Equal(t, "z64", r.Format)
	assert.Equal(t, "big-endian", r.FormatDescription)
	assert.Equal(t, "N64SORA TEST", r.ImageName)
	assert.Equal(t, uint32(0x80000400), r.HeaderEntrypoint)
	assert.Equal(t, uint32(0x80000400), r.Entrypoint)
	assert.Equal(t, uint32(0x1000), r.BootSegmentLength)
	assert.Equal(t, uint32(0x80025CC0), r.JumpAddress)
	assert.Equal(t, uint32(0x8004F330), r.StackPointer)
	assert.Equal(t, "IDO", r.DelaySlotHint)
	assert.Equal(t, "jump", r.StoppedBy)
	assert.Equal(t, "insufficient evidence", r.Verdict)
	assert.Equal(t, 3, r.Blocks)
	assert.Len(t, r.Listing, 13)
	require.Len(t, r.Registers, 4)
	assert.Equal(t, RegisterState{"sp", 0x8004F330, "addiu"}, r.Registers[3])

	m := r.RegisterMap()
	assert.Equal(t, 4, m.Len())
	t1, ok := m.Get("t1")
	assert.True(t, ok)
	assert.Equal(t, uint32(0x5D50), t1.Value)
}

func TestReportTerse(t *testing.T) {
	r := analyzeFixture(t, testConfig())

	fields := strings.Split(r.Terse(), ";")
	require.Len(t, fields, 15)
	assert.Equal(t, []string{
		"test.z64",
		"8192",
		"z64",
		"0000000F, 80000400, 00001444, 00000000 00000000, N64SORA TEST, N, ST, E, 0",
		"6102 / 7101",
		"80000400",
		"0x1000",
		"8004F330",
		"8004E940",
		"0x5D50",
		"80025CC0",
		"t0=addiu,t1=addiu,t2=addiu,sp=addiu",
		"0",
		"0",
		"insufficient evidence",
	}, fields)
}

func TestReportWrite(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		cfg := testConfig()
		cfg.Verbosity = 1
		var buf bytes.Buffer
		require.NoError(t, analyzeFixture(t, cfg).Write(&buf, cfg))
		out := buf.String()

		assert.True(t, strings.HasPrefix(out, "test.z64\n"))
		assert.Contains(t, out, "  entrypoint:    0x80000400 (header 0x80000400)\n")
		assert.Contains(t, out, "/* 80000430 001030 27BDF330 */      addiu      sp, sp, -0xCD0\n")
		assert.Contains(t, out, "  t1   = 0x00005D50 (addiu)\n")
		assert.Contains(t, out, "  jump to:       0x80025CC0\n")
		assert.Contains(t, out, "  bss start:     0x8004E940\n")
		assert.Contains(t, out, "  initial sp:    0x8004F330\n")
		assert.Contains(t, out, "  verdict:       insufficient evidence\n")
		assert.NotContains(t, out, "guessed")
	})

	t.Run("quiet text", func(t *testing.T) {
		cfg := testConfig()
		cfg.Verbosity = -1
		var buf bytes.Buffer
		require.NoError(t, analyzeFixture(t, cfg).Write(&buf, cfg))
		assert.NotContains(t, buf.String(), "entrypoint code")
		assert.NotContains(t, buf.String(), "registers")
	})

	t.Run("terse", func(t *testing.T) {
		cfg := testConfig()
		cfg.Terse = true
		cfg.Output = OutputJSON
		var buf bytes.Buffer
		r := analyzeFixture(t, cfg)
		require.NoError(t, r.Write(&buf, cfg))
		assert.Equal(t, r.Terse()+"\n", buf.String())
	})

	t.Run("yaml", func(t *testing.T) {
		cfg := testConfig()
		cfg.Output = OutputYAML
		var buf bytes.Buffer
		require.NoError(t, analyzeFixture(t, cfg).Write(&buf, cfg))

		var doc map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
		assert.Equal(t, 0x80025CC0, doc["jump_address"])
		assert.Equal(t, "6102 / 7101", doc["ipl3"])
		assert.Len(t, doc["listing"], 13)
	})

	t.Run("json", func(t *testing.T) {
		cfg := testConfig()
		cfg.Output = OutputJSON
		var buf bytes.Buffer
		require.NoError(t, analyzeFixture(t, cfg).Write(&buf, cfg))

		var r Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
		assert.Equal(t, uint32(0x8004E940), r.BSSStart)
		assert.Equal(t, uint32(0x8), r.BSSStride)
		assert.Contains(t, buf.String(), "\n  \"file\": \"test.z64\",\n")
	})
}

func TestReportRecord(t *testing.T) {
	r := analyzeFixture(t, testConfig())
	r.RunID = "run"

	rec := r.Record()
	assert.Equal(t, "run", rec.RunID)
	assert.Equal(t, "test.z64", rec.File)
	assert.Equal(t, int64(0x2000), rec.Size)
	assert.Equal(t, "6102 / 7101", rec.IPL3)
	assert.Equal(t, int64(0x80025CC0), rec.JumpAddress)
	assert.Equal(t, int64(0x8004E940), rec.BSSStart)
	assert.Equal(t, int64(0x5D50), rec.BSSSize)
	assert.Equal(t, "insufficient evidence", rec.Verdict)
	assert.Zero(t, rec.ID)
}
